package api

import "errors"

// ErrInvalidRequest matches every error caused by a malformed request.
var ErrInvalidRequest = errors.New("api: invalid request")

// errBodyTooLarge is returned by readBody when the request exceeds the
// configured limit.
var errBodyTooLarge = errors.New("request body too large")

// fieldError rejects one field of an activity document or one request
// parameter. field is reported as the envelope's param; it is empty when the
// body as a whole is unusable.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.msg }

func (e *fieldError) Unwrap() error { return ErrInvalidRequest }

func invalidField(field, msg string) error {
	return &fieldError{field: field, msg: msg}
}

func invalidBody(msg string) error {
	return &fieldError{msg: msg}
}
