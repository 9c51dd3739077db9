package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// ResponseError is the body of every error response, wrapped as {"error": ...}.
type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// writeBadRequest reports err with the rejected field, if any, as param.
func writeBadRequest(c *echo.Context, err error) error {
	var param string
	var fe *fieldError
	if errors.As(err, &fe) {
		param = fe.field
	}
	return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), param, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeServerError(c *echo.Context, err error) error {
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// readBody reads at most limit bytes of the request body.
func readBody(c *echo.Context, limit int64) ([]byte, error) {
	r := c.Request().Body
	if limit > 0 {
		r = io.NopCloser(io.LimitReader(r, limit+1))
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, errBodyTooLarge
	}
	return b, nil
}

func decodeJSON[T any](b []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(b)) == 0 {
		return out, invalidBody("request body is empty")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, invalidBody(fmt.Sprintf("invalid JSON: %v", err))
	}
	return out, nil
}
