package fit

import "errors"

var (
	ErrInvalidHeader           = errors.New("fit: invalid header")
	ErrInvalidMagic            = errors.New("fit: invalid magic")
	ErrHeaderChecksum          = errors.New("fit: header checksum mismatch")
	ErrChecksumMismatch        = errors.New("fit: file checksum mismatch")
	ErrTruncatedStream         = errors.New("fit: truncated or corrupt record stream")
	ErrUnsupportedArchitecture = errors.New("fit: unsupported architecture")
)
