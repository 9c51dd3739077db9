package api

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/segmentio/ksuid"

	"github.com/samcharles93/ridefit/internal/store"
	"github.com/samcharles93/ridefit/pkg/activity"
	"github.com/samcharles93/ridefit/pkg/fit"
)

const (
	opEncode = "encode"
	opDecode = "decode"
	opStore  = "store"
	opLoad   = "load"
	opDelete = "delete"

	defaultListLimit = 50
	maxListLimit     = 1000
)

// CreatedActivity is the response to POST /v1/activities.
type CreatedActivity struct {
	ID       string `json:"id"`
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

// DecodeFailure is the 422 body for files whose record stream is cut short.
type DecodeFailure struct {
	Error   ResponseError    `json:"error"`
	Partial *activity.Result `json:"partial"`
}

func (s *Server) handleEncode(c *echo.Context) error {
	start := s.clock()
	a, err := s.readActivity(c)
	if err != nil {
		s.metrics.Record(opEncode, statusError, 0, time.Since(start))
		return s.writeRequestError(c, err)
	}
	data := activity.Encode(a)
	s.metrics.Record(opEncode, statusSuccess, len(data), time.Since(start))

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="activity.fit"`)
	return c.Blob(http.StatusOK, MIMEFit, data)
}

func (s *Server) handleDecode(c *echo.Context) error {
	start := s.clock()
	data, err := readBody(c, s.opts.MaxBodyBytes)
	if err != nil {
		s.metrics.Record(opDecode, statusError, 0, time.Since(start))
		return s.writeRequestError(c, err)
	}
	return s.writeDecoded(c, data, start)
}

func (s *Server) handleCreateActivity(c *echo.Context) error {
	start := s.clock()
	a, err := s.readActivity(c)
	if err != nil {
		s.metrics.Record(opStore, statusError, 0, time.Since(start))
		return s.writeRequestError(c, err)
	}
	data := activity.Encode(a)
	id, err := s.opts.Archive.Put(data)
	if err != nil {
		s.metrics.Record(opStore, statusError, len(data), time.Since(start))
		s.log.Error("store activity", "error", err)
		return writeServerError(c, err)
	}
	s.metrics.Record(opStore, statusSuccess, len(data), time.Since(start))
	s.log.Info("activity stored", "id", id.String(), "bytes", len(data), "samples", len(a.Samples))

	return c.JSON(http.StatusCreated, CreatedActivity{
		ID:       id.String(),
		Size:     len(data),
		Checksum: fmt.Sprintf("%04x", binary.LittleEndian.Uint16(data[len(data)-2:])),
	})
}

func (s *Server) handleListActivities(c *echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return s.writeRequestError(c, invalidField("limit", "limit must be a positive integer"))
		}
		limit = min(n, maxListLimit)
	}
	entries, err := s.opts.Archive.List(limit)
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"activities": entries})
}

func (s *Server) handleGetActivity(c *echo.Context) error {
	start := s.clock()
	id, data, err := s.load(c)
	if err != nil {
		s.metrics.Record(opLoad, statusError, 0, time.Since(start))
		return s.writeLoadError(c, err)
	}
	s.metrics.Record(opLoad, statusSuccess, len(data), time.Since(start))

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.fit"`, id))
	return c.Blob(http.StatusOK, MIMEFit, data)
}

func (s *Server) handleGetDecoded(c *echo.Context) error {
	start := s.clock()
	_, data, err := s.load(c)
	if err != nil {
		return s.writeLoadError(c, err)
	}
	return s.writeDecoded(c, data, start)
}

func (s *Server) handleDeleteActivity(c *echo.Context) error {
	start := s.clock()
	id, err := parseID(c)
	if err == nil {
		err = s.opts.Archive.Delete(id)
	}
	if err != nil {
		s.metrics.Record(opDelete, statusError, 0, time.Since(start))
		return s.writeLoadError(c, err)
	}
	s.metrics.Record(opDelete, statusSuccess, 0, time.Since(start))
	s.log.Info("activity deleted", "id", id.String())
	return c.NoContent(http.StatusNoContent)
}

// readActivity parses an activity document and applies the server defaults.
func (s *Server) readActivity(c *echo.Context) (activity.Activity, error) {
	body, err := readBody(c, s.opts.MaxBodyBytes)
	if err != nil {
		return activity.Activity{}, err
	}
	a, err := decodeJSON[activity.Activity](body)
	if err != nil {
		return a, err
	}
	if a.StartedAt.IsZero() {
		return a, invalidField("startedAt", "startedAt is required")
	}
	if a.FTP < 0 {
		return a, invalidField("ftp", "ftp must not be negative")
	}
	if a.FTP == 0 {
		a.FTP = s.opts.FTP
	}
	if a.Device == nil && s.opts.Device != nil {
		d := *s.opts.Device
		a.Device = &d
	}
	return a, nil
}

func (s *Server) writeDecoded(c *echo.Context, data []byte, start time.Time) error {
	res, err := activity.Decode(data, fit.WithChecksum(s.opts.VerifyChecksum))
	switch {
	case err == nil:
		s.metrics.Record(opDecode, statusSuccess, len(data), time.Since(start))
		s.metrics.samplesDecoded.Add(float64(len(res.Samples)))
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, fit.ErrTruncatedStream) && res != nil:
		s.metrics.Record(opDecode, statusTruncated, len(data), time.Since(start))
		s.log.Warn("decode truncated", "bytes", len(data), "samples", len(res.Samples), "error", err)
		return c.JSON(http.StatusUnprocessableEntity, DecodeFailure{
			Error:   ResponseError{Message: err.Error(), Type: "invalid_fit_file", Code: "truncated"},
			Partial: res,
		})
	default:
		s.metrics.Record(opDecode, statusError, len(data), time.Since(start))
		return writeError(c, http.StatusBadRequest, "invalid_fit_file", err.Error(), "", fitErrorCode(err))
	}
}

func (s *Server) load(c *echo.Context) (ksuid.KSUID, []byte, error) {
	id, err := parseID(c)
	if err != nil {
		return id, nil, err
	}
	data, err := s.opts.Archive.Get(id)
	return id, data, err
}

func parseID(c *echo.Context) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(c.Param("id"))
	if err != nil {
		return ksuid.Nil, invalidField("id", "invalid activity id")
	}
	return id, nil
}

func (s *Server) writeRequestError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", err.Error(), "", "")
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err)
	}
	return writeServerError(c, err)
}

func (s *Server) writeLoadError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return writeNotFound(c, "activity not found")
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err)
	}
	s.log.Error("load activity", "error", err)
	return writeServerError(c, err)
}

func fitErrorCode(err error) string {
	switch {
	case errors.Is(err, fit.ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, fit.ErrHeaderChecksum):
		return "header_checksum_mismatch"
	case errors.Is(err, fit.ErrInvalidMagic):
		return "invalid_magic"
	case errors.Is(err, fit.ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, fit.ErrUnsupportedArchitecture):
		return "unsupported_architecture"
	}
	return ""
}
