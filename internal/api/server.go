// Package api serves the activity codec and archive over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/segmentio/ksuid"
	"golang.org/x/time/rate"

	"github.com/samcharles93/ridefit/internal/logger"
	"github.com/samcharles93/ridefit/internal/store"
	"github.com/samcharles93/ridefit/internal/version"
	"github.com/samcharles93/ridefit/pkg/activity"
)

// HeaderRequestID is echoed back, or generated, on every response.
const HeaderRequestID = "X-Request-ID"

// MIMEFit is the media type of raw activity files.
const MIMEFit = "application/vnd.ant.fit"

// Archive is the persistence the activity routes need. *store.Store
// implements it.
type Archive interface {
	Put(data []byte) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) ([]byte, error)
	Delete(id ksuid.KSUID) error
	List(limit int) ([]store.Entry, error)
}

type Options struct {
	// Archive backs the /v1/activities routes; they are not registered
	// when it is nil.
	Archive Archive
	Logger  logger.Logger
	Metrics *Metrics

	// RateLimit is the sustained number of codec requests per second
	// allowed across all clients; 0 disables limiting.
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64

	// VerifyChecksum rejects uploaded files whose trailing checksum does not match.
	VerifyChecksum bool
	// FTP and Device fill activities that do not carry their own.
	FTP    int
	Device *activity.Device
}

type Server struct {
	opts    Options
	log     logger.Logger
	metrics *Metrics
	limiter *rate.Limiter
	clock   func() time.Time
}

func NewServer(opts Options) *Server {
	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		clock:   time.Now,
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if opts.RateLimit > 0 {
		burst := max(opts.RateBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(requestID)

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	limited := s.rateLimit
	e.POST("/v1/encode", s.handleEncode, limited)
	e.POST("/v1/decode", s.handleDecode, limited)

	if s.opts.Archive == nil {
		return
	}
	e.POST("/v1/activities", s.handleCreateActivity, limited)
	e.GET("/v1/activities", s.handleListActivities)
	e.GET("/v1/activities/:id", s.handleGetActivity)
	e.GET("/v1/activities/:id/decoded", s.handleGetDecoded, limited)
	e.DELETE("/v1/activities/:id", s.handleDeleteActivity)
}

func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(HeaderRequestID, id)
		return next(c)
	}
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.rateLimited.Inc()
			return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many requests", "", "")
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Resolve().Version,
		"time":    s.clock().UTC(),
	})
}
