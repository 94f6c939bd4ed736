package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"devgate/internal/config"
	"devgate/internal/metrics"
	"devgate/internal/service"
)

// streamChunkSize is the copy buffer size for static file streaming.
const streamChunkSize = 64 * 1024

// StaticHandler streams files resolved by the static service.
type StaticHandler struct {
	service      *service.StaticService
	cacheControl string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewStaticHandler creates a StaticHandler. The metrics parameter is
// optional; pass nil to disable streaming metrics.
func NewStaticHandler(svc *service.StaticService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *StaticHandler {
	return &StaticHandler{
		service:      svc,
		cacheControl: fmt.Sprintf("public, max-age=%d", cfg.Static.CacheMaxAge),
		logger:       logger.With("component", "static_handler"),
		metrics:      m,
	}
}

// Handle streams the file at the request path. Every failure to resolve or
// open collapses into the same 404 so responses never reveal what exists on
// disk.
func (h *StaticHandler) Handle(c echo.Context) error {
	file, err := h.service.Open(c.Request().URL.Path)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	}
	defer func() { _ = file.Body.Close() }()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, file.ContentType)
	header.Set(echo.HeaderContentLength, strconv.FormatInt(file.Size, 10))
	header.Set("Cache-Control", h.cacheControl)

	c.Response().WriteHeader(http.StatusOK)

	// Stream in fixed-size chunks. A mid-stream write error means the client
	// went away; the status line is already on the wire, so there is nothing
	// to send and nothing worth more than a debug line.
	buf := make([]byte, streamChunkSize)
	n, err := io.CopyBuffer(c.Response(), file.Body, buf)
	if h.metrics != nil {
		h.metrics.StaticFilesServed.Inc()
		h.metrics.StaticBytesStreamed.Add(float64(n))
	}
	if err != nil {
		h.logger.Debug("streaming static file",
			"err", err,
			"path", c.Request().URL.Path,
			"bytes_sent", n,
		)
	}

	return nil
}
