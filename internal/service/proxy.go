// Package service implements the forwarding and static file logic behind the
// HTTP handlers.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"devgate/internal/client"
	"devgate/internal/config"
	"devgate/internal/model"
)

// skippedRequestHeaders are the inbound headers never forwarded to the
// backend. Host is replaced by the backend origin's own host and
// Content-Length is re-derived from the actual body framing.
var skippedRequestHeaders = map[string]bool{
	"Host":           true,
	"Content-Length": true,
}

// droppedResponseHeaders are the backend response headers never relayed to
// the client. Transfer-Encoding and Connection describe the backend hop, not
// ours; the Go server frames its own response.
var droppedResponseHeaders = map[string]bool{
	"Transfer-Encoding": true,
	"Connection":        true,
}

// corsHeaderPrefix matches any CORS header the backend may emit. The gateway
// owns the CORS contract, so backend copies are dropped to keep each header
// appearing exactly once.
const corsHeaderPrefix = "access-control-"

// ProxyService forwards client requests to the fixed backend origin.
type ProxyService struct {
	client  *client.BackendClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewProxyService creates a ProxyService targeting the configured backend.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}

	return &ProxyService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "proxy_service"),
		baseURL: u,
	}, nil
}

// Forward sends a ProxyRequest to the backend and returns the response with
// hop-scoped and CORS headers removed. The caller is responsible for closing
// the response body.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	backendURL := s.buildBackendURL(pr)
	header := s.filterRequestHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, backendURL, header, pr.Body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}

	resp.Header = s.filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildBackendURL joins the backend origin with the inbound request target.
// Path, escaped path and query are carried verbatim so the backend sees
// exactly the bytes the client sent; nothing is re-encoded.
func (s *ProxyService) buildBackendURL(pr *model.ProxyRequest) string {
	u := *s.baseURL
	u.Path = pr.Path
	u.RawPath = pr.RawPath
	u.RawQuery = pr.RawQuery
	return u.String()
}

// filterRequestHeaders copies every inbound header except the skipped ones.
// Custom and auth headers flow through untouched.
func (s *ProxyService) filterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		canonical := http.CanonicalHeaderKey(key)
		if skippedRequestHeaders[canonical] {
			continue
		}
		dst[canonical] = vals
	}
	return dst
}

// filterResponseHeaders copies every backend header except the hop-scoped
// ones and anything CORS-related. Set-Cookie passes through untouched.
func (s *ProxyService) filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		canonical := http.CanonicalHeaderKey(key)
		if droppedResponseHeaders[canonical] {
			continue
		}
		if strings.HasPrefix(strings.ToLower(canonical), corsHeaderPrefix) {
			continue
		}
		dst[canonical] = vals
	}
	return dst
}
