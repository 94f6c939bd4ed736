// Package model defines the request-scoped types passed between the HTTP
// handlers and the forwarding/streaming services. Nothing here outlives a
// single request.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded to the backend.
// Path, RawPath and RawQuery carry the inbound request target verbatim so the
// backend sees exactly what the client sent.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawPath       string
	RawQuery      string
	Header        http.Header
	Body          io.Reader
	ContentLength int64
}

// ProxyResponse represents the backend response to be streamed back.
// The caller owns Body and must close it.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// StaticFile is an opened static asset ready to be streamed. Size is the byte
// size at open time and backs the Content-Length header. The caller owns Body
// and must close it.
type StaticFile struct {
	ContentType string
	Size        int64
	Body        io.ReadCloser
}
