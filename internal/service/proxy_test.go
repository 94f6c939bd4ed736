package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"devgate/internal/client"
	"devgate/internal/config"
	"devgate/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxy(t *testing.T, backendURL string) *ProxyService {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL:         backendURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	logger := discardLogger()
	svc, err := NewProxyService(client.NewBackendClient(cfg, logger, nil), cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	return svc
}

func TestFilterRequestHeaders(t *testing.T) {
	s := &ProxyService{}
	src := http.Header{
		"Host":            {"localhost:8000"},
		"Content-Length":  {"42"},
		"Content-Type":    {"application/json"},
		"Accept":          {"application/json"},
		"Authorization":   {"Bearer token"},
		"Cookie":          {"session=abc"},
		"X-Custom-Header": {"kept"},
	}

	dst := s.filterRequestHeaders(src)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Host skipped", "Host", 0},
		{"Content-Length skipped", "Content-Length", 0},
		{"Content-Type forwarded", "Content-Type", 1},
		{"Accept forwarded", "Accept", 1},
		{"Authorization forwarded", "Authorization", 1},
		{"Cookie forwarded", "Cookie", 1},
		{"X-Custom-Header forwarded", "X-Custom-Header", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}
}

func TestFilterResponseHeaders(t *testing.T) {
	s := &ProxyService{}
	src := http.Header{
		"Content-Type":                  {"application/json"},
		"Content-Length":                {"42"},
		"Transfer-Encoding":             {"chunked"},
		"Connection":                    {"keep-alive"},
		"Access-Control-Allow-Origin":   {"http://backend.localhost"},
		"Access-Control-Expose-Headers": {"X-Total-Count"},
		"Set-Cookie":                    {"session=abc"},
		"X-Powered-By":                  {"PHP/8.2"},
		"Etag":                          {`"abc123"`},
	}

	dst := s.filterResponseHeaders(src)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Content-Type relayed", "Content-Type", 1},
		{"Content-Length relayed", "Content-Length", 1},
		{"Transfer-Encoding dropped", "Transfer-Encoding", 0},
		{"Connection dropped", "Connection", 0},
		{"Access-Control-Allow-Origin dropped", "Access-Control-Allow-Origin", 0},
		{"Access-Control-Expose-Headers dropped", "Access-Control-Expose-Headers", 0},
		{"Set-Cookie relayed", "Set-Cookie", 1},
		{"X-Powered-By relayed", "X-Powered-By", 1},
		{"Etag relayed", "Etag", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}
}

func TestBuildBackendURL(t *testing.T) {
	svc := newTestProxy(t, "http://127.0.0.1:8080")

	tests := []struct {
		name string
		pr   model.ProxyRequest
		want string
	}{
		{
			name: "plain path",
			pr:   model.ProxyRequest{Path: "/api/cars"},
			want: "http://127.0.0.1:8080/api/cars",
		},
		{
			name: "query carried verbatim",
			pr:   model.ProxyRequest{Path: "/api/cars", RawQuery: "page=2&sort=asc"},
			want: "http://127.0.0.1:8080/api/cars?page=2&sort=asc",
		},
		{
			name: "encoded query not re-encoded",
			pr:   model.ProxyRequest{Path: "/api/search", RawQuery: "q=a%2Fb&flag"},
			want: "http://127.0.0.1:8080/api/search?q=a%2Fb&flag",
		},
		{
			name: "encoded path segment preserved",
			pr:   model.ProxyRequest{Path: "/api/a b", RawPath: "/api/a%20b"},
			want: "http://127.0.0.1:8080/api/a%20b",
		},
		{
			name: "root path",
			pr:   model.ProxyRequest{Path: "/"},
			want: "http://127.0.0.1:8080/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.buildBackendURL(&tt.pr)
			if got != tt.want {
				t.Errorf("buildBackendURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForward_HappyPath(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/cars" {
			t.Errorf("path = %q, want /api/cars", r.URL.Path)
		}
		if got := r.Header.Get("X-Custom-Header"); got != "kept" {
			t.Errorf("X-Custom-Header = %q, want %q", got, "kept")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"make":"datsun"}` {
			t.Errorf("body = %q, want %q", string(body), `{"make":"datsun"}`)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer backend.Close()

	svc := newTestProxy(t, backend.URL)

	body := `{"make":"datsun"}`
	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodPost,
		Path:   "/api/cars",
		Header: http.Header{
			"Content-Type":    {"application/json"},
			"X-Custom-Header": {"kept"},
			"Authorization":   {"Bearer token"},
		},
		Body:          strings.NewReader(body),
		ContentLength: int64(len(body)),
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != `{"id":7}` {
		t.Errorf("body = %q, want %q", string(got), `{"id":7}`)
	}
}

func TestForward_QueryReachesBackendVerbatim(t *testing.T) {
	const rawQuery = "q=a%2Fb&page=2&flag"

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != rawQuery {
			t.Errorf("RawQuery = %q, want %q", r.URL.RawQuery, rawQuery)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	svc := newTestProxy(t, backend.URL)

	pr := &model.ProxyRequest{
		Ctx:      context.Background(),
		Method:   http.MethodGet,
		Path:     "/api/search",
		RawQuery: rawQuery,
		Header:   http.Header{},
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	_ = resp.Body.Close()
}

func TestForward_StripsBackendCORSButKeepsCookies(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://backend.localhost")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("Set-Cookie", "session=abc")
		w.Header().Set("X-Backend-Debug", "1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	svc := newTestProxy(t, backend.URL)

	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodGet,
		Path:   "/api/cars",
		Header: http.Header{},
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin should be dropped, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Access-Control-Allow-Methods should be dropped, got %q", got)
	}
	if got := resp.Header.Get("Set-Cookie"); got != "session=abc" {
		t.Errorf("Set-Cookie = %q, want %q", got, "session=abc")
	}
	if got := resp.Header.Get("X-Backend-Debug"); got != "1" {
		t.Errorf("X-Backend-Debug = %q, want %q", got, "1")
	}
}

func TestForward_BackendErrorStatusRelayed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"bad model year"}`))
	}))
	defer backend.Close()

	svc := newTestProxy(t, backend.URL)

	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodPost,
		Path:   "/api/cars",
		Header: http.Header{},
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v; backend HTTP errors are not transport errors", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"bad model year"}` {
		t.Errorf("body = %q, want backend error body", string(body))
	}
}

func TestForward_BackendDown(t *testing.T) {
	svc := newTestProxy(t, "http://127.0.0.1:1")

	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodGet,
		Path:   "/api/cars",
		Header: http.Header{},
	}

	_, err := svc.Forward(pr)
	if err == nil {
		t.Fatal("Forward() expected error for unreachable backend, got nil")
	}
}
