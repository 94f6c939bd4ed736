package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"devgate/internal/config"
)

// writeMethods are the proxied methods that may carry a request body.
var writeMethods = []string{http.MethodPost, http.MethodPut, http.MethodDelete}

// proxyMethods are all inbound methods the gateway forwards to the backend.
var proxyMethods = append([]string{http.MethodGet}, writeMethods...)

// RegisterRoutes wires the gateway's routes onto the Echo instance. Route
// priority follows Echo's most-specific matching: reserved operational routes
// win over the static prefix, which wins over the proxy catch-all. A GET
// under the static prefix streams a file; the write methods under the same
// prefix still go to the backend.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, static *StaticHandler, health *HealthHandler, cfg *config.Config) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	e.GET(cfg.Static.Prefix+"*", static.Handle)
	e.Match(writeMethods, cfg.Static.Prefix+"*", proxy.Handle)

	e.Match(proxyMethods, "/*", proxy.Handle)
}

// RegisterStaticRoutes wires the standalone static server's routes: every
// GET streams a file from the root.
func RegisterStaticRoutes(e *echo.Echo, static *StaticHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/*", static.Handle)
}
