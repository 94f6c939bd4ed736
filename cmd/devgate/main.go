package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"devgate/internal/app"
	"devgate/internal/client"
	"devgate/internal/config"
	"devgate/internal/handler"
	"devgate/internal/metrics"
	"devgate/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// The gateway forwards reads and writes, so the CORS middleware advertises
// the full method set.
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("devgate"),
		kong.Description("Local development gateway: API reverse proxy plus static file serving."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			app.NewLogger,
			metrics.New,
			newEcho,
			client.NewBackendClient,
			service.NewProxyService,
			service.NewStaticService,
			handler.NewProxyHandler,
			handler.NewStaticHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, app.StartServer),
	).Run()
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	return app.NewEcho(cfg, logger, m, corsMethods, cfg.Static.Prefix)
}
