package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"devgate/internal/app"
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

// The standalone static server is read-only.
var corsMethods = []string{
	http.MethodGet,
	http.MethodOptions,
}

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("devgate-static"),
		kong.Description("Standalone static file server with wildcard CORS."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.LoadStatic,
			app.NewLogger,
			metrics.New,
			newEcho,
			service.NewStaticService,
			handler.NewStaticHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterStaticRoutes, app.StartServer),
	).Run()
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	// Every path serves files here, so the whole URL space is labeled static.
	return app.NewEcho(cfg, logger, m, corsMethods, "/")
}
