package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	isolatorapp "github.com/veedubyou/vocal-isolator/src/isolator/application"
	"github.com/veedubyou/vocal-isolator/src/server/internal/isolate/gateway"
	"github.com/veedubyou/vocal-isolator/src/server/internal/page"
	"github.com/veedubyou/vocal-isolator/src/shared/config"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

type HTTPMethod string

const (
	GET  HTTPMethod = "GET"
	POST HTTPMethod = "POST"
)

const isolatePath = "/isolate"

type App struct {
	echo *echo.Echo
	port string
}

type Config struct {
	Server      config.Server
	Environment env.Environment
}

func NewApp(cfg Config, isolator *isolatorapp.App) App {
	e := echo.New()
	e.HideBanner = true
	e.Renderer = page.NewRenderer()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	if cfg.Server.Log {
		e.Use(middleware.Logger())
	}

	corsMiddleware := makeCorsMiddleware(cfg)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc, middlewares ...echo.MiddlewareFunc) {
		middlewares = append([]echo.MiddlewareFunc{corsMiddleware}, middlewares...)

		e.OPTIONS(path, handlerFunc, middlewares...)

		switch method {
		case GET:
			e.GET(path, handlerFunc, middlewares...)
		case POST:
			e.POST(path, handlerFunc, middlewares...)
		default:
			panic("unhandled http method!")
		}
	}

	isolateGateway := makeIsolateGateway(cfg, isolator)

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// form page
	handleRoute(GET, "/", func(c echo.Context) error {
		return c.Render(http.StatusOK, page.IndexName, page.NewIndexData(isolatePath))
	})

	// isolation routes
	handleRoute(POST, isolatePath, isolateGateway.Isolate, makeBodyLimitMiddleware(cfg))
	handleRoute(GET, "/outputs/:name", func(c echo.Context) error {
		name := c.Param("name")
		return isolateGateway.ServeArtifact(c, name)
	})

	return App{
		echo: e,
		port: cfg.Server.Port,
	}
}

func (a *App) Handler() http.Handler {
	return a.echo
}

func (a *App) Start() error {
	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

// Stop lets in-flight requests finish until ctx expires.
func (a *App) Stop(ctx context.Context) error {
	err := a.echo.Shutdown(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func makeIsolateGateway(cfg Config, isolator *isolatorapp.App) isolategateway.Gateway {
	var artifacts isolategateway.ArtifactOpener
	if isolator.LocalOutputs != nil {
		artifacts = isolator.LocalOutputs
	}

	return isolategateway.NewGateway(isolator.Pipeline, artifacts, cfg.Environment)
}

func makeCorsMiddleware(cfg Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.CORSAllowedOrigins,
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}

func makeBodyLimitMiddleware(cfg Config) echo.MiddlewareFunc {
	return middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxUploadMB))
}
