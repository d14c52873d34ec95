package request

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

// Context cancels external processes when the client goes away, except in
// development where a paused debugger shouldn't kill a long separation.
func Context(c echo.Context, environment env.Environment) context.Context {
	switch environment {
	case env.Production, env.Test:
		return c.Request().Context()

	case env.Development:
		return context.Background()

	default:
		panic("Unrecognized environment")
	}
}

// ID returns the id assigned by the request id middleware, empty when absent.
func ID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}

	return c.Request().Header.Get(echo.HeaderXRequestID)
}
