package testing

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type PathParam struct {
	Name  string
	Value string
}

// PrepareEchoContext builds a context for calling a gateway directly,
// without routing, so path params have to be supplied by hand.
func PrepareEchoContext(request *http.Request, response http.ResponseWriter, params ...PathParam) echo.Context {
	e := echo.New()
	c := e.NewContext(request, response)

	if len(params) > 0 {
		names := make([]string, 0, len(params))
		values := make([]string, 0, len(params))
		for _, param := range params {
			names = append(names, param.Name)
			values = append(values, param.Value)
		}

		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	return c
}
