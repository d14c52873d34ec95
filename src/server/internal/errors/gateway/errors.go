package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
	"github.com/veedubyou/vocal-isolator/src/server/api_error"
	"github.com/veedubyou/vocal-isolator/src/server/internal/isolate/errors"
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:               http.StatusInternalServerError,
	pipeline.InvalidInputCode:          http.StatusBadRequest,
	pipeline.FetchFailedCode:           http.StatusBadGateway,
	pipeline.TranscodeFailedCode:       http.StatusInternalServerError,
	pipeline.InferenceFailedCode:       http.StatusInternalServerError,
	pipeline.ExportFailedCode:          http.StatusInternalServerError,
	isolateerrors.BadFormDataCode:      http.StatusBadRequest,
	isolateerrors.ArtifactNotFoundCode: http.StatusNotFound,
}

func StatusCode(code api.ErrorCode) int {
	statusCode, ok := httpStatusCodeMap[code]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", code)
		panic(msg)
	}

	return statusCode
}

func ErrorResponse(c echo.Context, err *api.Error, environment env.Environment) error {
	return c.JSON(StatusCode(err.ErrorCode), api_error.FromError(err, environment))
}
