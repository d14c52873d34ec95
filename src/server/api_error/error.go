package api_error

import (
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

type JSONAPIError struct {
	Code         string `json:"code"`
	Msg          string `json:"msg"`
	ErrorDetails string `json:"error_details,omitempty"`
}

// FromError hides the internal error chain from production clients,
// it names file paths and tool output.
func FromError(err *api.Error, environment env.Environment) JSONAPIError {
	jsonErr := JSONAPIError{
		Code: string(err.ErrorCode),
		Msg:  err.UserMessage,
	}

	if environment != env.Production && err.InternalError != nil {
		jsonErr.ErrorDetails = err.Error()
	}

	return jsonErr
}
