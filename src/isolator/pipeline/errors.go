package pipeline

import (
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/stage"
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
)

const (
	InvalidInputCode    = api.ErrorCode("invalid_input")
	FetchFailedCode     = api.ErrorCode("fetch_failed")
	TranscodeFailedCode = api.ErrorCode("transcode_failed")
	InferenceFailedCode = api.ErrorCode("inference_failed")
	ExportFailedCode    = api.ErrorCode("export_failed")
)

type stageError struct {
	code        api.ErrorCode
	userMessage string
}

var stageErrorMap = map[stage.Stage]stageError{
	stage.Input: {
		code:        InvalidInputCode,
		userMessage: "Please provide a URL or upload an audio or video file",
	},
	stage.Fetch: {
		code:        FetchFailedCode,
		userMessage: "The media at that URL couldn't be fetched. Try again later or use a different source",
	},
	stage.Transcode: {
		code:        TranscodeFailedCode,
		userMessage: "The media couldn't be decoded. Please try a different file",
	},
	stage.Inference: {
		code:        InferenceFailedCode,
		userMessage: "Vocal separation failed. Please try again",
	},
	stage.Export: {
		code:        ExportFailedCode,
		userMessage: "The isolated vocals couldn't be exported. Please try again",
	},
}

// commitError converts a stage failure into the error handed back to callers.
// Errors carrying a stage mark keep it, anything else is attributed to fallback.
func commitError(err error, fallback stage.Stage) (*api.Error, stage.Stage) {
	failed := stage.Of(err)
	if failed == stage.None {
		failed = fallback
	}

	stageErr, ok := stageErrorMap[failed]
	if !ok {
		return api.CommitError(err, api.DefaultErrorCode, "Unknown error: Failed to isolate vocals"), failed
	}

	return api.CommitError(err, stageErr.code, stageErr.userMessage), failed
}
