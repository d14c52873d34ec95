package stage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/domains"
)

type Stage string

const (
	None      Stage = ""
	Input     Stage = "input"
	Fetch     Stage = "fetch"
	Transcode Stage = "transcode"
	Inference Stage = "inference"
	Export    Stage = "export"
)

var (
	InputMark     = domains.New("input_error")
	FetchMark     = domains.New("fetch_error")
	TranscodeMark = domains.New("transcode_error")
	InferenceMark = domains.New("inference_error")
	ExportMark    = domains.New("export_error")
)

var markMap = map[Stage]error{
	Input:     InputMark,
	Fetch:     FetchMark,
	Transcode: TranscodeMark,
	Inference: InferenceMark,
	Export:    ExportMark,
}

func (s Stage) Mark() error {
	return markMap[s]
}

// Of finds the stage an error was marked with, None when unmarked.
func Of(err error) Stage {
	for _, s := range []Stage{Input, Fetch, Transcode, Inference, Export} {
		if errors.Is(err, markMap[s]) {
			return s
		}
	}

	return None
}
