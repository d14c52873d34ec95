package isolateerrors

import (
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
)

const (
	BadFormDataCode      = api.ErrorCode("bad_form_data")
	ArtifactNotFoundCode = api.ErrorCode("artifact_not_found")
)
