package isolategateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
	"github.com/veedubyou/vocal-isolator/src/server/internal/errors/gateway"
	"github.com/veedubyou/vocal-isolator/src/server/internal/isolate/errors"
	"github.com/veedubyou/vocal-isolator/src/server/internal/lib/request"
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

const uploadFieldName = "file"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Runner
type Runner interface {
	Run(ctx context.Context, request pipeline.Request, progress pipeline.ProgressFunc) (pipeline.Result, *api.Error)
}

//counterfeiter:generate . ArtifactOpener
type ArtifactOpener interface {
	Open(name string) (string, error)
}

type IsolateForm struct {
	URL        string `form:"url" json:"url"`
	OutputKind string `form:"output" json:"output"`
	Quality    string `form:"quality" json:"quality"`
}

type Gateway struct {
	runner      Runner
	artifacts   ArtifactOpener
	environment env.Environment
}

// NewGateway takes a nil artifacts opener when outputs live off-box.
func NewGateway(runner Runner, artifacts ArtifactOpener, environment env.Environment) Gateway {
	return Gateway{
		runner:      runner,
		artifacts:   artifacts,
		environment: environment,
	}
}

func (g Gateway) Isolate(c echo.Context) error {
	ctx := request.Context(c, g.environment)

	form := IsolateForm{}
	if err := c.Bind(&form); err != nil {
		err = errors.Wrap(err, "Failed to bind isolate form")
		apiErr := api.CommitError(err,
			isolateerrors.BadFormDataCode,
			"The form data received was malformed. Please try again")
		return gateway.ErrorResponse(c, apiErr, g.environment)
	}

	isolateRequest := pipeline.Request{
		RequestID:  request.ID(c),
		URL:        form.URL,
		OutputKind: form.OutputKind,
		Quality:    form.Quality,
	}

	upload, apiErr := g.upload(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr, g.environment)
	}

	if upload != nil {
		defer upload.close()
		isolateRequest.Upload = &upload.Upload
	}

	result, apiErr := g.runner.Run(ctx, isolateRequest, nil)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr, g.environment)
	}

	return c.JSON(http.StatusOK, result)
}

type openedUpload struct {
	pipeline.Upload
	close func()
}

func (g Gateway) upload(c echo.Context) (*openedUpload, *api.Error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}

	fileHeader, err := c.FormFile(uploadFieldName)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}

	if err != nil {
		err = errors.Wrap(err, "Failed to read uploaded file")
		return nil, api.CommitError(err,
			isolateerrors.BadFormDataCode,
			"The uploaded file couldn't be read. Please try again")
	}

	// browsers submit an empty part when the file input is left blank
	if fileHeader.Size == 0 && fileHeader.Filename == "" {
		return nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open uploaded file")
		return nil, api.CommitError(err,
			isolateerrors.BadFormDataCode,
			"The uploaded file couldn't be read. Please try again")
	}

	return &openedUpload{
		Upload: pipeline.Upload{
			Name:    fileHeader.Filename,
			Content: file,
		},
		close: func() { _ = file.Close() },
	}, nil
}

func (g Gateway) ServeArtifact(c echo.Context, name string) error {
	if g.artifacts == nil {
		err := errors.New("Artifacts are not served by this instance")
		return gateway.ErrorResponse(c, api.CommitError(err,
			isolateerrors.ArtifactNotFoundCode,
			"That file doesn't exist"), g.environment)
	}

	path, err := g.artifacts.Open(name)
	if err != nil {
		return gateway.ErrorResponse(c, api.CommitError(err,
			isolateerrors.ArtifactNotFoundCode,
			"That file doesn't exist or has expired"), g.environment)
	}

	return c.Attachment(path, name)
}
