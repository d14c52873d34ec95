package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/events"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/export"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/separator"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/stage"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/transcode"
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/errors/mark"
)

// Choices offered to callers, first entry of each is the default.
var (
	OutputKinds = []string{string(media.Audio), string(media.Video)}
	Qualities   = []string{string(separator.QualityBalanced), string(separator.QualityFast), string(separator.QualityMaximum)}
)

type Upload struct {
	Name    string
	Content io.Reader
}

type Request struct {
	// RequestID is generated when empty.
	RequestID string
	URL       string
	Upload    *Upload
	// OutputKind is "audio" or "video", empty means audio.
	OutputKind string
	// Quality is "fast", "balanced" or "maximum", empty means balanced.
	Quality string
}

type Result struct {
	RequestID    string   `json:"request_id"`
	OutputKind   string   `json:"output_kind"`
	ArtifactName string   `json:"artifact_name"`
	ArtifactURL  string   `json:"artifact_url"`
	Progress     []string `json:"progress"`
	// FailedStage is set only when the run failed.
	FailedStage string `json:"failed_stage,omitempty"`
}

// ProgressFunc receives a human readable message whenever a stage starts.
type ProgressFunc func(message string)

type Pipeline struct {
	janitor    janitor.Janitor
	resolver   input.Resolver
	transcoder transcode.Transcoder
	separator  separator.Separator
	exporter   export.Exporter
	store      outputs.Store
	notifier   events.Notifier
	timeout    time.Duration
}

type Stages struct {
	Janitor    janitor.Janitor
	Resolver   input.Resolver
	Transcoder transcode.Transcoder
	Separator  separator.Separator
	Exporter   export.Exporter
	Store      outputs.Store
	Notifier   events.Notifier
	// Timeout bounds one run, zero leaves it to the caller's context.
	Timeout time.Duration
}

func NewPipeline(stages Stages) Pipeline {
	notifier := stages.Notifier
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}

	return Pipeline{
		janitor:    stages.Janitor,
		resolver:   stages.Resolver,
		transcoder: stages.Transcoder,
		separator:  stages.Separator,
		exporter:   stages.Exporter,
		store:      stages.Store,
		notifier:   notifier,
		timeout:    stages.Timeout,
	}
}

type parsedRequest struct {
	requestID  string
	source     input.Source
	outputKind media.Kind
	quality    separator.Quality
}

func parseRequest(request Request) (parsedRequest, error) {
	requestID := strings.TrimSpace(request.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	errctx := cerr.Field("request_id", requestID)

	outputKind := media.Audio
	if strings.TrimSpace(request.OutputKind) != "" {
		kind, err := media.ParseKind(request.OutputKind)
		if err != nil {
			return parsedRequest{requestID: requestID}, mark.Wrap(errctx.Wrap(err).Error("Bad output kind"), stage.InputMark, "Invalid request")
		}
		outputKind = kind
	}

	quality, err := separator.ParseQuality(request.Quality)
	if err != nil {
		return parsedRequest{requestID: requestID}, mark.Wrap(errctx.Wrap(err).Error("Bad quality preset"), stage.InputMark, "Invalid request")
	}

	source := input.Source{URL: request.URL}
	if request.Upload != nil {
		source.Upload = &input.Upload{
			Name:    request.Upload.Name,
			Content: request.Upload.Content,
		}
	}

	if err := source.Validate(); err != nil {
		return parsedRequest{requestID: requestID}, errctx.Wrap(err).Error("Nothing to process")
	}

	return parsedRequest{
		requestID:  requestID,
		source:     source,
		outputKind: outputKind,
		quality:    quality,
	}, nil
}

// Run executes fetch, transcode, separation and export strictly in order.
// Every temporary file of the run is removed before Run returns, whatever the outcome.
func (p Pipeline) Run(ctx context.Context, request Request, progress ProgressFunc) (Result, *api.Error) {
	result := Result{}
	report := func(message string) {
		result.Progress = append(result.Progress, message)
		if progress != nil {
			progress(message)
		}
	}

	parsed, err := parseRequest(request)
	result.RequestID = parsed.requestID
	if err != nil {
		return p.fail(ctx, result, err, stage.Input)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger := log.WithFields(log.Fields{
		"request_id":  parsed.requestID,
		"output_kind": parsed.outputKind,
		"quality":     parsed.quality,
	})

	scope, err := p.janitor.NewScope(parsed.requestID)
	if err != nil {
		return p.fail(ctx, result, cerr.Wrap(err).Error("Failed to create request scope"), stage.None)
	}
	defer scope.Close()

	fetchStage := stage.Input
	if strings.TrimSpace(request.URL) != "" {
		fetchStage = stage.Fetch
		report("Fetching media from URL")
	} else {
		report("Storing uploaded file")
	}

	source, err := p.resolver.Resolve(ctx, scope, parsed.source)
	if err != nil {
		return p.fail(ctx, result, cerr.Wrap(err).Error("Failed to resolve input"), fetchStage)
	}

	logger = logger.WithField("source_kind", source.Kind)
	logger.Info("Input resolved")

	report("Converting audio")
	canonical, err := p.transcoder.ToCanonical(ctx, source, scope.Root())
	if err != nil {
		return p.fail(ctx, result, mark.Wrap(err, stage.TranscodeMark, "Failed to transcode input"), stage.Transcode)
	}

	report("Separating vocals")
	vocals, err := p.separator.IsolateVocals(ctx, scope, canonical, parsed.quality)
	if err != nil {
		return p.fail(ctx, result, mark.Wrap(err, stage.InferenceMark, "Failed to isolate vocals"), stage.Inference)
	}

	report("Exporting result")
	exported, err := p.exporter.Export(ctx, scope, vocals, source, parsed.outputKind)
	if err != nil {
		return p.fail(ctx, result, mark.Wrap(err, stage.ExportMark, "Failed to export vocals"), stage.Export)
	}

	artifact, err := p.store.Save(ctx, exported.Path)
	if err != nil {
		return p.fail(ctx, result, mark.Wrap(err, stage.ExportMark, "Failed to save exported vocals"), stage.Export)
	}

	result.OutputKind = string(exported.Kind)
	result.ArtifactName = artifact.Name
	result.ArtifactURL = artifact.URL
	report("Done")

	logger.WithField("artifact_url", artifact.URL).Info("Vocals isolated")

	p.notifier.Notify(context.WithoutCancel(ctx), events.Event{
		Type:        events.VocalsIsolated,
		RequestID:   result.RequestID,
		OutputKind:  result.OutputKind,
		ArtifactURL: result.ArtifactURL,
	})

	return result, nil
}

func (p Pipeline) fail(ctx context.Context, result Result, err error, fallback stage.Stage) (Result, *api.Error) {
	apiErr, failed := commitError(err, fallback)
	result.FailedStage = string(failed)

	cerr.Log(cerr.Fields(cerr.F{
		"request_id": result.RequestID,
		"stage":      failed,
	}).Wrap(err).Error("Isolation request failed"))

	p.notifier.Notify(context.WithoutCancel(ctx), events.Event{
		Type:      events.IsolationFailed,
		RequestID: result.RequestID,
		Stage:     string(failed),
		ErrorCode: string(apiErr.ErrorCode),
	})

	return result, apiErr
}
