package application

import (
	"context"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/events"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/export"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input/download"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/secrets"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/separator"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/transcode"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
	"github.com/veedubyou/vocal-isolator/src/shared/config"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/rabbitmq"
	"google.golang.org/api/option"
)

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}

	return t
}

// App holds one fully wired pipeline plus the pieces the outer surfaces need.
type App struct {
	Pipeline pipeline.Pipeline
	Janitor  janitor.Janitor
	// LocalOutputs is nil unless artifacts are kept on local disk.
	LocalOutputs *outputs.LocalStore

	closers []func()
}

func NewApp(ctx context.Context, cfg config.Config) *App {
	commandExecutor := executor.BinaryFileExecutor{}

	app := &App{
		Janitor: newJanitor(cfg),
	}

	prober := ffprobe.NewProber(cfg.Tools.FFprobePath(), commandExecutor)
	ffmpegBinPath := cfg.Tools.FFmpegPath()

	store := app.newOutputStore(ctx, cfg)
	notifier := app.newNotifier(cfg)

	app.Pipeline = pipeline.NewPipeline(pipeline.Stages{
		Janitor:    app.Janitor,
		Resolver:   newResolver(cfg, commandExecutor),
		Transcoder: transcode.NewTranscoder(ffmpegBinPath, prober, commandExecutor),
		Separator:  newSeparator(cfg, commandExecutor),
		Exporter:   export.NewExporter(ffmpegBinPath, prober, commandExecutor),
		Store:      store,
		Notifier:   notifier,
		Timeout:    cfg.Workspace.RequestTimeout,
	})

	return app
}

// CleanStale clears scope dirs abandoned by an earlier process.
func (a *App) CleanStale(maxAge time.Duration) janitor.CleanStaleResult {
	result := a.Janitor.CleanStale(maxAge)
	for _, err := range result.Errors {
		cerr.Log(err)
	}

	if len(result.Removed) > 0 {
		log.WithField("count", len(result.Removed)).Info("Cleaned stale request scopes")
	}

	return result
}

func (a *App) Close() {
	for _, closer := range a.closers {
		closer()
	}
	a.closers = nil
}

func newJanitor(cfg config.Config) janitor.Janitor {
	return must(janitor.NewJanitor(cfg.Workspace.Dir))
}

func newSecretStore(cfg config.Config) secrets.Store {
	switch cfg.Secrets.Backend {
	case config.SecretsBackendAWS:
		return must(secrets.NewSecretsManagerStore(secrets.SecretsManagerConfig{
			Region:          cfg.Secrets.AWSRegion,
			AccessKeyID:     cfg.Secrets.AWSAccessKeyID,
			SecretAccessKey: cfg.Secrets.AWSSecretAccessKey,
			Prefix:          cfg.Secrets.AWSSecretPrefix,
		}))

	case config.SecretsBackendEnv:
		return secrets.NewEnvStore(cfg.Secrets.EnvPrefix)

	default:
		panic("Unrecognized secrets backend")
	}
}

func newResolver(cfg config.Config, commandExecutor executor.Executor) input.Resolver {
	youtubedler := download.NewYoutubeDLer(cfg.Tools.YtDLPPath(), download.YoutubeDLerConfig{
		UserAgent:     cfg.Fetch.UserAgent,
		SleepRequests: cfg.Fetch.SleepRequests,
	}, commandExecutor)
	genericdler := download.NewGenericDLer(&http.Client{}, cfg.Fetch.UserAgent)

	selectdler := download.NewSelectDLer(youtubedler, genericdler)

	return input.NewResolver(selectdler, newSecretStore(cfg), cfg.Fetch.CookieSecretName)
}

func newSeparator(cfg config.Config, commandExecutor executor.Executor) separator.Separator {
	loader := separator.NewDemucsLoader(separator.DemucsLoaderConfig{
		DemucsBinPath:    cfg.Tools.DemucsPath(),
		NvidiaSMIBinPath: cfg.Tools.NvidiaSMIBinPath,
		ModelName:        cfg.Separator.Model,
		Device:           cfg.Separator.Device,
	}, commandExecutor)

	return separator.NewSeparator(
		separator.NewModelCache(loader),
		separator.DefaultQualityTable(),
		cfg.Separator.SegmentSeconds,
	)
}

func (a *App) newOutputStore(ctx context.Context, cfg config.Config) outputs.Store {
	switch cfg.Outputs.Backend {
	case config.OutputBackendGCS:
		return newGoogleStore(ctx, cfg.Outputs.GCS)

	case config.OutputBackendMinio:
		minioConfig := cfg.Outputs.Minio
		return must(outputs.NewMinioStore(ctx, outputs.MinioConfig{
			Endpoint:      minioConfig.Endpoint,
			AccessKey:     minioConfig.AccessKey,
			SecretKey:     minioConfig.SecretKey,
			Bucket:        minioConfig.Bucket,
			Region:        minioConfig.Region,
			UseSSL:        minioConfig.UseSSL,
			PresignExpiry: minioConfig.PresignExpiry,
		}))

	case config.OutputBackendLocal:
		localStore := must(outputs.NewLocalStore(cfg.Outputs.Dir, cfg.Outputs.PublicBaseURL, cfg.Outputs.MaxAge))
		a.LocalOutputs = &localStore
		return localStore

	default:
		panic("Unrecognized output backend")
	}
}

func newGoogleStore(ctx context.Context, gcsConfig config.GCS) outputs.GoogleStore {
	if gcsConfig.Endpoint != "" {
		// local fake GCS server
		return must(outputs.NewGoogleStore(ctx,
			gcsConfig.StorageHost,
			gcsConfig.Bucket,
			option.WithEndpoint(gcsConfig.Endpoint),
			option.WithAPIKey("fake_api_key"),
		))
	}

	var options []option.ClientOption
	if gcsConfig.CredentialsJSON != "" {
		options = append(options, option.WithCredentialsJSON([]byte(gcsConfig.CredentialsJSON)))
	}

	return must(outputs.NewGoogleStore(ctx, gcsConfig.StorageHost, gcsConfig.Bucket, options...))
}

// newNotifier never fails startup: without a reachable broker, outcomes simply aren't announced.
func (a *App) newNotifier(cfg config.Config) events.Notifier {
	if cfg.Events.RabbitMQURL == "" {
		return events.NoopNotifier{}
	}

	publisher, err := rabbitmq.NewQueuePublisher(cfg.Events.RabbitMQURL, cfg.Events.RabbitMQQueueName)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to RabbitMQ, outcome events are disabled")
		return events.NoopNotifier{}
	}

	a.closers = append(a.closers, publisher.Close)
	return events.NewQueueNotifier(publisher)
}
