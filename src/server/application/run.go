package application

import (
	"context"
	"time"

	"github.com/apex/log"
	isolatorapp "github.com/veedubyou/vocal-isolator/src/isolator/application"
	"github.com/veedubyou/vocal-isolator/src/shared/config"
)

const shutdownGracePeriod = 30 * time.Second

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	isolator := isolatorapp.NewApp(ctx, cfg)
	defer isolator.Close()

	isolator.CleanStale(cfg.Workspace.StaleAfter)

	app := NewApp(Config{
		Server:      cfg.Server,
		Environment: cfg.Env(),
	}, isolator)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()

		if err := app.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down cleanly")
		}
	}()

	log.WithField("port", cfg.Server.Port).Info("Starting server")
	return app.Start()
}
