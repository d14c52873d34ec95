package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/veedubyou/vocal-isolator/src/server/application"
	"github.com/veedubyou/vocal-isolator/src/shared/config"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logging.Setup(cfg.Env(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, cfg); err != nil {
		panic(err)
	}
}
