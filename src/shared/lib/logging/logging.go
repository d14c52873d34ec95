package logging

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/json"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

// Setup installs the process wide apex handler for the given environment.
func Setup(environment env.Environment, level string) {
	SetupWithWriter(environment, level, os.Stderr)
}

func SetupWithWriter(environment env.Environment, level string, w io.Writer) {
	switch environment {
	case env.Production:
		log.SetHandler(json.New(w))
	case env.Development:
		log.SetHandler(cli.New(w))
	default:
		log.SetHandler(discard.New())
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}

	log.SetLevel(parsed)
}
