package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	isolatorapp "github.com/veedubyou/vocal-isolator/src/isolator/application"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
	"github.com/veedubyou/vocal-isolator/src/server/application"
	"github.com/veedubyou/vocal-isolator/src/shared/config"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/logging"
)

type rootFlags struct {
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "vocal-isolator",
		Short:        "Isolate the vocals of a song or video",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("CONFIG_PATH"), "optional YAML config file")

	root.AddCommand(
		newServeCommand(flags),
		newIsolateCommand(flags),
		newCleanCommand(flags),
	)

	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	logging.Setup(cfg.Env(), cfg.LogLevel)
	return cfg, nil
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP form and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			return application.Run(cmd.Context(), cfg)
		},
	}
}

type isolateFlags struct {
	url     string
	file    string
	output  string
	quality string
}

func newIsolateCommand(flags *rootFlags) *cobra.Command {
	isolate := isolateFlags{}

	cmd := &cobra.Command{
		Use:   "isolate",
		Short: "Isolate vocals from one URL or file and print where the result was saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			request := pipeline.Request{
				URL:        isolate.url,
				OutputKind: isolate.output,
				Quality:    isolate.quality,
			}

			if isolate.file != "" {
				file, err := os.Open(isolate.file)
				if err != nil {
					return errors.Wrap(err, "Failed to open input file")
				}
				defer file.Close()

				request.Upload = &pipeline.Upload{
					Name:    filepath.Base(isolate.file),
					Content: file,
				}
			}

			app := isolatorapp.NewApp(cmd.Context(), cfg)
			defer app.Close()

			out := cmd.OutOrStdout()
			result, apiErr := app.Pipeline.Run(cmd.Context(), request, func(message string) {
				fmt.Fprintln(cmd.ErrOrStderr(), message)
			})
			if apiErr != nil {
				return errors.Wrapf(apiErr, "%s (%s)", apiErr.UserMessage, apiErr.ErrorCode)
			}

			fmt.Fprintln(out, result.ArtifactURL)
			if app.LocalOutputs != nil {
				fmt.Fprintln(out, filepath.Join(app.LocalOutputs.Dir(), result.ArtifactName))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&isolate.url, "url", "", "page or media URL to fetch")
	cmd.Flags().StringVar(&isolate.file, "file", "", "local audio or video file")
	cmd.Flags().StringVar(&isolate.output, "output", pipeline.OutputKinds[0], "audio or video")
	cmd.Flags().StringVar(&isolate.quality, "quality", pipeline.Qualities[0], "fast, balanced or maximum")
	cmd.MarkFlagsMutuallyExclusive("url", "file")

	return cmd
}

func newCleanCommand(flags *rootFlags) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned request scopes and expired local outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.Workspace.StaleAfter
			}

			app := isolatorapp.NewApp(cmd.Context(), cfg)
			defer app.Close()

			result := app.CleanStale(olderThan)
			for _, removed := range result.Removed {
				fmt.Fprintln(cmd.OutOrStdout(), removed)
			}

			if len(result.Errors) > 0 {
				return errors.Newf("Failed to remove %d stale scopes", len(result.Errors))
			}

			if app.LocalOutputs != nil {
				pruned, err := app.LocalOutputs.Prune(cmd.Context())
				if err != nil {
					return err
				}

				for _, name := range pruned {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of a scope to remove")
	return cmd
}
