package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

var _ Downloader = YoutubeDLer{}

const outputTemplate = "source.%(ext)s"

type YoutubeDLerConfig struct {
	UserAgent string
	// SleepRequests is the pause in seconds between extractor requests, zero disables it.
	SleepRequests int
}

func NewYoutubeDLer(youtubedlBinPath string, config YoutubeDLerConfig, commandExecutor executor.Executor) YoutubeDLer {
	return YoutubeDLer{
		youtubedlBinPath: youtubedlBinPath,
		config:           config,
		commandExecutor:  commandExecutor,
	}
}

type YoutubeDLer struct {
	youtubedlBinPath string
	config           YoutubeDLerConfig
	commandExecutor  executor.Executor
}

// Download is attempted exactly once. Retrying is left to the caller.
func (y YoutubeDLer) Download(ctx context.Context, sourceURL string, destDir string, options Options) (string, error) {
	logger := log.WithFields(log.Fields{
		"source_url": sourceURL,
		"dest_dir":   destDir,
		"cookies":    options.CookieFile != "",
	})

	args := y.args(sourceURL, destDir, options)
	errctx := cerr.Field("youtubedl_bin_path", y.youtubedlBinPath).Field("source_url", sourceURL)

	logger.Info("Running yt-dlp")

	cmd := y.commandExecutor.Command(ctx, y.youtubedlBinPath, args...)
	cmd.SetDir(destDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errctx.Field("error_msg", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Failed to run yt-dlp: %s", string(output)))
	}

	logger.Debug(string(output))

	path, err := singleFile(destDir)
	if err != nil {
		return "", errctx.Wrap(err).Error("yt-dlp finished without a usable file")
	}

	logger.WithField("path", path).Info("Finished yt-dlp")
	return path, nil
}

func (y YoutubeDLer) args(sourceURL string, destDir string, options Options) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-check-certificates",
		"--no-playlist",
		"--user-agent", y.config.UserAgent,
	}

	if y.config.SleepRequests > 0 {
		args = append(args, "--sleep-requests", strconv.Itoa(y.config.SleepRequests))
	}

	if options.CookieFile != "" {
		args = append(args, "--cookies", options.CookieFile)
	}

	args = append(args, "-o", filepath.Join(destDir, outputTemplate), sourceURL)
	return args
}
