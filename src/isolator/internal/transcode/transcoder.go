package transcode

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

const (
	CanonicalFileName   = "canonical.wav"
	CanonicalSampleRate = 44100
	CanonicalChannels   = 2
	CanonicalCodec      = "pcm_s16le"
)

type Transcoder struct {
	ffmpegBinPath string
	inspector     ffprobe.Inspector
	executor      executor.Executor
}

func NewTranscoder(ffmpegBinPath string, inspector ffprobe.Inspector, executor executor.Executor) Transcoder {
	return Transcoder{
		ffmpegBinPath: ffmpegBinPath,
		inspector:     inspector,
		executor:      executor,
	}
}

// ToCanonical decodes any input into 16-bit PCM stereo WAV at 44.1kHz, dropping video.
func (t Transcoder) ToCanonical(ctx context.Context, source media.File, destDir string) (media.File, error) {
	destPath := filepath.Join(destDir, CanonicalFileName)

	logger := log.WithFields(log.Fields{
		"source_path": source.Path,
		"source_kind": source.Kind,
		"dest_path":   destPath,
	})

	args := CanonicalArgs(source.Path, destPath)
	errctx := cerr.Field("ffmpeg_bin_path", t.ffmpegBinPath).Field("ffmpeg_args", args)

	logger.Info("Transcoding to canonical wav")

	cmd := t.executor.Command(ctx, t.ffmpegBinPath, args...)
	cmd.SetDir(destDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return media.File{}, errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while transcoding: %s", string(output)))
	}

	logger.Debug(string(output))

	canonical := media.File{Path: destPath, Kind: media.Audio}

	// duration only feeds logging, an unreadable probe is not fatal
	result, err := t.inspector.Inspect(ctx, destPath)
	if err != nil {
		logger.WithError(err).Warn("Failed to probe canonical wav")
	} else {
		canonical.Duration = result.DurationSeconds()
	}

	logger.WithField("duration", canonical.Duration).Info("Finished transcoding")
	return canonical, nil
}

func CanonicalArgs(sourcePath string, destPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
		"-vn",
		"-ac", fmt.Sprint(CanonicalChannels),
		"-ar", fmt.Sprint(CanonicalSampleRate),
		"-c:a", CanonicalCodec,
		destPath,
	}
}
