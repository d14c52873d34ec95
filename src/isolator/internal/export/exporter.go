package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

const (
	exportDirName = "export"
	AudioBitrate  = "192k"
)

type Exporter struct {
	ffmpegBinPath string
	inspector     ffprobe.Inspector
	executor      executor.Executor
}

func NewExporter(ffmpegBinPath string, inspector ffprobe.Inspector, executor executor.Executor) Exporter {
	return Exporter{
		ffmpegBinPath: ffmpegBinPath,
		inspector:     inspector,
		executor:      executor,
	}
}

// Export encodes the isolated vocals. A video is produced only when one was
// requested and the source really carries a picture, anything else becomes MP3.
func (e Exporter) Export(ctx context.Context, scope *janitor.Scope, vocals media.File, source media.File, requested media.Kind) (media.File, error) {
	exportDir, err := scope.Dir(exportDirName)
	if err != nil {
		return media.File{}, cerr.Wrap(err).Error("Failed to create export dir")
	}

	kind := e.resolveKind(ctx, source, requested)

	var (
		outPath string
		args    []string
	)

	switch kind {
	case media.Video:
		outPath = filepath.Join(exportDir, "vocals.mp4")
		args = VideoArgs(source.Path, vocals.Path, outPath)
	default:
		outPath = filepath.Join(exportDir, "vocals.mp3")
		args = AudioArgs(vocals.Path, outPath)
	}

	logger := log.WithFields(log.Fields{
		"request_id": scope.RequestID(),
		"kind":       kind,
		"out_path":   outPath,
	})

	errctx := cerr.Field("ffmpeg_bin_path", e.ffmpegBinPath).Field("ffmpeg_args", args)

	logger.Info("Exporting vocals")

	cmd := e.executor.Command(ctx, e.ffmpegBinPath, args...)
	cmd.SetDir(exportDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return media.File{}, errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while exporting: %s", string(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished export")

	return media.File{
		Path:     outPath,
		Kind:     kind,
		Duration: vocals.Duration,
	}, nil
}

func (e Exporter) resolveKind(ctx context.Context, source media.File, requested media.Kind) media.Kind {
	if requested != media.Video || source.Kind != media.Video {
		return media.Audio
	}

	result, err := e.inspector.Inspect(ctx, source.Path)
	if err != nil {
		log.WithError(err).WithField("source_path", source.Path).
			Warn("Failed to probe source, assuming it has video")
		return media.Video
	}

	if result.VideoStreamCount() == 0 {
		log.WithField("source_path", source.Path).Info("Source has no video stream, exporting audio")
		return media.Audio
	}

	return media.Video
}

func AudioArgs(vocalsPath string, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", vocalsPath,
		"-vn",
		"-ac", "2",
		"-ar", "44100",
		"-c:a", "libmp3lame",
		"-b:a", AudioBitrate,
		outPath,
	}
}

// VideoArgs keeps the source picture untouched and trims to the shorter stream.
func VideoArgs(sourcePath string, vocalsPath string, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
		"-i", vocalsPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", AudioBitrate,
		"-shortest",
		outPath,
	}
}
