package ffprobe

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Inspector
type Inspector interface {
	Inspect(ctx context.Context, path string) (Result, error)
}

var _ Inspector = Prober{}

type Prober struct {
	binPath  string
	executor executor.Executor
}

func NewProber(binPath string, executor executor.Executor) Prober {
	binPath = strings.TrimSpace(binPath)
	if binPath == "" {
		binPath = "ffprobe"
	}

	return Prober{
		binPath:  binPath,
		executor: executor,
	}
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func (p Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, cerr.Error("ffprobe inspect: empty path")
	}

	errctx := cerr.Field("path", path)

	cmd := p.executor.Command(ctx, p.binPath, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, errctx.Field("ffprobe_output", strings.TrimSpace(string(output))).
			Wrap(err).Error("Failed to run ffprobe")
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, errctx.Wrap(err).Error("Failed to parse ffprobe output")
	}

	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
// Cover art attached to audio files is reported as mjpeg/png video and is not counted.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		if isCoverArt(stream.CodecName) {
			continue
		}
		count++
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

func isCoverArt(codec string) bool {
	switch strings.ToLower(codec) {
	case "mjpeg", "png", "bmp":
		return true
	default:
		return false
	}
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
