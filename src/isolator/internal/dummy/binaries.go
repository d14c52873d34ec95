package dummy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
)

// FakeYtDLP writes content to the output template with ext filled in.
func FakeYtDLP(ext string, content []byte) Handler {
	return func(call Call) ([]byte, error) {
		template := call.Arg("-o")
		if template == "" {
			return []byte("missing -o"), ExitFailure
		}

		path := strings.ReplaceAll(template, "%(ext)s", ext)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, err
		}

		return []byte("[download] 100%"), nil
	}
}

// FakeFFmpeg writes a placeholder to the output path, which is always the last argument.
func FakeFFmpeg() Handler {
	return func(call Call) ([]byte, error) {
		out := call.LastArg()
		if out == "" {
			return []byte("no output"), ExitFailure
		}

		if err := os.WriteFile(out, []byte("encoded:"+filepath.Base(out)), 0o644); err != nil {
			return nil, err
		}

		return []byte("size=N/A"), nil
	}
}

func FakeFFprobe(result ffprobe.Result) Handler {
	return func(call Call) ([]byte, error) {
		return json.Marshal(result)
	}
}

// FakeDemucs writes one file per stem into <-o>/<-n>/, the way demucs lays out its output.
func FakeDemucs(stems ...string) Handler {
	return func(call Call) ([]byte, error) {
		model := call.Arg("-n")
		outDir := call.Arg("-o")
		if model == "" || outDir == "" {
			return []byte("bad arguments"), ExitFailure
		}

		stemDir := filepath.Join(outDir, model)
		if err := os.MkdirAll(stemDir, 0o755); err != nil {
			return nil, err
		}

		for _, stem := range stems {
			if err := os.WriteFile(filepath.Join(stemDir, stem+".wav"), []byte(stem), 0o644); err != nil {
				return nil, err
			}
		}

		return []byte("Separated tracks will be stored in " + stemDir), nil
	}
}

func Failing(output string) Handler {
	return func(call Call) ([]byte, error) {
		return []byte(output), errors.Wrap(ExitFailure, call.Name)
	}
}

func AudioProbe(duration string) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecName: "pcm_s16le", CodecType: "audio", SampleRate: "44100", Channels: 2},
		},
		Format: ffprobe.Format{NBStreams: 1, Duration: duration, FormatName: "wav"},
	}
}

func VideoProbe(duration string) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecName: "h264", CodecType: "video", Width: 1280, Height: 720},
			{Index: 1, CodecName: "aac", CodecType: "audio", SampleRate: "48000", Channels: 2},
		},
		Format: ffprobe.Format{NBStreams: 2, Duration: duration, FormatName: "mov,mp4,m4a,3gp,3g2,mj2"},
	}
}
