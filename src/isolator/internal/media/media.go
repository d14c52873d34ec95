package media

import (
	"path/filepath"
	"strings"

	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".aac":  {},
	".flac": {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".wma":  {},
	".aiff": {},
	".aif":  {},
	".alac": {},
}

// Classify decides by extension alone. Anything not known to be audio is
// treated as video, including files with no extension.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioExtensions[ext]; ok {
		return Audio
	}

	return Video
}

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Audio:
		return Audio, nil
	case Video:
		return Video, nil
	default:
		return "", cerr.Field("kind", s).Error("Unrecognized media kind")
	}
}

// File is a media file living inside a request workspace.
type File struct {
	Path string
	Kind Kind
	// Duration in seconds, zero when unknown.
	Duration float64
}

func NewFile(path string) File {
	return File{
		Path: path,
		Kind: Classify(path),
	}
}

func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}
