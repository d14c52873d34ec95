package outputs

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type Artifact struct {
	Name string
	// URL is where a client can fetch the artifact.
	URL string
}

//counterfeiter:generate . Store
type Store interface {
	// Save copies the local file out of the request scope, which is about to be deleted.
	Save(ctx context.Context, localPath string) (Artifact, error)
}

// the system mime tables are often missing in slim images
var artifactContentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".mp4": "video/mp4",
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := artifactContentTypes[ext]; ok {
		return t
	}

	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}

	return "application/octet-stream"
}
