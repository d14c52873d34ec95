package download

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

var _ Downloader = GenericDLer{}

// NewGenericDLer presents userAgent like the yt-dlp path does, empty leaves Go's default.
func NewGenericDLer(client *http.Client, userAgent string) GenericDLer {
	if client == nil {
		client = http.DefaultClient
	}

	return GenericDLer{
		client:    client,
		userAgent: userAgent,
	}
}

// GenericDLer fetches a URL that already points at a media file.
type GenericDLer struct {
	client    *http.Client
	userAgent string
}

func (g GenericDLer) Download(ctx context.Context, sourceURL string, destDir string, _ Options) (string, error) {
	errctx := cerr.Field("source_url", sourceURL)

	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to parse source URL")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to create download request")
	}

	if g.userAgent != "" {
		request.Header.Set("User-Agent", g.userAgent)
	}

	log.WithField("source_url", sourceURL).Info("Downloading file directly")

	response, err := g.client.Do(request)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to request source URL")
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", errctx.Field("status_code", response.StatusCode).Error("Source URL responded with a non-success status")
	}

	outPath := filepath.Join(destDir, "source"+strings.ToLower(filepath.Ext(parsed.Path)))
	out, err := os.Create(outPath)
	if err != nil {
		return "", errctx.Field("out_path", outPath).Wrap(err).Error("Failed to create download file")
	}

	if _, err := io.Copy(out, response.Body); err != nil {
		_ = out.Close()
		return "", errctx.Wrap(err).Error("Failed to write downloaded content")
	}

	if err := out.Close(); err != nil {
		return "", errctx.Wrap(err).Error("Failed to close download file")
	}

	return outPath, nil
}
