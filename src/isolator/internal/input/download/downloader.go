package download

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type Options struct {
	// CookieFile is a Netscape cookie jar, empty for unauthenticated fetches.
	CookieFile string
}

//counterfeiter:generate . Downloader
type Downloader interface {
	// Download fetches sourceURL into destDir and returns the path of the single file it produced.
	Download(ctx context.Context, sourceURL string, destDir string, options Options) (string, error)
}

var _ Downloader = SelectDLer{}

// SelectDLer hands direct links to plain media files to the generic
// downloader and everything else to yt-dlp.
type SelectDLer struct {
	youtubeDLer Downloader
	genericDLer Downloader
}

func NewSelectDLer(youtubeDLer Downloader, genericDLer Downloader) SelectDLer {
	return SelectDLer{
		youtubeDLer: youtubeDLer,
		genericDLer: genericDLer,
	}
}

func (s SelectDLer) Download(ctx context.Context, sourceURL string, destDir string, options Options) (string, error) {
	if IsDirectMediaURL(sourceURL) {
		return s.genericDLer.Download(ctx, sourceURL, destDir, options)
	}

	return s.youtubeDLer.Download(ctx, sourceURL, destDir, options)
}

var directMediaExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
}

func IsDirectMediaURL(sourceURL string) bool {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	ext := strings.ToLower(filepath.Ext(parsed.Path))
	if ext == "" {
		return false
	}

	if media.Classify(parsed.Path) == media.Audio {
		return true
	}

	_, ok := directMediaExtensions[ext]
	return ok
}

// singleFile returns the one regular file in dir.
func singleFile(dir string) (string, error) {
	errctx := cerr.Field("dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errctx.Wrap(err).Error("Error reading download directory")
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// yt-dlp leftovers from an interrupted merge
		if strings.HasSuffix(entry.Name(), ".part") || strings.HasSuffix(entry.Name(), ".ytdl") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	switch len(files) {
	case 0:
		return "", errctx.Error("Downloader produced no file")
	case 1:
		return files[0], nil
	default:
		return "", errctx.Field("files", files).Error("Downloader produced more than one file")
	}
}
