package input

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input/download"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/secrets"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/stage"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/errors/mark"
)

const (
	uploadDirName   = "upload"
	downloadDirName = "download"
	cookieFileName  = "cookies.txt"
)

type Upload struct {
	// Name is only consulted for its extension.
	Name    string
	Content io.Reader
}

type Source struct {
	URL    string
	Upload *Upload
}

// Validate fails when neither a URL nor an upload was supplied.
func (s Source) Validate() error {
	if s.Upload != nil && s.Upload.Content != nil {
		return nil
	}

	if strings.TrimSpace(s.URL) != "" {
		return nil
	}

	return mark.Message(stage.InputMark, "Neither a URL nor a file was provided")
}

type Resolver struct {
	downloader       download.Downloader
	secretStore      secrets.Store
	cookieSecretName string
}

func NewResolver(downloader download.Downloader, secretStore secrets.Store, cookieSecretName string) Resolver {
	return Resolver{
		downloader:       downloader,
		secretStore:      secretStore,
		cookieSecretName: cookieSecretName,
	}
}

// Resolve turns the request source into a local media file inside the scope.
// A URL wins over an upload when both are present.
func (r Resolver) Resolve(ctx context.Context, scope *janitor.Scope, source Source) (media.File, error) {
	if err := source.Validate(); err != nil {
		return media.File{}, err
	}

	if sourceURL := strings.TrimSpace(source.URL); sourceURL != "" {
		return r.fetch(ctx, scope, sourceURL)
	}

	return r.persistUpload(scope, *source.Upload)
}

func (r Resolver) persistUpload(scope *janitor.Scope, upload Upload) (media.File, error) {
	errctx := cerr.Field("upload_name", upload.Name)

	dir, err := scope.Dir(uploadDirName)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to create upload dir")
	}

	// the client's base name is never used as a path
	path := filepath.Join(dir, "source"+strings.ToLower(filepath.Ext(filepath.Base(upload.Name))))

	log.WithFields(log.Fields{
		"request_id": scope.RequestID(),
		"path":       path,
	}).Info("Persisting upload")

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return media.File{}, errctx.Field("path", path).Wrap(err).Error("Failed to create upload file")
	}

	if _, err := io.Copy(out, upload.Content); err != nil {
		_ = out.Close()
		return media.File{}, mark.Wrap(errctx.Wrap(err).Error("Failed to store uploaded content"), stage.InputMark, "Upload could not be read")
	}

	if err := out.Close(); err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to close upload file")
	}

	return media.NewFile(path), nil
}

func (r Resolver) fetch(ctx context.Context, scope *janitor.Scope, sourceURL string) (media.File, error) {
	errctx := cerr.Field("source_url", sourceURL)

	options, err := r.downloadOptions(ctx, scope)
	if err != nil {
		return media.File{}, mark.Wrap(errctx.Wrap(err).Error("Failed to prepare credentials"), stage.FetchMark, "Fetch aborted")
	}

	dir, err := scope.Dir(downloadDirName)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to create download dir")
	}

	path, err := r.downloader.Download(ctx, sourceURL, dir, options)
	if err != nil {
		return media.File{}, mark.Wrap(errctx.Wrap(err).Error("Failed to download source"), stage.FetchMark, "Fetch failed")
	}

	return media.NewFile(path), nil
}

func (r Resolver) downloadOptions(ctx context.Context, scope *janitor.Scope) (download.Options, error) {
	if r.secretStore == nil || r.cookieSecretName == "" {
		return download.Options{}, nil
	}

	cookies, found, err := r.secretStore.Get(ctx, r.cookieSecretName)
	if err != nil {
		return download.Options{}, cerr.Field("secret_name", r.cookieSecretName).Wrap(err).Error("Failed to read cookie secret")
	}

	if !found {
		log.WithField("request_id", scope.RequestID()).Debug("No cookies configured, fetching unauthenticated")
		return download.Options{}, nil
	}

	cookieFile, err := scope.WriteCredential(cookieFileName, cookies)
	if err != nil {
		return download.Options{}, cerr.Wrap(err).Error("Failed to write cookie file")
	}

	return download.Options{CookieFile: cookieFile}, nil
}
