package outputs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gofrs/flock"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs/storagepath"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

const pruneLockName = ".prune.lock"

var _ Store = LocalStore{}

// LocalStore keeps artifacts in a directory served by the HTTP app.
// A zero maxAge keeps them forever.
type LocalStore struct {
	dir           string
	publicBaseURL string
	maxAge        time.Duration
	now           func() time.Time
}

func NewLocalStore(dir string, publicBaseURL string, maxAge time.Duration) (LocalStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return LocalStore{}, cerr.Field("dir", dir).Wrap(err).Error("Failed to convert outputs dir to absolute format")
	}

	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return LocalStore{}, cerr.Field("dir", absDir).Wrap(err).Error("Failed to create outputs dir")
	}

	return LocalStore{
		dir:           absDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		maxAge:        maxAge,
		now:           time.Now,
	}, nil
}

func (l LocalStore) Dir() string {
	return l.dir
}

func (l LocalStore) Save(ctx context.Context, localPath string) (Artifact, error) {
	name := storagepath.ArtifactName(filepath.Ext(localPath), l.now())
	destPath := filepath.Join(l.dir, name)

	errctx := cerr.Field("local_path", localPath).Field("dest_path", destPath)

	if err := copyFile(localPath, destPath); err != nil {
		return Artifact{}, errctx.Wrap(err).Error("Failed to copy artifact into outputs dir")
	}

	log.WithField("path", destPath).Info("Saved artifact")

	if l.maxAge > 0 {
		if _, err := l.Prune(ctx); err != nil {
			log.WithError(err).Warn("Failed to prune old artifacts")
		}
	}

	return Artifact{
		Name: name,
		URL:  l.publicBaseURL + "/" + name,
	}, nil
}

// Open resolves an artifact name to its path, refusing anything outside the dir.
func (l LocalStore) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", cerr.Field("name", name).Error("Invalid artifact name")
	}

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", cerr.Field("name", name).Wrap(err).Error("Artifact not found")
	}

	if info.IsDir() {
		return "", cerr.Field("name", name).Error("Artifact not found")
	}

	return path, nil
}

// Prune deletes artifacts older than maxAge. The lock keeps several
// processes sharing the dir from pruning at the same time; whoever loses
// the race skips this round.
func (l LocalStore) Prune(ctx context.Context) ([]string, error) {
	if l.maxAge <= 0 {
		return nil, nil
	}

	lock := flock.New(filepath.Join(l.dir, pruneLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to acquire prune lock")
	}

	if !locked {
		log.Debug("Prune already running elsewhere, skipping")
		return nil, nil
	}

	defer func() {
		if err := lock.Unlock(); err != nil {
			log.WithError(err).Warn("Failed to release prune lock")
		}
	}()

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, cerr.Field("dir", l.dir).Wrap(err).Error("Failed to read outputs dir")
	}

	cutoff := l.now().Add(-l.maxAge)

	var removed []string
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, cerr.Wrap(ctx.Err()).Error("Prune interrupted")
		}

		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to remove old artifact")
			continue
		}

		removed = append(removed, path)
	}

	if len(removed) > 0 {
		log.WithField("count", len(removed)).Info("Pruned old artifacts")
	}

	return removed, nil
}

func copyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}

	return out.Close()
}
