package janitor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

// Scope owns every temporary artifact of one request. Close releases all of them.
type Scope struct {
	requestID string
	root      string

	mutex       sync.Mutex
	credentials []string
	closeOnce   sync.Once
}

func (s *Scope) RequestID() string {
	return s.requestID
}

func (s *Scope) Root() string {
	return s.root
}

// Dir returns a subdirectory of the scope, creating it if needed.
func (s *Scope) Dir(name string) (string, error) {
	dir, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", cerr.Field("dir", dir).Wrap(err).Error("Failed to create scope subdir")
	}

	return dir, nil
}

// Path returns a file path inside the scope root without creating anything.
func (s *Scope) Path(name string) (string, error) {
	return s.resolve(name)
}

// WriteCredential persists secret material with owner-only permissions.
// The file is removed before anything else when the scope closes.
func (s *Scope) WriteCredential(name string, content []byte) (string, error) {
	dir, err := s.Dir(credentialsSubdir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(name))

	s.mutex.Lock()
	s.credentials = append(s.credentials, path)
	s.mutex.Unlock()

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", cerr.Field("path", path).Wrap(err).Error("Failed to write credential file")
	}

	return path, nil
}

// Close is best effort and idempotent: failures are logged, never returned,
// so it is safe to defer on every exit path.
func (s *Scope) Close() {
	s.closeOnce.Do(func() {
		logger := log.WithFields(log.Fields{
			"request_id": s.requestID,
			"scope_dir":  s.root,
		})

		s.mutex.Lock()
		credentials := s.credentials
		s.credentials = nil
		s.mutex.Unlock()

		for _, credential := range credentials {
			if err := os.Remove(credential); err != nil && !os.IsNotExist(err) {
				logger.WithError(err).WithField("path", credential).Warn("Failed to remove credential file")
			}
		}

		if err := os.RemoveAll(s.root); err != nil {
			logger.WithError(err).Warn("Failed to remove request scope")
			return
		}

		logger.Debug("Removed request scope")
	})
}

func (s *Scope) resolve(name string) (string, error) {
	path := filepath.Join(s.root, name)
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", cerr.Fields(cerr.F{"scope_dir": s.root, "name": name}).Error("Path escapes the request scope")
	}

	return path, nil
}
