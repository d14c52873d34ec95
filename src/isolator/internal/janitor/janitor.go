package janitor

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/working_dir"
)

const (
	scopeTimeLayout   = "20060102-150405"
	credentialsSubdir = "credentials"
	maxRequestIDInDir = 64
)

type Janitor struct {
	workingDir working_dir.WorkingDir
}

func NewJanitor(workingDirStr string) (Janitor, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Janitor{}, cerr.Field("working_dir_str", workingDirStr).Wrap(err).Error("Failed to create working dir")
	}

	return Janitor{workingDir: workingDir}, nil
}

func (j Janitor) WorkingDir() working_dir.WorkingDir {
	return j.workingDir
}

// NewScope creates the directory that holds every file a single request produces.
// Request ids come from clients, so two live scopes may share one.
func (j Janitor) NewScope(requestID string) (*Scope, error) {
	tempDir := j.workingDir.TempDir()
	pattern := time.Now().UTC().Format(scopeTimeLayout) + "-" + sanitize(requestID) + "-*"

	errctx := cerr.Field("temp_dir", tempDir).Field("pattern", pattern)

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to ensure temp dir")
	}

	root, err := os.MkdirTemp(tempDir, pattern)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create request scope dir")
	}

	log.WithFields(log.Fields{
		"request_id": requestID,
		"scope_dir":  root,
	}).Debug("Created request scope")

	return &Scope{
		requestID: requestID,
		root:      root,
	}, nil
}

type CleanStaleResult struct {
	Removed []string
	Errors  []error
}

// CleanStale removes scope dirs older than maxAge, left behind by processes that died mid-request.
func (j Janitor) CleanStale(maxAge time.Duration) CleanStaleResult {
	result := CleanStaleResult{}

	tempDir := j.workingDir.TempDir()
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, cerr.Field("temp_dir", tempDir).Wrap(err).Error("Failed to read temp dir"))
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, cerr.Field("path", dirPath).Wrap(err).Error("Failed to stat scope dir"))
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		logger := log.WithField("path", dirPath)
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, cerr.Field("path", dirPath).Wrap(err).Error("Failed to remove stale scope dir"))
			logger.WithError(err).Warn("Failed to remove stale scope dir")
			continue
		}

		result.Removed = append(result.Removed, dirPath)
		logger.WithField("age", time.Since(info.ModTime()).String()).Info("Removed stale scope dir")
	}

	return result
}

func sanitize(requestID string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, requestID)

	if cleaned == "" {
		return "request"
	}

	if len(cleaned) > maxRequestIDInDir {
		cleaned = cleaned[:maxRequestIDInDir]
	}

	return cleaned
}
