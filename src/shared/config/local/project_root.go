package local

import (
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot walks up from this source file to the directory holding go.mod.
// Only meaningful when running from a checkout, which is where the default
// working dir lives during development and tests.
func ProjectRoot() string {
	_, filePath, _, ok := runtime.Caller(0)
	if !ok {
		panic("Failed to call runtime.Caller")
	}

	dir := filepath.Dir(filePath)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			panic("No go.mod found above " + filePath)
		}
		dir = parent
	}
}
