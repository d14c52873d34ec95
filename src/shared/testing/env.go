package testing

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

func SetTestEnv() {
	err := os.Setenv(env.Key, string(env.Test))
	Expect(err).NotTo(HaveOccurred())
}

// SetEnv restores the previous value when the current test ends.
func SetEnv(key string, value string) {
	prev, had := os.LookupEnv(key)
	ExpectWithOffset(1, os.Setenv(key, value)).To(Succeed())

	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// TempDir is removed when the current test ends.
func TempDir() string {
	dir, err := os.MkdirTemp("", "vocal-isolator-test-*")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	DeferCleanup(func() {
		_ = os.RemoveAll(dir)
	})

	return dir
}
