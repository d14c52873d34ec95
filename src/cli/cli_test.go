package main

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	testlib "github.com/veedubyou/vocal-isolator/src/shared/testing"
)

var _ = Describe("CLI", func() {
	var (
		workspace string
		stdout    *bytes.Buffer
		stderr    *bytes.Buffer
	)

	BeforeEach(func() {
		workspace = testlib.TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}

		testlib.SetEnv("ENVIRONMENT", "test")
		testlib.SetEnv("WORKING_DIR_PATH", workspace)
		testlib.SetEnv("YTDLP_BIN_PATH", "/bin/false")
		testlib.SetEnv("FFMPEG_BIN_PATH", "/bin/false")
		testlib.SetEnv("FFPROBE_BIN_PATH", "/bin/false")
		testlib.SetEnv("DEMUCS_BIN_PATH", "/bin/false")
		testlib.SetEnv("SEPARATOR_DEVICE", "cpu")
		testlib.SetEnv("CONFIG_PATH", "")
		testlib.SetEnv("RABBITMQ_URL", "")
	})

	execute := func(args ...string) error {
		root := newRootCommand()
		root.SetArgs(args)
		root.SetOut(stdout)
		root.SetErr(stderr)
		return root.Execute()
	}

	Describe("isolate", func() {
		It("fails on a request with neither a URL nor a file", func() {
			err := execute("isolate", "--quality", "fast")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid_input"))
			Expect(stdout.String()).To(BeEmpty())
		})

		It("rejects a URL together with a file", func() {
			err := execute("isolate", "--url", "https://example.com/watch", "--file", "song.mp3")
			Expect(err).To(HaveOccurred())
		})

		It("fails before running anything when the file can't be opened", func() {
			err := execute("isolate", "--file", filepath.Join(workspace, "missing.mp3"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Failed to open input file"))
		})

		It("reports a failed download as a fetch error", func() {
			err := execute("isolate", "--url", "https://example.com/watch")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetch_failed"))
			Expect(stderr.String()).To(ContainSubstring("Fetching media from URL"))
		})
	})

	Describe("clean", func() {
		It("removes scopes older than the cutoff", func() {
			tempDir := filepath.Join(workspace, "tmp")
			stale := filepath.Join(tempDir, "20200101-000000-crashed")
			Expect(os.MkdirAll(stale, 0o700)).To(Succeed())

			old := time.Now().Add(-2 * time.Hour)
			Expect(os.Chtimes(stale, old, old)).To(Succeed())

			Expect(execute("clean", "--older-than", "1h")).To(Succeed())
			Expect(stale).NotTo(BeADirectory())
			Expect(stdout.String()).To(ContainSubstring(stale))
		})
	})
})
