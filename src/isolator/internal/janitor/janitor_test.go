package janitor_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	testlib "github.com/veedubyou/vocal-isolator/src/shared/testing"
)

var _ = Describe("Janitor", func() {
	var (
		workingDir string
		j          janitor.Janitor
	)

	BeforeEach(func() {
		workingDir = testlib.TempDir()

		var err error
		j, err = janitor.NewJanitor(workingDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Scope", func() {
		var scope *janitor.Scope

		BeforeEach(func() {
			var err error
			scope, err = j.NewScope("req-1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lives under the working temp dir", func() {
			Expect(scope.Root()).To(HavePrefix(j.WorkingDir().TempDir()))
			Expect(scope.Root()).To(BeADirectory())
			Expect(filepath.Base(scope.Root())).To(ContainSubstring("-req-1-"))
		})

		It("removes everything on close", func() {
			dir, err := scope.Dir("stems/htdemucs_6s")
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(dir, "vocals.wav"), []byte("v"), 0o644)).To(Succeed())

			scope.Close()
			Expect(scope.Root()).NotTo(BeAnExistingFile())
		})

		It("writes credentials with owner only permissions and deletes them on close", func() {
			path, err := scope.WriteCredential("cookies.txt", []byte("# Netscape HTTP Cookie File"))
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			scope.Close()
			Expect(path).NotTo(BeAnExistingFile())
		})

		It("can be closed more than once", func() {
			scope.Close()
			Expect(func() { scope.Close() }).NotTo(Panic())
		})

		It("tolerates a scope removed by someone else", func() {
			Expect(os.RemoveAll(scope.Root())).To(Succeed())
			Expect(func() { scope.Close() }).NotTo(Panic())
		})

		It("refuses paths that escape the scope", func() {
			_, err := scope.Dir("../../elsewhere")
			Expect(err).To(HaveOccurred())

			_, err = scope.Path("../sibling.wav")
			Expect(err).To(HaveOccurred())
		})

		It("keeps credential file names inside the credentials dir", func() {
			path, err := scope.WriteCredential("../../escape.txt", []byte("x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Dir(path)).To(Equal(filepath.Join(scope.Root(), "credentials")))
		})
	})

	It("sanitizes request ids used in dir names", func() {
		scope, err := j.NewScope("../../etc")
		Expect(err).NotTo(HaveOccurred())
		defer scope.Close()

		Expect(filepath.Dir(scope.Root())).To(Equal(j.WorkingDir().TempDir()))
	})

	It("gives concurrent requests with the same id their own scope", func() {
		first, err := j.NewScope("client-id")
		Expect(err).NotTo(HaveOccurred())
		defer first.Close()

		second, err := j.NewScope("client-id")
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		Expect(second.Root()).NotTo(Equal(first.Root()))
		Expect(first.Root()).To(BeADirectory())
		Expect(second.Root()).To(BeADirectory())

		second.Close()
		Expect(first.Root()).To(BeADirectory())
	})

	It("shortens very long request ids", func() {
		scope, err := j.NewScope(strings.Repeat("a", 300))
		Expect(err).NotTo(HaveOccurred())
		defer scope.Close()

		Expect(scope.Root()).To(BeADirectory())
		Expect(len(filepath.Base(scope.Root()))).To(BeNumerically("<", 128))
	})

	Describe("CleanStale", func() {
		It("removes only old scope dirs", func() {
			oldScope, err := j.NewScope("old")
			Expect(err).NotTo(HaveOccurred())
			freshScope, err := j.NewScope("fresh")
			Expect(err).NotTo(HaveOccurred())

			past := time.Now().Add(-48 * time.Hour)
			Expect(os.Chtimes(oldScope.Root(), past, past)).To(Succeed())

			result := j.CleanStale(24 * time.Hour)
			Expect(result.Errors).To(BeEmpty())
			Expect(result.Removed).To(ConsistOf(oldScope.Root()))
			Expect(freshScope.Root()).To(BeADirectory())
		})
	})
})
