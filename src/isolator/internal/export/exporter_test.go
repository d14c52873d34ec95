package export_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/dummy"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/export"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
	testlib "github.com/veedubyou/vocal-isolator/src/shared/testing"
)

var _ = Describe("Exporter", func() {
	const (
		ffmpegBin  = "/bin/ffmpeg"
		ffprobeBin = "/bin/ffprobe"
	)

	var (
		scope         *janitor.Scope
		vocals        media.File
		videoSource   media.File
		audioSource   media.File
		dummyExecutor *dummy.Executor
		exporter      export.Exporter
	)

	BeforeEach(func() {
		j := testlib.ExpectSuccess(janitor.NewJanitor(testlib.TempDir()))
		scope = testlib.ExpectSuccess(j.NewScope("export-1"))
		DeferCleanup(scope.Close)

		vocals = media.File{Path: filepath.Join(scope.Root(), "vocals.wav"), Kind: media.Audio, Duration: 12}
		videoSource = media.NewFile(filepath.Join(scope.Root(), "download", "source.mp4"))
		audioSource = media.NewFile(filepath.Join(scope.Root(), "download", "source.flac"))

		dummyExecutor = dummy.NewDummyExecutor()
		dummyExecutor.Handle(ffmpegBin, dummy.FakeFFmpeg())
		dummyExecutor.Handle(ffprobeBin, dummy.FakeFFprobe(dummy.VideoProbe("12")))

		exporter = export.NewExporter(ffmpegBin, ffprobe.NewProber(ffprobeBin, dummyExecutor), dummyExecutor)
	})

	It("encodes audio as 192k mp3", func() {
		out, err := exporter.Export(context.Background(), scope, vocals, videoSource, media.Audio)
		Expect(err).NotTo(HaveOccurred())

		Expect(out.Kind).To(Equal(media.Audio))
		Expect(out.Path).To(Equal(filepath.Join(scope.Root(), "export", "vocals.mp3")))
		Expect(out.Path).To(BeARegularFile())
		Expect(out.Duration).To(Equal(12.0))

		call := dummyExecutor.CallsTo(ffmpegBin)[0]
		Expect(call.Args).To(Equal(export.AudioArgs(vocals.Path, out.Path)))
		Expect(call.Arg("-c:a")).To(Equal("libmp3lame"))
		Expect(call.Arg("-b:a")).To(Equal("192k"))
		Expect(dummyExecutor.CallsTo(ffprobeBin)).To(BeEmpty())
	})

	It("replaces the soundtrack of a video source", func() {
		out, err := exporter.Export(context.Background(), scope, vocals, videoSource, media.Video)
		Expect(err).NotTo(HaveOccurred())

		Expect(out.Kind).To(Equal(media.Video))
		Expect(out.Path).To(HaveSuffix("vocals.mp4"))

		call := dummyExecutor.CallsTo(ffmpegBin)[0]
		Expect(call.Args).To(Equal([]string{
			"-hide_banner", "-nostdin", "-y",
			"-i", videoSource.Path,
			"-i", vocals.Path,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "192k",
			"-shortest",
			out.Path,
		}))
	})

	It("exports audio when video is requested for an audio source", func() {
		out, err := exporter.Export(context.Background(), scope, vocals, audioSource, media.Video)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kind).To(Equal(media.Audio))
		Expect(dummyExecutor.CallsTo(ffprobeBin)).To(BeEmpty())
	})

	It("exports audio when the container has no picture", func() {
		dummyExecutor.Handle(ffprobeBin, dummy.FakeFFprobe(dummy.AudioProbe("12")))

		out, err := exporter.Export(context.Background(), scope, vocals, videoSource, media.Video)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kind).To(Equal(media.Audio))
	})

	It("assumes video when the probe fails", func() {
		dummyExecutor.Handle(ffprobeBin, dummy.Failing("moov atom not found"))

		out, err := exporter.Export(context.Background(), scope, vocals, videoSource, media.Video)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kind).To(Equal(media.Video))
	})

	It("fails when ffmpeg fails", func() {
		dummyExecutor.Handle(ffmpegBin, dummy.Failing("Unknown encoder 'libmp3lame'"))

		_, err := exporter.Export(context.Background(), scope, vocals, videoSource, media.Audio)
		Expect(err).To(HaveOccurred())
	})
})
