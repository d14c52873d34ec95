package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/dummy"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/events"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/export"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/input/download"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/separator"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/transcode"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
	"github.com/veedubyou/vocal-isolator/src/shared/errors/api"
	testlib "github.com/veedubyou/vocal-isolator/src/shared/testing"
)

const (
	ytdlpBin   = "/bin/yt-dlp"
	ffmpegBin  = "/bin/ffmpeg"
	ffprobeBin = "/bin/ffprobe"
	demucsBin  = "/bin/demucs"

	sourceURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
)

var _ = Describe("Pipeline", func() {
	var (
		j             janitor.Janitor
		dummyExecutor *dummy.Executor
		secretStore   *dummy.SecretStore
		outputStore   *dummy.OutputStore
		notifier      *dummy.Notifier

		p pipeline.Pipeline

		request  pipeline.Request
		result   pipeline.Result
		apiErr   *api.Error
		progress []string
	)

	expectNoScopesLeft := func() {
		entries, err := os.ReadDir(j.WorkingDir().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	}

	run := func() {
		progress = nil
		result, apiErr = p.Run(context.Background(), request, func(message string) {
			progress = append(progress, message)
		})
	}

	BeforeEach(func() {
		By("Initializing the dummies", func() {
			j = testlib.ExpectSuccess(janitor.NewJanitor(testlib.TempDir()))

			dummyExecutor = dummy.NewDummyExecutor()
			dummyExecutor.Handle(ytdlpBin, dummy.FakeYtDLP("webm", []byte("source-bytes")))
			dummyExecutor.Handle(ffmpegBin, dummy.FakeFFmpeg())
			dummyExecutor.Handle(ffprobeBin, dummy.FakeFFprobe(dummy.VideoProbe("212.5")))
			dummyExecutor.Handle(demucsBin, dummy.FakeDemucs("drums", "bass", "other", "vocals"))

			secretStore = dummy.NewDummySecretStore()
			outputStore = dummy.NewDummyOutputStore()
			notifier = &dummy.Notifier{}
		})

		By("Assembling the pipeline", func() {
			prober := ffprobe.NewProber(ffprobeBin, dummyExecutor)

			youtubeDLer := download.NewYoutubeDLer(ytdlpBin, download.YoutubeDLerConfig{UserAgent: "test-agent"}, dummyExecutor)
			selectDLer := download.NewSelectDLer(youtubeDLer, download.NewGenericDLer(nil, ""))

			loader := separator.NewDemucsLoader(separator.DemucsLoaderConfig{
				DemucsBinPath: demucsBin,
				ModelName:     "htdemucs",
				Device:        separator.DeviceCPU,
			}, dummyExecutor).WithLookPath(func(path string) (string, error) {
				return path, nil
			})

			p = pipeline.NewPipeline(pipeline.Stages{
				Janitor:    j,
				Resolver:   input.NewResolver(selectDLer, secretStore, "cookies"),
				Transcoder: transcode.NewTranscoder(ffmpegBin, prober, dummyExecutor),
				Separator:  separator.NewSeparator(separator.NewModelCache(loader), nil, 0),
				Exporter:   export.NewExporter(ffmpegBin, prober, dummyExecutor),
				Store:      outputStore,
				Notifier:   notifier,
			})
		})

		request = pipeline.Request{
			RequestID: "req-1",
			URL:       sourceURL,
		}
	})

	Describe("Audio from a URL", func() {
		BeforeEach(run)

		It("doesn't return an error", func() {
			Expect(apiErr).To(BeNil())
		})

		It("saves the encoded vocals", func() {
			Expect(result.ArtifactName).To(Equal("vocals.mp3"))
			Expect(result.ArtifactURL).To(HaveSuffix("/vocals.mp3"))
			Expect(result.OutputKind).To(Equal("audio"))

			contents, err := outputStore.Get("vocals.mp3")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("encoded:vocals.mp3"))
		})

		It("runs the stages in order", func() {
			var names []string
			for _, call := range dummyExecutor.Calls() {
				names = append(names, call.Name)
			}

			// download, transcode, duration probe, separate, export
			Expect(names).To(Equal([]string{ytdlpBin, ffmpegBin, ffprobeBin, demucsBin, ffmpegBin}))
		})

		It("reports progress for every stage", func() {
			Expect(progress).To(Equal([]string{
				"Fetching media from URL",
				"Converting audio",
				"Separating vocals",
				"Exporting result",
				"Done",
			}))
			Expect(result.Progress).To(Equal(progress))
		})

		It("transcodes the download into canonical wav", func() {
			transcodeCall := dummyExecutor.CallsTo(ffmpegBin)[0]
			Expect(transcodeCall.Arg("-i")).To(HaveSuffix(filepath.Join("download", "source.webm")))
			Expect(transcodeCall.Arg("-ar")).To(Equal("44100"))
			Expect(transcodeCall.Arg("-ac")).To(Equal("2"))
			Expect(transcodeCall.Arg("-c:a")).To(Equal("pcm_s16le"))
			Expect(transcodeCall.LastArg()).To(HaveSuffix("canonical.wav"))
		})

		It("separates with the balanced preset by default", func() {
			demucsCall := dummyExecutor.CallsTo(demucsBin)[0]
			Expect(demucsCall.Arg("--shifts")).To(Equal("5"))
			Expect(demucsCall.Arg("--overlap")).To(Equal("0.25"))
			Expect(demucsCall.Arg("-d")).To(Equal("cpu"))
		})

		It("encodes the vocal stem to mp3", func() {
			exportCall := dummyExecutor.CallsTo(ffmpegBin)[1]
			Expect(exportCall.Arg("-i")).To(HaveSuffix("vocals.wav"))
			Expect(exportCall.Arg("-c:a")).To(Equal("libmp3lame"))
			Expect(exportCall.Arg("-b:a")).To(Equal("192k"))
		})

		It("leaves no temporary files behind", func() {
			expectNoScopesLeft()
		})

		It("announces the result", func() {
			sent := notifier.Events()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Type).To(Equal(events.VocalsIsolated))
			Expect(sent[0].RequestID).To(Equal("req-1"))
			Expect(sent[0].ArtifactURL).To(Equal(result.ArtifactURL))
		})
	})

	Describe("Video requested", func() {
		BeforeEach(func() {
			request.OutputKind = "video"
		})

		Describe("Source with a picture", func() {
			BeforeEach(run)

			It("muxes the vocals under the original picture", func() {
				Expect(apiErr).To(BeNil())
				Expect(result.OutputKind).To(Equal("video"))
				Expect(result.ArtifactName).To(Equal("vocals.mp4"))

				exportCall := dummyExecutor.CallsTo(ffmpegBin)[1]
				Expect(exportCall.Args).To(ContainElements("-map", "0:v:0", "1:a:0", "-shortest"))
				Expect(exportCall.Arg("-c:v")).To(Equal("copy"))
				Expect(exportCall.Arg("-c:a")).To(Equal("aac"))
				Expect(exportCall.Args[4]).To(HaveSuffix("source.webm"))
			})
		})

		Describe("Audio only source", func() {
			BeforeEach(func() {
				dummyExecutor.Handle(ytdlpBin, dummy.FakeYtDLP("m4a", []byte("source-bytes")))
				run()
			})

			It("falls back to audio", func() {
				Expect(apiErr).To(BeNil())
				Expect(result.OutputKind).To(Equal("audio"))
				Expect(result.ArtifactName).To(Equal("vocals.mp3"))
			})
		})

		Describe("Video container with only cover art", func() {
			BeforeEach(func() {
				coverArt := dummy.AudioProbe("180")
				coverArt.Streams = append(coverArt.Streams, ffprobe.Stream{Index: 1, CodecName: "mjpeg", CodecType: "video"})
				dummyExecutor.Handle(ffprobeBin, dummy.FakeFFprobe(coverArt))
				run()
			})

			It("falls back to audio", func() {
				Expect(apiErr).To(BeNil())
				Expect(result.OutputKind).To(Equal("audio"))
			})
		})
	})

	Describe("Quality presets", func() {
		DescribeTable("maps the preset to shifts",
			func(quality string, shifts string) {
				request.Quality = quality
				run()

				Expect(apiErr).To(BeNil())
				Expect(dummyExecutor.CallsTo(demucsBin)[0].Arg("--shifts")).To(Equal(shifts))
			},
			Entry("fast", "fast", "1"),
			Entry("balanced", "balanced", "5"),
			Entry("maximum", "MAXIMUM", "10"),
		)
	})

	Describe("Uploaded file", func() {
		BeforeEach(func() {
			request.URL = ""
			request.Upload = &pipeline.Upload{
				Name:    "../../My Song.MP3",
				Content: bytes.NewReader([]byte("uploaded-bytes")),
			}
			run()
		})

		It("skips the downloader", func() {
			Expect(apiErr).To(BeNil())
			Expect(dummyExecutor.CallsTo(ytdlpBin)).To(BeEmpty())
		})

		It("transcodes the stored upload", func() {
			transcodeCall := dummyExecutor.CallsTo(ffmpegBin)[0]
			Expect(transcodeCall.Arg("-i")).To(HaveSuffix(filepath.Join("upload", "source.mp3")))
		})

		It("leaves no temporary files behind", func() {
			expectNoScopesLeft()
		})
	})

	Describe("Cookies configured", func() {
		var (
			cookieFile     string
			cookieContents []byte
		)

		BeforeEach(func() {
			secretStore.State["cookies"] = []byte("# Netscape HTTP Cookie File")

			fakeYtDLP := dummy.FakeYtDLP("webm", []byte("source-bytes"))
			dummyExecutor.Handle(ytdlpBin, func(call dummy.Call) ([]byte, error) {
				cookieFile = call.Arg("--cookies")
				cookieContents, _ = os.ReadFile(cookieFile)
				return fakeYtDLP(call)
			})

			run()
		})

		It("hands the cookies to yt-dlp", func() {
			Expect(apiErr).To(BeNil())
			Expect(cookieFile).NotTo(BeEmpty())
			Expect(string(cookieContents)).To(Equal("# Netscape HTTP Cookie File"))
		})

		It("removes the cookie file afterwards", func() {
			Expect(cookieFile).NotTo(BeAnExistingFile())
		})
	})

	Describe("Failures", func() {
		expectFailure := func(code api.ErrorCode, failedStage string) {
			Expect(apiErr).NotTo(BeNil())
			Expect(apiErr.ErrorCode).To(Equal(code))
			Expect(apiErr.UserMessage).NotTo(BeEmpty())
			Expect(result.FailedStage).To(Equal(failedStage))

			sent := notifier.Events()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Type).To(Equal(events.IsolationFailed))
			Expect(sent[0].Stage).To(Equal(failedStage))
			Expect(sent[0].ErrorCode).To(Equal(string(code)))

			expectNoScopesLeft()
		}

		Describe("Nothing to process", func() {
			BeforeEach(func() {
				request.URL = "   "
				run()
			})

			It("rejects the request without running anything", func() {
				expectFailure(pipeline.InvalidInputCode, "input")
				Expect(dummyExecutor.Calls()).To(BeEmpty())
			})
		})

		Describe("Unknown quality", func() {
			BeforeEach(func() {
				request.Quality = "ultra"
				run()
			})

			It("rejects the request without running anything", func() {
				expectFailure(pipeline.InvalidInputCode, "input")
				Expect(dummyExecutor.Calls()).To(BeEmpty())
			})
		})

		Describe("Unknown output kind", func() {
			BeforeEach(func() {
				request.OutputKind = "gif"
				run()
			})

			It("rejects the request", func() {
				expectFailure(pipeline.InvalidInputCode, "input")
			})
		})

		Describe("Download fails", func() {
			BeforeEach(func() {
				dummyExecutor.Handle(ytdlpBin, dummy.Failing("ERROR: Video unavailable"))
				run()
			})

			It("stops before any later stage", func() {
				expectFailure(pipeline.FetchFailedCode, "fetch")
				Expect(dummyExecutor.CallsTo(ffmpegBin)).To(BeEmpty())
				Expect(dummyExecutor.CallsTo(demucsBin)).To(BeEmpty())
				Expect(outputStore.State).To(BeEmpty())
			})
		})

		Describe("Secret store unreachable", func() {
			BeforeEach(func() {
				secretStore.Unavailable = true
				run()
			})

			It("fails the fetch without calling yt-dlp", func() {
				expectFailure(pipeline.FetchFailedCode, "fetch")
				Expect(dummyExecutor.CallsTo(ytdlpBin)).To(BeEmpty())
			})
		})

		Describe("Transcode fails", func() {
			BeforeEach(func() {
				dummyExecutor.Handle(ffmpegBin, dummy.Failing("Invalid data found when processing input"))
				run()
			})

			It("never reaches separation", func() {
				expectFailure(pipeline.TranscodeFailedCode, "transcode")
				Expect(dummyExecutor.CallsTo(demucsBin)).To(BeEmpty())
			})
		})

		Describe("Separation fails", func() {
			BeforeEach(func() {
				dummyExecutor.Handle(demucsBin, dummy.Failing("CUDA out of memory"))
				run()
			})

			It("never exports", func() {
				expectFailure(pipeline.InferenceFailedCode, "inference")
				Expect(dummyExecutor.CallsTo(ffmpegBin)).To(HaveLen(1))
			})
		})

		Describe("Model produces no vocals", func() {
			BeforeEach(func() {
				dummyExecutor.Handle(demucsBin, dummy.FakeDemucs("drums", "bass"))
				run()
			})

			It("fails the inference stage", func() {
				expectFailure(pipeline.InferenceFailedCode, "inference")
			})
		})

		Describe("Output store unreachable", func() {
			BeforeEach(func() {
				outputStore.Unavailable = true
				run()
			})

			It("fails the export stage", func() {
				expectFailure(pipeline.ExportFailedCode, "export")
			})
		})

		Describe("Cancelled request", func() {
			BeforeEach(func() {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				result, apiErr = p.Run(ctx, request, nil)
			})

			It("fails and cleans up", func() {
				Expect(apiErr).NotTo(BeNil())
				expectNoScopesLeft()
			})
		})
	})
})
