package ffprobe_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/dummy"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media/ffprobe"
)

var _ = Describe("Prober", func() {
	const ffprobeBin = "/usr/bin/ffprobe"

	var (
		dummyExecutor *dummy.Executor
		prober        ffprobe.Prober
	)

	BeforeEach(func() {
		dummyExecutor = dummy.NewDummyExecutor()
		prober = ffprobe.NewProber(ffprobeBin, dummyExecutor)
	})

	Describe("Successful probe", func() {
		var result ffprobe.Result

		BeforeEach(func() {
			dummyExecutor.Handle(ffprobeBin, dummy.FakeFFprobe(dummy.VideoProbe("63.25")))

			var err error
			result, err = prober.Inspect(context.Background(), "/scope/source.mp4")
			Expect(err).NotTo(HaveOccurred())
		})

		It("asks for json format and stream info", func() {
			calls := dummyExecutor.CallsTo(ffprobeBin)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Args).To(ContainElements("-show_format", "-show_streams"))
			Expect(calls[0].Arg("-of")).To(Equal("json"))
			Expect(calls[0].LastArg()).To(Equal("/scope/source.mp4"))
		})

		It("parses streams and duration", func() {
			Expect(result.VideoStreamCount()).To(Equal(1))
			Expect(result.AudioStreamCount()).To(Equal(1))
			Expect(result.DurationSeconds()).To(Equal(63.25))
		})
	})

	It("does not count cover art as video", func() {
		result := dummy.AudioProbe("10")
		result.Streams = append(result.Streams,
			ffprobe.Stream{Index: 1, CodecName: "mjpeg", CodecType: "video"},
			ffprobe.Stream{Index: 2, CodecName: "png", CodecType: "video"},
		)

		Expect(result.VideoStreamCount()).To(BeZero())
	})

	It("reports zero for an unparseable duration", func() {
		result := ffprobe.Result{Format: ffprobe.Format{Duration: "N/A"}}
		Expect(result.DurationSeconds()).To(BeZero())
	})

	It("fails when ffprobe fails", func() {
		dummyExecutor.Handle(ffprobeBin, dummy.Failing("No such file or directory"))

		_, err := prober.Inspect(context.Background(), "/scope/missing.mp4")
		Expect(err).To(HaveOccurred())
	})

	It("fails on garbage output", func() {
		dummyExecutor.Handle(ffprobeBin, func(call dummy.Call) ([]byte, error) {
			return []byte("not json"), nil
		})

		_, err := prober.Inspect(context.Background(), "/scope/source.mp4")
		Expect(err).To(HaveOccurred())
	})

	It("refuses an empty path without running anything", func() {
		_, err := prober.Inspect(context.Background(), " ")
		Expect(err).To(HaveOccurred())
		Expect(dummyExecutor.Calls()).To(BeEmpty())
	})
})
