package config

import (
	"fmt"
	"os/exec"
	"strings"
)

func FindBin(bin string) string {
	cmd := exec.Command("which", bin)
	output, err := cmd.CombinedOutput()

	stringOutput := string(output)
	if err != nil {
		panic(fmt.Sprintf("Failed to find %s: %s", bin, stringOutput))
	}

	trimmedOutput := strings.TrimSpace(stringOutput)
	if trimmedOutput == "" {
		panic(fmt.Sprintf("No bin found for %s", bin))
	}

	return trimmedOutput
}

func orFind(configured string, bin string) string {
	if configured != "" {
		return configured
	}

	return FindBin(bin)
}

func (t Tools) YtDLPPath() string {
	return orFind(t.YtDLPBinPath, "yt-dlp")
}

func (t Tools) FFmpegPath() string {
	return orFind(t.FFmpegBinPath, "ffmpeg")
}

func (t Tools) FFprobePath() string {
	return orFind(t.FFprobeBinPath, "ffprobe")
}

// DemucsPath is resolved lazily by the model loader, so a missing binary
// only fails the first separation rather than startup.
func (t Tools) DemucsPath() string {
	if t.DemucsBinPath != "" {
		return t.DemucsBinPath
	}

	return "demucs"
}
