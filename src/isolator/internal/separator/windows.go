package separator

import "math"

// Overlap is the fraction shared by consecutive inference windows.
const Overlap = 0.25

type Window struct {
	Start float64
	End   float64
}

// WindowCount is len(Windows(...)) without building the plan. Demucs does
// the actual chunking from --segment and --overlap, the count is only logged.
func WindowCount(total float64, segment float64, overlap float64) int {
	if total <= 0 || segment <= 0 {
		return 0
	}

	if overlap < 0 || overlap >= 1 {
		overlap = Overlap
	}

	if total <= segment {
		return 1
	}

	stride := segment * (1 - overlap)
	return 1 + int(math.Ceil((total-segment)/stride))
}

// Windows plans the chunks a separation pass covers for an input of total
// seconds. Consecutive windows share overlap*segment seconds and the last
// window is clipped to the input.
func Windows(total float64, segment float64, overlap float64) []Window {
	if total <= 0 || segment <= 0 {
		return nil
	}

	if overlap < 0 || overlap >= 1 {
		overlap = Overlap
	}

	stride := segment * (1 - overlap)

	var windows []Window
	for start := 0.0; ; start += stride {
		end := math.Min(start+segment, total)
		windows = append(windows, Window{Start: start, End: end})

		if end >= total {
			break
		}
	}

	return windows
}
