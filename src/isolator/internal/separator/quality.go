package separator

import (
	"strings"

	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

type Quality string

const (
	QualityFast     Quality = "fast"
	QualityBalanced Quality = "balanced"
	QualityMaximum  Quality = "maximum"
)

// QualityTable maps a preset to the number of randomly shifted predictions
// that get averaged. More shifts trade time for a cleaner separation.
type QualityTable map[Quality]int

func DefaultQualityTable() QualityTable {
	return QualityTable{
		QualityFast:     1,
		QualityBalanced: 5,
		QualityMaximum:  10,
	}
}

func ParseQuality(s string) (Quality, error) {
	quality := Quality(strings.ToLower(strings.TrimSpace(s)))
	if quality == "" {
		return QualityBalanced, nil
	}

	if _, ok := DefaultQualityTable()[quality]; !ok {
		return "", cerr.Field("quality", s).Error("Unknown quality preset")
	}

	return quality, nil
}

func (q QualityTable) Shifts(quality Quality) (int, error) {
	shifts, ok := q[quality]
	if !ok {
		return 0, cerr.Field("quality", quality).Error("No shift count for quality preset")
	}

	return shifts, nil
}
