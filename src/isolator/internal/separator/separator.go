package separator

import (
	"context"
	"os"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/janitor"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/media"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

const (
	stemsDirName  = "stems"
	vocalFileName = "vocals.wav"
)

type Separator struct {
	cache          *ModelCache
	qualityTable   QualityTable
	segmentSeconds int
}

func NewSeparator(cache *ModelCache, qualityTable QualityTable, segmentSeconds int) Separator {
	if qualityTable == nil {
		qualityTable = DefaultQualityTable()
	}

	return Separator{
		cache:          cache,
		qualityTable:   qualityTable,
		segmentSeconds: segmentSeconds,
	}
}

// IsolateVocals runs the cached model over the canonical file and keeps only
// the vocal stem. Every other stem is deleted before returning.
func (s Separator) IsolateVocals(ctx context.Context, scope *janitor.Scope, canonical media.File, quality Quality) (media.File, error) {
	errctx := cerr.Field("canonical_path", canonical.Path).Field("quality", quality)

	shifts, err := s.qualityTable.Shifts(quality)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Invalid quality preset")
	}

	model, err := s.cache.Get(ctx)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Separation model unavailable")
	}

	stemsDir, err := scope.Dir(stemsDirName)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to create stems dir")
	}

	logger := log.WithFields(log.Fields{
		"request_id": scope.RequestID(),
		"model":      model.Name(),
		"shifts":     shifts,
	})

	if canonical.Duration > 0 {
		logger = logger.WithField("windows", WindowCount(canonical.Duration, float64(s.segmentSeconds), Overlap))
	}

	logger.Info("Separating stems")

	stems, err := model.Separate(ctx, canonical.Path, stemsDir, Options{
		Shifts:         shifts,
		Overlap:        Overlap,
		SegmentSeconds: s.segmentSeconds,
	})
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to separate stems")
	}

	vocals, ok := stems.Get(VocalsStem)
	if !ok {
		return media.File{}, errctx.Field("stems", stems.Names()).Error("Model produced no vocal stem")
	}

	vocalPath, err := scope.Path(vocalFileName)
	if err != nil {
		return media.File{}, errctx.Wrap(err).Error("Failed to resolve vocal path")
	}

	if err := os.Rename(vocals.Path, vocalPath); err != nil {
		return media.File{}, errctx.Field("stem_path", vocals.Path).Wrap(err).Error("Failed to move vocal stem")
	}

	if err := os.RemoveAll(stemsDir); err != nil {
		// the scope still owns the dir and will remove it on close
		logger.WithError(err).Warn("Failed to discard non-vocal stems")
	} else {
		logger.WithField("discarded", len(stems)-1).Debug("Discarded non-vocal stems")
	}

	return media.File{
		Path:     vocalPath,
		Kind:     media.Audio,
		Duration: canonical.Duration,
	}, nil
}
