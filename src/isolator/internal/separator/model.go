package separator

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const VocalsStem = "vocals"

type Options struct {
	Shifts         int
	Overlap        float64
	SegmentSeconds int
}

type Stem struct {
	Name string
	Path string
}

// StemSet keeps stems in the order the model produces them.
type StemSet []Stem

func (s StemSet) Get(name string) (Stem, bool) {
	for _, stem := range s {
		if stem.Name == name {
			return stem, true
		}
	}

	return Stem{}, false
}

func (s StemSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, stem := range s {
		names = append(names, stem.Name)
	}

	return names
}

//counterfeiter:generate . Model
type Model interface {
	Name() string
	Stems() []string
	Separate(ctx context.Context, inputPath string, outputDir string, options Options) (StemSet, error)
}

//counterfeiter:generate . Loader
type Loader interface {
	Load(ctx context.Context) (Model, error)
}

// ModelCache loads the model at most once per process. A failed load is not
// remembered, so the next caller tries again. Once loaded the model is shared
// read-only by every request.
type ModelCache struct {
	loader Loader

	mutex sync.Mutex
	model Model
}

func NewModelCache(loader Loader) *ModelCache {
	return &ModelCache{loader: loader}
}

func (m *ModelCache) Get(ctx context.Context) (Model, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.model != nil {
		return m.model, nil
	}

	log.Info("Loading separation model")

	model, err := m.loader.Load(ctx)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to load separation model")
	}

	log.WithFields(log.Fields{
		"model": model.Name(),
		"stems": model.Stems(),
	}).Info("Separation model loaded")

	m.model = model
	return model, nil
}

func (m *ModelCache) Loaded() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.model != nil
}
