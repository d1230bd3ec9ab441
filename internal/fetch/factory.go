package fetch

import (
	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Factory is the static platform registry, populated once at process start
// and immutable afterwards.
type Factory struct {
	fetchers map[model.Platform]core.Fetcher
}

// NewFactory builds a resolver over the given adapters.
func NewFactory(fetchers map[model.Platform]core.Fetcher) *Factory {
	table := make(map[model.Platform]core.Fetcher, len(fetchers))
	for platform, fetcher := range fetchers {
		table[platform] = fetcher
	}
	return &Factory{fetchers: table}
}

// Resolve implements core.FetcherResolver.
func (f *Factory) Resolve(platform model.Platform) (core.Fetcher, error) {
	fetcher, ok := f.fetchers[platform]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeUnsupportedPlatform, "unsupported platform: %s", platform)
	}
	return fetcher, nil
}
