package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

func TestFactory_Resolve(t *testing.T) {
	github := NewGitHubFetcher("http://unused", nil, NewTokenPool(nil, TokenPoolOptions{}), RetryPolicy{})
	factory := NewFactory(map[model.Platform]core.Fetcher{
		model.PlatformGitHub: github,
	})

	got, err := factory.Resolve(model.PlatformGitHub)
	require.NoError(t, err)
	assert.Same(t, github, got)

	_, err = factory.Resolve(model.PlatformBitbucket)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnsupportedPlatform(err))
}
