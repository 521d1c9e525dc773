package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/simulator"
	"github.com/mmcdole/marquee/internal/tmdb"
)

func TestNewFetcher(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Remote
	_, err := NewFetcher(&cfg, log.NullLogger())
	require.Error(t, err, "tmdb without a key")

	cfg.APIKey = "k"
	f, err := NewFetcher(&cfg, log.NullLogger())
	require.NoError(t, err)
	assert.IsType(t, &tmdb.Client{}, f)

	cfg.Type = config.SourceTypeSimulated
	f, err = NewFetcher(&cfg, log.NullLogger())
	require.NoError(t, err)
	assert.IsType(t, &simulator.Fetcher{}, f)

	cfg.Type = "ftp"
	_, err = NewFetcher(&cfg, log.NullLogger())
	assert.Error(t, err)

	_, err = NewFetcher(nil, nil)
	assert.Error(t, err)
}
