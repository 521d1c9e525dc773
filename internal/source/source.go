// Package source builds the configured remote page source.
package source

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/simulator"
	"github.com/mmcdole/marquee/internal/tmdb"
)

// NewFetcher creates a PageFetcher based on the remote type.
func NewFetcher(cfg *config.RemoteConfig, logger *slog.Logger) (domain.PageFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("remote config is nil")
	}

	switch cfg.Type {
	case config.SourceTypeTMDB:
		if cfg.URL == "" {
			return nil, fmt.Errorf("remote URL is required")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("TMDB API key is required")
		}
		return tmdb.NewClient(cfg.URL, cfg.APIKey, tmdb.Options{
			Language:      cfg.Language,
			Region:        cfg.Region,
			Timeout:       cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
		}, logger), nil

	case config.SourceTypeSimulated:
		return simulator.New(simulator.Options{}), nil

	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
