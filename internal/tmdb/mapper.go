package tmdb

import (
	"time"

	"github.com/mmcdole/marquee/internal/domain"
)

// MapPage converts a now playing response to a domain page
func MapPage(resp *NowPlayingResponse) domain.Page {
	items := make([]domain.Movie, 0, len(resp.Results))
	for _, m := range resp.Results {
		items = append(items, MapMovie(m))
	}
	return domain.Page{
		Items:      items,
		Number:     resp.Page,
		TotalItems: resp.TotalResults,
		TotalPages: resp.TotalPages,
	}
}

// MapMovie converts a movie result to a domain movie
func MapMovie(m MovieDTO) domain.Movie {
	return domain.Movie{
		ID:           m.ID,
		Title:        m.Title,
		Overview:     m.Overview,
		PosterPath:   deref(m.PosterPath),
		BackdropPath: deref(m.BackdropPath),
		ReleaseDate:  parseDate(m.ReleaseDate),
		VoteAverage:  m.VoteAverage,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseDate returns the zero time for empty or malformed dates
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
