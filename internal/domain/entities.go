package domain

import (
	"fmt"
	"time"
)

// Movie is a single entry of the remote Now Playing list.
// Values are produced by a PageFetcher and never modified afterwards.
type Movie struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	ReleaseDate  time.Time `json:"release_date"`
	VoteAverage  float64   `json:"vote_average,omitempty"`
}

// Year returns the release year (0 if unknown)
func (m Movie) Year() int {
	if m.ReleaseDate.IsZero() {
		return 0
	}
	return m.ReleaseDate.Year()
}

// FormattedRating returns the vote average with one decimal, or "" when unrated
func (m Movie) FormattedRating() string {
	if m.VoteAverage <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", m.VoteAverage)
}

// Page is one response of the remote paged API.
// Content for a given page number may differ between fetches.
type Page struct {
	Items      []Movie
	Number     int
	TotalItems int
	TotalPages int
}

// IDs returns the identifiers of the page items in page order
func (p Page) IDs() []int64 {
	ids := make([]int64, len(p.Items))
	for i, m := range p.Items {
		ids[i] = m.ID
	}
	return ids
}

// StoredMovie is a Movie persisted with its local position.
// Lower SortIndex means earlier in the list.
type StoredMovie struct {
	Movie     `json:"movie"`
	SortIndex int64 `json:"sort_index"`
}
