package tmdb

// NowPlayingResponse is the body of GET /movie/now_playing
type NowPlayingResponse struct {
	Page         int        `json:"page"`
	Results      []MovieDTO `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Dates        *DateRange `json:"dates,omitempty"`
}

// DateRange is the release window TMDB considers "now playing"
type DateRange struct {
	Maximum string `json:"maximum"`
	Minimum string `json:"minimum"`
}

// MovieDTO is a movie list result
type MovieDTO struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"` // "2006-01-02", may be empty
	VoteAverage  float64 `json:"vote_average"`
}

// ErrorResponse is returned by TMDB alongside non-2xx status codes
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
