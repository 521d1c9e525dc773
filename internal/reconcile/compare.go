package reconcile

import "github.com/mmcdole/marquee/internal/domain"

// IsTailOf reports whether the identifiers of sub, in order, are exactly the
// last len(sub) identifiers of full. The match is anchored on the first
// occurrence of sub[0] in full.
func IsTailOf(sub []domain.StoredMovie, full []domain.Movie) bool {
	if len(sub) == 0 {
		return true
	}
	if len(full) == 0 {
		return false
	}

	index := indexOf(full, sub[0].Movie.ID)
	if index < 0 || len(sub) != len(full)-index {
		return false
	}
	for i, s := range sub {
		if s.Movie.ID != full[index+i].ID {
			return false
		}
	}
	return true
}

// IsHeadOf reports whether the identifiers of sub, in order, are exactly the
// first len(sub) identifiers of full. The match is anchored on the last
// occurrence of the last element of sub in full.
func IsHeadOf(sub []domain.StoredMovie, full []domain.Movie) bool {
	if len(sub) == 0 {
		return true
	}
	if len(full) == 0 {
		return false
	}

	index := lastIndexOf(full, sub[len(sub)-1].Movie.ID)
	if index < 0 || index+1 != len(sub) {
		return false
	}
	for i, s := range sub {
		if s.Movie.ID != full[i].ID {
			return false
		}
	}
	return true
}

// HasGap reports whether any adjacent pair of items differs in sort index by
// something other than exactly one. Items are compared in the order given.
func HasGap(items []domain.StoredMovie) bool {
	for i := 1; i < len(items); i++ {
		if items[i].SortIndex-items[i-1].SortIndex != 1 {
			return true
		}
	}
	return false
}

func indexOf(items []domain.Movie, id int64) int {
	for i, m := range items {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func lastIndexOf(items []domain.Movie, id int64) int {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
