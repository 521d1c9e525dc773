// Package reconcile decides how a freshly fetched page relates to the
// locally cached sequence. Everything here is pure: callers gather the
// inputs from the store and apply the returned Decision themselves.
package reconcile

import "github.com/mmcdole/marquee/internal/domain"

// Action is the kind of store change a Decision asks for
type Action int

const (
	NoFetch              Action = iota // nothing left to load
	NoOp                               // page loaded, nothing to insert
	Prepend                            // insert Items before the current head
	Append                             // insert Items after the current tail
	Invalidate                         // clear the store, insert nothing
	InvalidateAndReplace               // clear the store, rebuild from Items
)

// String returns the lowercase name of the action
func (a Action) String() string {
	switch a {
	case NoFetch:
		return "no_fetch"
	case NoOp:
		return "noop"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	case Invalidate:
		return "invalidate"
	case InvalidateAndReplace:
		return "invalidate_and_replace"
	default:
		return "unknown"
	}
}

// Invalidates reports whether the action discards the cached sequence
func (a Action) Invalidates() bool {
	return a == Invalidate || a == InvalidateAndReplace
}

// Decision is the outcome of reconciling one page
type Decision struct {
	Action Action
	Items  []domain.Movie // movies to insert, in list order
	Reason string         // short human readable cause, for logs
}

// HeadInput carries everything DecideHead needs
type HeadInput struct {
	Candidate    domain.Page
	Overlap      []domain.StoredMovie // stored movies present in Candidate, by ascending sort index
	FirstLoad    bool                 // no page was ever loaded
	MinSortIndex int64
	HasMin       bool
}

// TailInput carries everything DecideTail needs
type TailInput struct {
	Candidate      domain.Page
	Overlap        []domain.StoredMovie
	LastPageLoaded int
	TotalPages     int
	MaxSortIndex   int64
	HasMax         bool
}

// DecideHead reconciles a fresh copy of page 1 against the cached head.
func DecideHead(in HeadInput) Decision {
	items := in.Candidate.Items
	overlap := in.Overlap

	if len(items) == 0 {
		return Decision{Action: Invalidate, Reason: "remote list is empty"}
	}

	if len(overlap) == 0 {
		if in.FirstLoad {
			return Decision{Action: Prepend, Items: items, Reason: "first load"}
		}
		return replace(items, "no overlap with cached head")
	}

	if HasGap(overlap) {
		return replace(items, "gap in cached overlap")
	}

	if !IsTailOf(overlap, items) {
		return replace(items, "overlap is not the tail of page 1")
	}

	if !in.HasMin || overlap[0].SortIndex != in.MinSortIndex {
		return replace(items, "cached head has items missing remotely")
	}

	end := indexOf(items, overlap[0].Movie.ID)
	return Decision{Action: Prepend, Items: items[:end], Reason: "new items at head"}
}

// DecideTail reconciles page lastPageLoaded+1 against the cached tail.
func DecideTail(in TailInput) Decision {
	if Exhausted(in.LastPageLoaded, in.TotalPages) {
		return Decision{Action: NoFetch, Reason: "all pages loaded"}
	}

	items := in.Candidate.Items
	overlap := in.Overlap

	if len(items) == 0 {
		return Decision{Action: NoOp, Reason: "empty page"}
	}

	if len(overlap) == 0 {
		return Decision{Action: Append, Items: items, Reason: "no overlap"}
	}

	if HasGap(overlap) {
		return replace(items, "gap in cached overlap")
	}

	if !IsHeadOf(overlap, items) {
		return replace(items, "overlap is not the head of the page")
	}

	last := overlap[len(overlap)-1]
	if len(items) > len(overlap) && (!in.HasMax || last.SortIndex != in.MaxSortIndex) {
		return replace(items, "cached tail has items missing remotely")
	}

	start := lastIndexOf(items, last.Movie.ID) + 1
	return Decision{Action: Append, Items: items[start:], Reason: "items after overlap"}
}

// Exhausted reports whether there is no further page to load.
// A shrinking remote page count also counts as exhausted.
func Exhausted(lastPageLoaded, totalPages int) bool {
	return lastPageLoaded >= totalPages
}

// PrependIndices returns n sort indices that sort before min, in ascending
// order. An empty store starts at zero.
func PrependIndices(n int, min int64, hasMin bool) []int64 {
	start := int64(0)
	if hasMin {
		start = min - int64(n)
	}
	return sequence(start, n)
}

// AppendIndices returns n sort indices that sort after max, in ascending order.
func AppendIndices(n int, max int64, hasMax bool) []int64 {
	start := int64(0)
	if hasMax {
		start = max + 1
	}
	return sequence(start, n)
}

// Assign pairs movies with sort indices of the same length.
func Assign(movies []domain.Movie, indices []int64) []domain.StoredMovie {
	out := make([]domain.StoredMovie, len(movies))
	for i, m := range movies {
		out[i] = domain.StoredMovie{Movie: m, SortIndex: indices[i]}
	}
	return out
}

func replace(items []domain.Movie, reason string) Decision {
	return Decision{Action: InvalidateAndReplace, Items: items, Reason: reason}
}

func sequence(start int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = start + int64(i)
	}
	return out
}
