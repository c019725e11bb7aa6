package capability

import (
	"iter"
	"sync/atomic"
)

// SingleUse wraps seq so that only its first iteration yields anything.
func SingleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

// Paged returns a lazy sequence over a listing fetched in pages. next receives
// the last name returned so far ("" for the first page) and returns up to one
// page of names that sort after it; an empty page ends the sequence.
func Paged(next func(after string) ([]string, error)) iter.Seq2[string, error] {
	return SingleUse(func(yield func(string, error) bool) {
		after := ""
		for {
			page, err := next(after)
			if err != nil {
				yield("", err)
				return
			}
			if len(page) == 0 {
				return
			}
			for _, name := range page {
				if !yield(name, nil) {
					return
				}
			}
			after = page[len(page)-1]
		}
	})
}
