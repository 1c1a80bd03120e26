// Package position keeps sibling entities (chapters in a course, lessons in
// a chapter) at dense 1-based positions. It performs no I/O: callers read the
// current siblings, ask for the writes, and apply them in one transaction.
package position

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrInvalidReorderSet = errors.New("reorder set must contain every sibling exactly once")
	ErrNotFound          = errors.New("item is not a sibling of this parent")
	ErrNotContiguous     = errors.New("sibling positions are not contiguous")
)

// Item is one sibling as currently stored.
type Item struct {
	ID       uuid.UUID
	Position int
}

// Assignment is a single position write.
type Assignment struct {
	ID       uuid.UUID
	Position int
}

// Next returns the position for a newly appended sibling. Freed positions
// are never reused; new siblings always go to the end.
func Next(siblings []Item) int {
	max := 0
	for _, s := range siblings {
		if s.Position > max {
			max = s.Position
		}
	}
	return max + 1
}

// Reorder assigns desired[i] to position i+1. desired must be a permutation
// of the current sibling ids. Only writes that change a stored position are
// returned, so reordering a single sibling yields none.
func Reorder(current []Item, desired []uuid.UUID) ([]Assignment, error) {
	if len(desired) != len(current) {
		return nil, fmt.Errorf("%w: got %d ids for %d siblings", ErrInvalidReorderSet, len(desired), len(current))
	}

	stored := make(map[uuid.UUID]int, len(current))
	for _, s := range current {
		stored[s.ID] = s.Position
	}

	seen := make(map[uuid.UUID]struct{}, len(desired))
	writes := make([]Assignment, 0, len(desired))
	for i, id := range desired {
		old, ok := stored[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s does not belong to this parent", ErrInvalidReorderSet, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidReorderSet, id)
		}
		seen[id] = struct{}{}
		if old != i+1 {
			writes = append(writes, Assignment{ID: id, Position: i + 1})
		}
	}
	return writes, nil
}

// Remove computes the writes that close the gap left by target. Remaining
// siblings keep their relative order and are renumbered 1..n-1; for an
// already contiguous set this touches only the siblings after target.
func Remove(siblings []Item, target uuid.UUID) ([]Assignment, error) {
	ordered := Sorted(siblings)

	found := false
	remaining := make([]Item, 0, len(ordered))
	for _, s := range ordered {
		if s.ID == target {
			found = true
			continue
		}
		remaining = append(remaining, s)
	}
	if !found {
		return nil, ErrNotFound
	}

	writes := make([]Assignment, 0, len(remaining))
	for i, s := range remaining {
		if s.Position != i+1 {
			writes = append(writes, Assignment{ID: s.ID, Position: i + 1})
		}
	}
	return writes, nil
}

// Validate returns ErrNotContiguous unless positions are exactly {1..n}.
func Validate(positions []int) error {
	seen := make([]bool, len(positions)+1)
	for _, p := range positions {
		if p < 1 || p > len(positions) || seen[p] {
			return fmt.Errorf("%w: %v", ErrNotContiguous, positions)
		}
		seen[p] = true
	}
	return nil
}

// Sorted returns a copy of items ordered by position, ties broken by id so
// the result is deterministic.
func Sorted(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Apply returns items with writes applied, ordered by position. It is used
// to check a change set before it reaches storage.
func Apply(items []Item, writes []Assignment) []Item {
	next := make(map[uuid.UUID]int, len(writes))
	for _, w := range writes {
		next[w.ID] = w.Position
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if p, ok := next[it.ID]; ok {
			it.Position = p
		}
		out[i] = it
	}
	return Sorted(out)
}

// Positions extracts the position of every item.
func Positions(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Position
	}
	return out
}
