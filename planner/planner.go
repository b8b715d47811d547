// Package planner partitions a batch of pending work items into ordered,
// memory-bounded launch groups.
package planner

import (
	"errors"
)

// ErrInvalidBudget is returned for a non-positive memory budget.
var ErrInvalidBudget = errors.New("planner: budget must be positive")

// Item is one unit of pending work with its estimated device footprint.
type Item struct {
	Index int   // caller-side identity, carried through unchanged
	Bytes int64 // estimated device bytes
}

// Chunk is an ordered group of items launched together.
type Chunk struct {
	Items []Item
	Bytes int64 // sum of the item costs, never above the budget
}

// Indices returns the caller-side identities of the chunk items in order.
func (c Chunk) Indices() []int {
	out := make([]int, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.Index
	}
	return out
}

// Plan groups items greedily in arrival order: an item is appended to the
// current chunk while the running total stays within budget, otherwise a
// new chunk is opened. Items are never reordered. Items whose own cost is
// above budget cannot be scheduled and are returned in oversized instead.
func Plan(items []Item, budget int64) (chunks []Chunk, oversized []Item, err error) {
	if budget <= 0 {
		return nil, nil, ErrInvalidBudget
	}

	var cur Chunk
	for _, it := range items {
		if it.Bytes > budget {
			oversized = append(oversized, it)
			continue
		}
		if len(cur.Items) > 0 && cur.Bytes+it.Bytes > budget {
			chunks = append(chunks, cur)
			cur = Chunk{}
		}
		cur.Items = append(cur.Items, it)
		cur.Bytes += it.Bytes
	}
	if len(cur.Items) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks, oversized, nil
}

// Largest returns the biggest chunk footprint, the scratch capacity needed
// to run every chunk one after the other.
func Largest(chunks []Chunk) int64 {
	var m int64
	for _, c := range chunks {
		m = max(m, c.Bytes)
	}
	return m
}
