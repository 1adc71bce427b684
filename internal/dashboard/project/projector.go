// Package project derives the ordered lists and aggregate counts every view
// renders from. All derivation is recomputed per call from the snapshot, so
// nothing here can drift from the store.
package project

import (
	"sort"

	"restaurant-sync/internal/dashboard/reconcile"
	"restaurant-sync/internal/domain"
)

type Filter string

const (
	FilterActive Filter = "active" // new, in_kitchen, ready
	FilterAll    Filter = "all"
)

type SortKey string

const (
	OldestFirst SortKey = "oldest_first"
	NewestFirst SortKey = "newest_first"
)

// Project returns the filtered, sorted order list. Equal creation timestamps
// tie-break on id so the output is stable between calls.
func Project(orders reconcile.Snapshot, filter Filter, key SortKey) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter == FilterActive && !o.Status.Active() {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if key == NewestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Counts are the per-status and active totals for one snapshot.
type Counts struct {
	ByStatus map[domain.Status]int
	Active   int
	Total    int
}

// Count computes aggregates over the full snapshot.
func Count(orders reconcile.Snapshot) Counts {
	c := Counts{ByStatus: make(map[domain.Status]int, 5)}
	for _, o := range orders {
		c.ByStatus[o.Status]++
		c.Total++
		if o.Status.Active() {
			c.Active++
		}
	}
	return c
}
