package iterator

import (
	"container/heap"

	"github.com/AmrMurad1/go-lsm/shared"
)

type mergeItem struct {
	pair shared.Pair
	rank int
}

// mergeHeap orders items by key, then by rank.
type mergeHeap struct {
	items   []mergeItem
	sources []Iterator
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	if c := shared.Compare(h.items[i].pair.Key, h.items[j].pair.Key); c != 0 {
		return c < 0
	}
	return h.items[i].rank < h.items[j].rank
}

func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap) Push(x any) { h.items = append(h.items, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

// Merger is a k-way merge of sorted sources. Each source's rank is its
// position in the argument list, and on equal keys only the pair from the
// lowest rank is emitted.
type Merger struct {
	h    mergeHeap
	curr shared.Pair
	err  error
}

func NewMerger(sources ...Iterator) *Merger {
	m := &Merger{h: mergeHeap{sources: sources}}
	for rank := range sources {
		m.advance(rank)
	}
	heap.Init(&m.h)
	return m
}

// advance pulls the next pair of a source and pushes it onto the heap.
func (m *Merger) advance(rank int) {
	src := m.h.sources[rank]
	if src.Next() {
		m.h.items = append(m.h.items, mergeItem{pair: src.Pair(), rank: rank})
		return
	}
	if err := src.Err(); err != nil && m.err == nil {
		m.err = err
	}
}

func (m *Merger) Next() bool {
	if m.err != nil || m.h.Len() == 0 {
		return false
	}
	top := heap.Pop(&m.h).(mergeItem)
	m.curr = top.pair
	m.push(top.rank)

	// drop shadowed pairs
	for m.err == nil && m.h.Len() > 0 && shared.Compare(m.h.items[0].pair.Key, top.pair.Key) == 0 {
		dup := heap.Pop(&m.h).(mergeItem)
		m.push(dup.rank)
	}
	return m.err == nil
}

func (m *Merger) push(rank int) {
	src := m.h.sources[rank]
	if src.Next() {
		heap.Push(&m.h, mergeItem{pair: src.Pair(), rank: rank})
		return
	}
	if err := src.Err(); err != nil && m.err == nil {
		m.err = err
	}
}

func (m *Merger) Pair() shared.Pair {
	return m.curr
}

func (m *Merger) Err() error {
	return m.err
}

// Unique drops every pair whose key equals the key of the pair emitted just
// before it, so the first of each run of equal keys wins.
type Unique struct {
	it      Iterator
	curr    shared.Pair
	started bool
}

func NewUnique(it Iterator) *Unique {
	return &Unique{it: it}
}

func (u *Unique) Next() bool {
	for u.it.Next() {
		p := u.it.Pair()
		if u.started && shared.Compare(p.Key, u.curr.Key) == 0 {
			continue
		}
		u.curr = p
		u.started = true
		return true
	}
	return false
}

func (u *Unique) Pair() shared.Pair {
	return u.curr
}

func (u *Unique) Err() error {
	return u.it.Err()
}

// DropTombstones filters out pairs with an empty value.
type DropTombstones struct {
	it Iterator
}

func NewDropTombstones(it Iterator) *DropTombstones {
	return &DropTombstones{it: it}
}

func (d *DropTombstones) Next() bool {
	for d.it.Next() {
		if !d.it.Pair().IsTombstone() {
			return true
		}
	}
	return false
}

func (d *DropTombstones) Pair() shared.Pair {
	return d.it.Pair()
}

func (d *DropTombstones) Err() error {
	return d.it.Err()
}
