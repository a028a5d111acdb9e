// Package iterator provides ordered pair streams and the k-way merge used by
// flushes and compactions.
package iterator

import "github.com/AmrMurad1/go-lsm/shared"

// Iterator yields pairs in key order. Next must be called before the first
// Pair; once Next returns false, Err reports whether the stream ended
// because of a failure.
type Iterator interface {
	Next() bool
	Pair() shared.Pair
	Err() error
}

// Slice iterates over pairs that are already sorted.
type Slice struct {
	pairs []shared.Pair
	pos   int
}

func NewSlice(pairs []shared.Pair) *Slice {
	return &Slice{pairs: pairs, pos: -1}
}

func (s *Slice) Next() bool {
	if s.pos+1 >= len(s.pairs) {
		s.pos = len(s.pairs)
		return false
	}
	s.pos++
	return true
}

func (s *Slice) Pair() shared.Pair {
	return s.pairs[s.pos]
}

func (s *Slice) Err() error {
	return nil
}

// Collect drains it into a slice.
func Collect(it Iterator) ([]shared.Pair, error) {
	var out []shared.Pair
	for it.Next() {
		out = append(out, it.Pair())
	}
	return out, it.Err()
}

// Peeker wraps an iterator with one pair of lookahead so that a consumer can
// stop between pairs and resume later without losing one.
type Peeker struct {
	it      Iterator
	head    shared.Pair
	hasHead bool
	curr    shared.Pair
}

func NewPeeker(it Iterator) *Peeker {
	p := &Peeker{it: it}
	p.fill()
	return p
}

func (p *Peeker) fill() {
	p.hasHead = p.it.Next()
	if p.hasHead {
		p.head = p.it.Pair()
	}
}

// HasNext reports whether a following call to Next would succeed.
func (p *Peeker) HasNext() bool {
	return p.hasHead
}

// Peek returns the pair the next call to Next will yield.
func (p *Peeker) Peek() shared.Pair {
	return p.head
}

func (p *Peeker) Next() bool {
	if !p.hasHead {
		return false
	}
	p.curr = p.head
	p.fill()
	return true
}

func (p *Peeker) Pair() shared.Pair {
	return p.curr
}

func (p *Peeker) Err() error {
	return p.it.Err()
}
