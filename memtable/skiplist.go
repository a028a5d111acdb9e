package memtable

import (
	"math"
	"math/rand"
	"time"

	"github.com/AmrMurad1/go-lsm/shared"
)

// DefaultP is the probability that a node is promoted one more level.
const DefaultP = 0.5

// SkipList is an ordered map from key to the latest pair written for it. It
// is not safe for concurrent use; the tree serializes access.
type SkipList struct {
	maxLevel int
	p        float64
	level    int
	rand     *rand.Rand
	size     int
	count    int
	head     *Element
}

type Element struct {
	shared.Pair
	next []*Element
}

// New returns an empty list whose height is bounded by log2 of the number of
// elements it is expected to hold.
func New(expected int) *SkipList {
	return NewWithLevel(MaxLevelFor(expected), DefaultP)
}

func NewWithLevel(maxLevel int, p float64) *SkipList {
	if maxLevel < 1 {
		maxLevel = 1
	}
	return &SkipList{
		maxLevel: maxLevel,
		p:        p,
		level:    1,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		head:     &Element{next: make([]*Element, maxLevel)},
	}
}

// MaxLevelFor returns ceil(log2(expected)), at least 1.
func MaxLevelFor(expected int) int {
	if expected <= 2 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(expected))))
}

// Size is the sum of key and value lengths over all entries.
func (s *SkipList) Size() int {
	return s.size
}

func (s *SkipList) Len() int {
	return s.count
}

// Set inserts pair or overwrites the value stored for its key, and returns
// the change in Size.
func (s *SkipList) Set(pair shared.Pair) int {
	curr := s.head
	update := make([]*Element, s.maxLevel)

	for i := s.level - 1; i >= 0; i-- {
		for curr.next[i] != nil && shared.Compare(curr.next[i].Key, pair.Key) < 0 {
			curr = curr.next[i]
		}
		update[i] = curr
	}

	// overwrite
	if next := curr.next[0]; next != nil && shared.Compare(next.Key, pair.Key) == 0 {
		delta := len(pair.Value) - len(next.Value)
		next.Value = pair.Value
		s.size += delta
		return delta
	}

	level := s.randomLevel()
	if level > s.level {
		for i := s.level; i < level; i++ {
			update[i] = s.head
		}
		s.level = level
	}

	e := &Element{
		Pair: pair,
		next: make([]*Element, level),
	}
	for i := 0; i < level; i++ {
		e.next[i] = update[i].next[i]
		update[i].next[i] = e
	}

	delta := pair.Size()
	s.size += delta
	s.count++
	return delta
}

// Get returns the value stored for key. A present key with an empty value is
// reported as found.
func (s *SkipList) Get(key []byte) ([]byte, bool) {
	curr := s.head
	for i := s.level - 1; i >= 0; i-- {
		for curr.next[i] != nil && shared.Compare(curr.next[i].Key, key) < 0 {
			curr = curr.next[i]
		}
	}
	curr = curr.next[0]

	if curr != nil && shared.Compare(curr.Key, key) == 0 {
		return curr.Value, true
	}
	return nil, false
}

// Front returns the smallest element, or nil when the list is empty.
func (s *SkipList) Front() *Element {
	return s.head.next[0]
}

// Next returns the element following e on the bottom level.
func (e *Element) Next() *Element {
	return e.next[0]
}

func (s *SkipList) randomLevel() int {
	level := 1
	for s.rand.Float64() < s.p && level < s.maxLevel {
		level++
	}
	return level
}
