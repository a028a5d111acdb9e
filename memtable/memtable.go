package memtable

import (
	"github.com/AmrMurad1/go-lsm/shared"
)

// Memtable is the writebuffer: a skip list plus the payload accounting the
// tree uses to decide when to freeze it. Callers provide synchronization.
type Memtable struct {
	skiplist *SkipList
}

func NewMemtable(expected int) *Memtable {
	return &Memtable{skiplist: New(expected)}
}

// Set inserts or overwrites key. The memtable keeps references to key and
// value, so callers must not modify them afterwards.
func (m *Memtable) Set(key, value []byte) int {
	if value == nil {
		value = []byte{}
	}
	return m.skiplist.Set(shared.Pair{Key: key, Value: value})
}

// Delete writes a tombstone for key.
func (m *Memtable) Delete(key []byte) int {
	return m.Set(key, nil)
}

// Get returns the newest value for key and whether the key is present. A
// tombstone is present with an empty value.
func (m *Memtable) Get(key []byte) ([]byte, bool) {
	return m.skiplist.Get(key)
}

// Size is the payload in bytes: the sum of key and value lengths.
func (m *Memtable) Size() int {
	return m.skiplist.Size()
}

func (m *Memtable) Count() int {
	return m.skiplist.Len()
}

func (m *Memtable) Empty() bool {
	return m.skiplist.Len() == 0
}

// NewIterator scans the memtable in key order. The memtable must not be
// modified while the iterator is in use.
func (m *Memtable) NewIterator() *Iterator {
	return &Iterator{list: m.skiplist}
}

// Iterator walks the bottom level of a skip list.
type Iterator struct {
	list *SkipList
	curr *Element
	done bool
}

func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.curr == nil {
		it.curr = it.list.Front()
	} else {
		it.curr = it.curr.Next()
	}
	if it.curr == nil {
		it.done = true
		return false
	}
	return true
}

func (it *Iterator) Pair() shared.Pair {
	return it.curr.Pair
}

func (it *Iterator) Err() error {
	return nil
}
