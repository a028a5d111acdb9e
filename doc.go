// Package lsm is an embeddable ordered key-value store built as a
// log-structured merge tree.
//
// Writes go to an in-memory skip list. When it grows past the configured
// size it is frozen and a background flusher writes it to level 0 as a
// sorted table. A background compactor merges any level that holds more
// tables than its bound into the next level as a run of non-overlapping
// tables. Reads consult the writebuffer, the frozen writebuffers and then
// the levels, newest data first.
//
// Keys are ordered by length first and then bytewise. An empty value is a
// deletion marker. There is no write-ahead log: data not yet flushed is lost
// when the process exits.
package lsm
