package index

import (
	"math/bits"

	"github.com/google/uuid"
)

// Segment is an immutable batch of analyzed documents.
type Segment struct {
	id     uuid.UUID
	docs   []Document
	fields []Fields
}

func newSegment(docs []Document, fields []Fields) *Segment {
	return &Segment{id: uuid.New(), docs: docs, fields: fields}
}

// ID returns the segment identifier.
func (s *Segment) ID() uuid.UUID { return s.id }

// Len returns the number of documents, live or not.
func (s *Segment) Len() int { return len(s.docs) }

// liveSet marks the live documents of a segment. It is never mutated once
// published; deletions copy it.
type liveSet []uint64

func newLiveSet(n int) liveSet {
	s := make(liveSet, (n+63)/64)
	for i := range s {
		s[i] = ^uint64(0)
	}
	if rem := n % 64; rem != 0 {
		s[len(s)-1] = (uint64(1) << rem) - 1
	}
	return s
}

func (s liveSet) has(i int) bool {
	return s[i/64]&(uint64(1)<<(i%64)) != 0
}

func (s liveSet) without(ords []int) liveSet {
	out := make(liveSet, len(s))
	copy(out, s)
	for _, i := range ords {
		out[i/64] &^= uint64(1) << (i % 64)
	}
	return out
}

func (s liveSet) count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}
