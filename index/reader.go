package index

import (
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/hugr-lab/viewsearch/value"
)

// Reader is an immutable point-in-time view of an index: a fixed segment
// set with frozen liveness. Safe for concurrent use.
type Reader struct {
	segments []segmentState
	tick     uint64
	live     int
}

type segmentState struct {
	seg  *Segment
	live liveSet
}

// Empty returns a reader without documents.
func Empty() *Reader { return &Reader{} }

// Tick returns the commit sequence number the reader was published at.
func (r *Reader) Tick() uint64 { return r.tick }

// Len returns the number of live documents.
func (r *Reader) Len() int { return r.live }

// Segments returns the ids of the segments in order.
func (r *Reader) Segments() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.segments))
	for i, s := range r.segments {
		ids[i] = s.seg.id
	}
	return ids
}

// Docs yields live documents in segment order.
func (r *Reader) Docs() iter.Seq[Doc] {
	return func(yield func(Doc) bool) {
		for _, s := range r.segments {
			for i := range s.seg.docs {
				if !s.live.has(i) {
					continue
				}
				if !yield(Doc{seg: s.seg, ord: i}) {
					return
				}
			}
		}
	}
}

// Lookup returns the live document with key.
func (r *Reader) Lookup(key string) (Doc, bool) {
	for i := len(r.segments) - 1; i >= 0; i-- {
		s := r.segments[i]
		for j, d := range s.seg.docs {
			if d.Key == key && s.live.has(j) {
				return Doc{seg: s.seg, ord: j}, true
			}
		}
	}
	return Doc{}, false
}

// Doc addresses one document of a segment.
type Doc struct {
	seg *Segment
	ord int
}

// Key returns the document key.
func (d Doc) Key() string { return d.seg.docs[d.ord].Key }

// Body returns the stored document.
func (d Doc) Body() value.Value { return d.seg.docs[d.ord].Body }

// Segment returns the id of the containing segment.
func (d Doc) Segment() uuid.UUID { return d.seg.id }

// Values returns the indexed values of field.
func (d Doc) Values(field string) []Entry { return d.seg.fields[d.ord][field] }

// Fields returns every indexed field of the document.
func (d Doc) Fields() Fields { return d.seg.fields[d.ord] }

// Has reports whether the document has field or any field nested below it.
func (d Doc) Has(field string) bool {
	fields := d.seg.fields[d.ord]
	if _, ok := fields[field]; ok {
		return true
	}
	for name := range fields {
		if len(name) > len(field) && strings.HasPrefix(name, field) {
			if c := name[len(field)]; c == '.' || c == '[' {
				return true
			}
		}
	}
	return false
}
