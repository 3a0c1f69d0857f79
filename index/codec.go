package index

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/internal/msgpack"
	"github.com/hugr-lab/viewsearch/internal/serialize"
	"github.com/hugr-lab/viewsearch/value"
)

const formatVersion = 1

var magic = []byte("VSIX")

// ErrCorrupt indicates an index blob that cannot be decoded.
var ErrCorrupt = errors.New("corrupt index data")

type wireIndex struct {
	Version  int           `msgpack:"version"`
	View     string        `msgpack:"view"`
	Tick     uint64        `msgpack:"tick"`
	Segments []wireSegment `msgpack:"segments"`
}

type wireSegment struct {
	ID   string    `msgpack:"id"`
	Live []uint64  `msgpack:"live"`
	Docs []wireDoc `msgpack:"docs"`
}

type wireDoc struct {
	Key    string                 `msgpack:"key"`
	Body   value.Value            `msgpack:"body"`
	Fields map[string][]wireEntry `msgpack:"fields"`
}

type wireEntry struct {
	Value  value.Value                 `msgpack:"v"`
	Tokens map[string][]analysis.Token `msgpack:"t,omitempty"`
	Shapes map[string][]byte           `msgpack:"s,omitempty"`
}

// Encode serializes the reader's segments, liveness and analyzed fields as
// compressed MessagePack.
func Encode(view string, r *Reader) ([]byte, error) {
	wi := wireIndex{Version: formatVersion, View: view, Tick: r.tick}
	for _, s := range r.segments {
		ws := wireSegment{ID: s.seg.id.String(), Live: s.live, Docs: make([]wireDoc, len(s.seg.docs))}
		for i, d := range s.seg.docs {
			fields, err := encodeFields(s.seg.fields[i])
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", d.Key, err)
			}
			ws.Docs[i] = wireDoc{Key: d.Key, Body: d.Body, Fields: fields}
		}
		wi.Segments = append(wi.Segments, ws)
	}

	data, err := msgpack.Encode(&wi)
	if err != nil {
		return nil, err
	}
	compressed, err := serialize.Compress(data)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, magic...), compressed...), nil
}

func encodeFields(fields Fields) (map[string][]wireEntry, error) {
	out := make(map[string][]wireEntry, len(fields))
	for name, entries := range fields {
		we := make([]wireEntry, len(entries))
		for i, e := range entries {
			we[i] = wireEntry{Value: e.Value, Tokens: e.Tokens}
			if len(e.Shapes) > 0 {
				we[i].Shapes = make(map[string][]byte, len(e.Shapes))
				for an, g := range e.Shapes {
					b, err := analysis.EncodeGeometry(g)
					if err != nil {
						return nil, fmt.Errorf("field %s: %w", name, err)
					}
					we[i].Shapes[an] = b
				}
			}
		}
		out[name] = we
	}
	return out, nil
}

// Decode reverses Encode. It returns the view name the data was written for.
func Decode(data []byte) (string, *Reader, error) {
	if !bytes.HasPrefix(data, magic) {
		return "", nil, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	raw, err := serialize.Decompress(data[len(magic):])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var wi wireIndex
	if err := msgpack.Decode(raw, &wi); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if wi.Version != formatVersion {
		return "", nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, wi.Version)
	}

	r := &Reader{tick: wi.Tick}
	for _, ws := range wi.Segments {
		id, err := uuid.Parse(ws.ID)
		if err != nil {
			return "", nil, fmt.Errorf("%w: segment id: %v", ErrCorrupt, err)
		}
		if len(ws.Live) != (len(ws.Docs)+63)/64 {
			return "", nil, fmt.Errorf("%w: segment %s liveness size", ErrCorrupt, id)
		}
		seg := &Segment{id: id, docs: make([]Document, len(ws.Docs)), fields: make([]Fields, len(ws.Docs))}
		for i, wd := range ws.Docs {
			seg.docs[i] = Document{Key: wd.Key, Body: wd.Body}
			if seg.fields[i], err = decodeFields(wd.Fields); err != nil {
				return "", nil, fmt.Errorf("%w: document %s: %v", ErrCorrupt, wd.Key, err)
			}
		}
		live := liveSet(ws.Live)
		r.segments = append(r.segments, segmentState{seg: seg, live: live})
		r.live += live.count()
	}
	return wi.View, r, nil
}

func decodeFields(in map[string][]wireEntry) (Fields, error) {
	out := make(Fields, len(in))
	for name, we := range in {
		entries := make([]Entry, len(we))
		for i, w := range we {
			entries[i] = Entry{Value: w.Value, Tokens: w.Tokens}
			if len(w.Shapes) > 0 {
				entries[i].Shapes = make(map[string]orb.Geometry, len(w.Shapes))
				for an, b := range w.Shapes {
					g, err := analysis.DecodeGeometry(b)
					if err != nil {
						return nil, err
					}
					entries[i].Shapes[an] = g
				}
			}
		}
		out[name] = entries
	}
	return out, nil
}

// Save writes the committed state to out.
func (w *Writer) Save(out io.Writer) error {
	data, err := Encode(w.view.Name, w.Reader())
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// Load replaces the committed state with data read from in. The data must
// have been saved for the same view.
func (w *Writer) Load(in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	view, r, err := Decode(data)
	if err != nil {
		return err
	}
	if view != w.view.Name {
		return fmt.Errorf("index data is for view %q, not %q", view, w.view.Name)
	}
	return w.Restore(r)
}
