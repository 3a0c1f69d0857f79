package search

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/index"
	"github.com/hugr-lab/viewsearch/internal/serialize"
	"github.com/hugr-lab/viewsearch/value"
)

// Fixed column names of exported results.
const (
	KeyColumn      = "_key"
	SegmentColumn  = "_segment"
	DocumentColumn = "_document"
	scorePrefix    = "_score_"
)

// Column projects an indexed field into exported results. With Shape set
// the column holds the field's geometry as read by that geo analyzer;
// otherwise it holds the field's values as JSON.
type Column struct {
	Field string
	Shape string
}

// Schema returns the Arrow schema of exported results.
func Schema(scorers []string, columns ...Column) *arrow.Schema {
	fields := []arrow.Field{
		{Name: KeyColumn, Type: arrow.BinaryTypes.String},
		{Name: SegmentColumn, Type: arrow.BinaryTypes.String},
	}
	for _, s := range scorers {
		fields = append(fields, arrow.Field{Name: scorePrefix + s, Type: arrow.PrimitiveTypes.Float64})
	}
	fields = append(fields, arrow.Field{Name: DocumentColumn, Type: arrow.BinaryTypes.String})
	for _, c := range columns {
		if c.Shape != "" {
			fields = append(fields, geometryField(c.Field, c.Shape))
			continue
		}
		fields = append(fields, arrow.Field{Name: c.Field, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Record exports the hits as one record batch. The caller releases it.
func (r *Result) Record(alloc memory.Allocator, columns ...Column) (arrow.RecordBatch, error) {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	schema := Schema(r.Scorers, columns...)

	keys := array.NewStringBuilder(alloc)
	defer keys.Release()
	segments := array.NewStringBuilder(alloc)
	defer segments.Release()
	docs := array.NewStringBuilder(alloc)
	defer docs.Release()
	scores := make([]*array.Float64Builder, len(r.Scorers))
	for i := range scores {
		scores[i] = array.NewFloat64Builder(alloc)
		defer scores[i].Release()
	}
	extra := make([]array.Builder, len(columns))
	for i, c := range columns {
		if c.Shape != "" {
			extra[i] = array.NewBinaryBuilder(alloc, arrow.BinaryTypes.Binary)
		} else {
			extra[i] = array.NewStringBuilder(alloc)
		}
		defer extra[i].Release()
	}

	for _, h := range r.Hits {
		keys.Append(h.Doc.Key())
		segments.Append(h.Doc.Segment().String())
		docs.Append(h.Doc.Body().String())
		for i, b := range scores {
			b.Append(h.Scores[i])
		}
		for i, c := range columns {
			entries := h.Doc.Values(c.Field)
			if c.Shape != "" {
				b := extra[i].(*array.BinaryBuilder)
				if err := appendShape(b, entries, c.Shape); err != nil {
					return nil, fmt.Errorf("document %s field %s: %w", h.Doc.Key(), c.Field, err)
				}
				continue
			}
			b := extra[i].(*array.StringBuilder)
			switch len(entries) {
			case 0:
				b.AppendNull()
			case 1:
				b.Append(entries[0].Value.String())
			default:
				vals := make([]value.Value, len(entries))
				for j, e := range entries {
					vals[j] = e.Value
				}
				b.Append(value.Array(vals...).String())
			}
		}
	}

	cols := make([]arrow.Array, 0, schema.NumFields())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	cols = append(cols, keys.NewArray(), segments.NewArray())
	for _, b := range scores {
		cols = append(cols, b.NewArray())
	}
	cols = append(cols, docs.NewArray())
	for i, c := range columns {
		if c.Shape == "" {
			cols = append(cols, extra[i].NewArray())
			continue
		}
		storage := extra[i].NewArray()
		ext := schema.Field(len(cols)).Type.(arrow.ExtensionType)
		cols = append(cols, array.NewExtensionArrayWithStorage(ext, storage))
		storage.Release()
	}
	return array.NewRecord(schema, cols, int64(len(r.Hits))), nil
}

func appendShape(b *array.BinaryBuilder, entries []index.Entry, analyzer string) error {
	for _, e := range entries {
		if g, ok := e.Shapes[analyzer]; ok {
			data, err := analysis.EncodeGeometry(g)
			if err != nil {
				return err
			}
			b.Append(data)
			return nil
		}
	}
	b.AppendNull()
	return nil
}

// WriteIPC writes the hits as an Arrow IPC stream.
func (r *Result) WriteIPC(w io.Writer, alloc memory.Allocator, columns ...Column) error {
	rec, err := r.Record(alloc, columns...)
	if err != nil {
		return err
	}
	defer rec.Release()
	return serialize.WriteIPC(w, rec.Schema(), alloc, rec)
}
