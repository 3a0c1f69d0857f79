package serialize

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriteIPC writes records as an Arrow IPC stream. Every record must have
// schema.
func WriteIPC(w io.Writer, schema *arrow.Schema, allocator memory.Allocator, records ...arrow.RecordBatch) error {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(allocator))
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write IPC record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}

// ReadIPC reads every record of an Arrow IPC stream. The caller releases the
// returned records.
func ReadIPC(r io.Reader, allocator memory.Allocator) (*arrow.Schema, []arrow.RecordBatch, error) {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	reader, err := ipc.NewReader(r, ipc.WithAllocator(allocator))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open IPC stream: %w", err)
	}
	defer reader.Release()

	var records []arrow.RecordBatch
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		for _, rec := range records {
			rec.Release()
		}
		return nil, nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}
	return reader.Schema(), records, nil
}
