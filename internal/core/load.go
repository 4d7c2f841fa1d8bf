package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// LoadTable reads the CSV file at path into a Table.
// Returns the table and the number of bytes read.
func LoadTable(path string) (*Table, int64, error) {
	t, in, err := loadTable(path)
	return t, in.BytesRead, err
}

// loadTable is LoadTable returning the input reader for its counters.
// The reader is never nil.
func loadTable(path string) (*Table, *CountingReader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &CountingReader{}, fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, &CountingReader{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	in := WrapInput(f)
	t, err := ReadTable(in)
	if err != nil {
		return nil, in, fmt.Errorf("read %s: %w", path, err)
	}
	return t, in, nil
}

// ReadTable parses CSV from r. The first record is the header and must name
// every column in RequiredColumns. Every record must have as many fields as
// the header.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0 // enforce header width on every record
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file, no header row", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedInput, err)
	}

	t, err := NewTable(header)
	if err != nil {
		return nil, err
	}
	for _, col := range RequiredColumns {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	for n := 1; ; n++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		if err := t.AppendRecord(record); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
	}
	return t, nil
}
