package core

// table.go provides the in-memory, column-oriented table that holds posts
// between load and save.
//
// Cells are untyped (any). The loader stores raw strings, derivations store
// typed values (Timestamp, Date, int, []string), and nil marks a null cell.
// Columns are only ever appended or replaced in place; the row count is fixed
// once loading finishes.

import (
	"fmt"
	"strconv"
	"time"
)

// Input columns every dataset must carry.
const (
	ColCreatedAt = "created_at"
	ColText      = "text"
	ColEntities  = "entities"
)

// Derived columns, in the order Clean appends them.
const (
	ColDate          = "date"
	ColTweetLength   = "tweet_length"
	ColHashtags      = "hashtags"
	ColHashtagCount  = "hashtag_count"
	ColMentions      = "mentions"
	ColMentionsCount = "mentions_count"
)

// RequiredColumns lists the header names LoadTable insists on.
var RequiredColumns = []string{ColCreatedAt, ColText, ColEntities}

// DerivedColumns lists the columns Clean appends, in output order.
var DerivedColumns = []string{
	ColDate,
	ColTweetLength,
	ColHashtags,
	ColHashtagCount,
	ColMentions,
	ColMentionsCount,
}

// Column is a named slice of cells, one per row.
type Column struct {
	Name   string
	Values []any
}

// Table is a column-oriented set of records.
// The zero value is not usable; create tables with NewTable.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// nullTokens are the cell values loaded as null, in addition to the empty
// string. They are the default missing-value markers of common dataframe
// exports and match case-sensitively, without trimming.
var nullTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

// isNullCell reports whether a raw CSV cell loads as null.
func isNullCell(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := nullTokens[cell]
	return ok
}

// NewTable creates an empty table with the given column names. An empty name
// becomes "Unnamed: <i>" with i the zero-based column position, which is how
// an exported row index column arrives. Returns ErrMalformedInput if a name
// is repeated.
func NewTable(header []string) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(header)+len(DerivedColumns)),
		index:   make(map[string]int, len(header)+len(DerivedColumns)),
	}
	for i, name := range header {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate header column %q", ErrMalformedInput, name)
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, &Column{Name: name})
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRecord adds one row of raw CSV cells. Empty cells and nullTokens
// become nil.
// The record must have exactly one cell per column.
func (t *Table) AppendRecord(record []string) error {
	if len(record) != len(t.columns) {
		return fmt.Errorf("%w: record has %d fields, header has %d",
			ErrMalformedInput, len(record), len(t.columns))
	}
	for i, cell := range record {
		var v any
		if !isNullCell(cell) {
			v = cell
		}
		t.columns[i].Values = append(t.columns[i].Values, v)
	}
	t.rows++
	return nil
}

// AddColumn appends a new column. values must hold exactly one cell per row.
func (t *Table) AddColumn(name string, values []any) error {
	if _, dup := t.index[name]; dup {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, &Column{Name: name, Values: values})
	return nil
}

// ReplaceColumn swaps the values of an existing column, keeping its position.
func (t *Table) ReplaceColumn(name string, values []any) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	t.columns[i].Values = values
	return nil
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Value returns the cell at row i of the named column.
// Returns nil when the column does not exist.
func (t *Table) Value(i int, name string) any {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	return c.Values[i]
}

// Select returns a new table holding copies of the named columns.
func (t *Table) Select(names ...string) (*Table, error) {
	out, err := NewTable(names)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	for i, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		out.columns[i].Values = append([]any(nil), c.Values...)
	}
	return out, nil
}

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}
