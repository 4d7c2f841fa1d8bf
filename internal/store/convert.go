package store

// convert.go maps cleaned table cells to pgtype values. Cells that are null or
// of an unexpected type become invalid (NULL) values.

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/postclean/internal/core"
)

func toPgText(v any) pgtype.Text {
	s, ok := v.(string)
	if !ok {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgTimestamptz stores naive timestamps as UTC.
func toPgTimestamptz(v any) pgtype.Timestamptz {
	ts, ok := v.(core.Timestamp)
	if !ok {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: ts.Time, Valid: true}
}

func toPgDate(v any) pgtype.Date {
	d, ok := v.(core.Date)
	if !ok {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func toPgInt4(v any) pgtype.Int4 {
	n, ok := v.(int)
	if !ok {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}
}

// toTextArray never returns nil so the column holds '{}' rather than NULL.
func toTextArray(v any) []string {
	list, _ := v.([]string)
	if list == nil {
		return []string{}
	}
	return list
}

// extraJSON collects the pass-through columns of row i as a JSON object.
func extraJSON(t *core.Table, i int, names []string) ([]byte, error) {
	extra := make(map[string]any, len(names))
	for _, name := range names {
		v := t.Value(i, name)
		if v == nil {
			extra[name] = nil
			continue
		}
		extra[name] = core.FormatCell(v)
	}
	return json.Marshal(extra)
}
