package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCell(t *testing.T) {
	ts := Timestamp{Time: time.Date(2021, 7, 26, 10, 15, 0, 500_000_000, time.FixedZone("", -5*3600))}
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hi", "hi"},
		{"int", 42, "42"},
		{"zoned timestamp", ts, "2021-07-26 10:15:00.5-05:00"},
		{"naive timestamp", Timestamp{Time: time.Date(2021, 7, 26, 10, 15, 0, 0, time.UTC), Naive: true}, "2021-07-26 10:15:00"},
		{"date", Date{Year: 2021, Month: time.July, Day: 26}, "2021-07-26"},
		{"time", time.Date(2021, 7, 26, 0, 0, 0, 0, time.UTC), "2021-07-26T00:00:00Z"},
		{"empty list", []string{}, "[]"},
		{"list", []string{"gym", "worlds"}, "['gym', 'worlds']"},
		{"other", 1.5, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.in))
		})
	}
}

func TestFormatList_Quoting(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"o'neill"}, `["o'neill"]`},
		{[]string{`say "hi"`}, `['say "hi"']`},
		{[]string{`both ' and "`}, `['both \' and "']`},
		{[]string{`back\slash`}, `['back\\slash']`},
		{[]string{"new\nline", "tab\t"}, `['new\nline', 'tab\t']`},
		{[]string{"bell\a"}, `['bell\x07']`},
		{[]string{"体操"}, `['体操']`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatList(tt.in))
	}
}

func TestFormatList_ParsesBackWithLiteral(t *testing.T) {
	in := []string{"o'neill", `say "hi"`, `both ' and "`, `back\slash`, "new\nline", "bell\a"}

	v, err := DecodeLiteral(FormatList(in))
	require.NoError(t, err)

	got := make([]string, 0, len(in))
	for _, item := range v.([]any) {
		got = append(got, item.(string))
	}
	assert.Equal(t, in, got)
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRecord([]string{"x,y", ""}))
	require.NoError(t, tbl.AddColumn("tags", []any{[]string{"p", "q"}}))
	return tbl
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleTable(t)))
	assert.Equal(t, "a,b,tags\n\"x,y\",,\"['p', 'q']\"\n", buf.String())
}

func TestSaveTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, SaveTable(path, sampleTable(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,tags\n\"x,y\",,\"['p', 'q']\"\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveTable_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, SaveTable(path, sampleTable(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old")
}

func TestSaveTable_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := SaveTable(filepath.Join(blocker, "out.csv"), sampleTable(t))
	assert.Error(t, err)
}
