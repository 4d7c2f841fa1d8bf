package core

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// CleanStats summarizes one Clean call.
type CleanStats struct {
	Rows int

	// Rows whose entities could not be used and fell back to empty lists.
	HashtagFallbacks int
	MentionFallbacks int
}

// Derivation computes one column from the columns already in the table.
// Replace marks derivations that overwrite an input column in place. A derived
// column that is already present (a re-cleaned output file) is also
// overwritten in place rather than duplicated.
type Derivation struct {
	Column  string
	Replace bool
	Derive  func(t *Table, stats *CleanStats) ([]any, error)
}

// Cleaner applies the fixed derivation sequence to a table.
type Cleaner struct {
	decode      EntityDecoder
	derivations []Derivation
}

// NewCleaner returns a Cleaner that decodes entities with the given parser.
func NewCleaner(parser EntityParser) (*Cleaner, error) {
	decode, err := DecoderFor(parser)
	if err != nil {
		return nil, err
	}
	c := &Cleaner{decode: decode}
	c.derivations = []Derivation{
		{Column: ColCreatedAt, Replace: true, Derive: deriveCreatedAt},
		{Column: ColDate, Derive: deriveDate},
		{Column: ColTweetLength, Derive: deriveTweetLength},
		{Column: ColHashtags, Derive: c.entityDerivation(HashtagEntities)},
		{Column: ColHashtagCount, Derive: countOf(ColHashtags)},
		{Column: ColMentions, Derive: c.entityDerivation(MentionEntities)},
		{Column: ColMentionsCount, Derive: countOf(ColMentions)},
	}
	return c, nil
}

// Derivations returns the derivation sequence in application order.
func (c *Cleaner) Derivations() []Derivation {
	return append([]Derivation(nil), c.derivations...)
}

// Clean runs every derivation over t in order, mutating t in place.
// Each derivation completes over the whole table before the next starts.
// On error t may hold a partial set of derived columns and must be discarded.
func (c *Cleaner) Clean(ctx context.Context, t *Table) (CleanStats, error) {
	stats := CleanStats{Rows: t.Len()}
	for _, col := range RequiredColumns {
		if !t.HasColumn(col) {
			return stats, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	for _, d := range c.derivations {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("clean cancelled before %s: %w", d.Column, err)
		}

		values, err := d.Derive(t, &stats)
		if err != nil {
			return stats, fmt.Errorf("derive %s: %w", d.Column, err)
		}

		if d.Replace || t.HasColumn(d.Column) {
			err = t.ReplaceColumn(d.Column, values)
		} else {
			err = t.AddColumn(d.Column, values)
		}
		if err != nil {
			return stats, fmt.Errorf("derive %s: %w", d.Column, err)
		}
	}
	return stats, nil
}

// deriveCreatedAt parses every created_at cell. Null cells stay null; a
// non-empty value matching no layout fails the whole run.
func deriveCreatedAt(t *Table, _ *CleanStats) ([]any, error) {
	col, _ := t.Column(ColCreatedAt)
	out := make([]any, len(col.Values))
	for i, v := range col.Values {
		switch x := v.(type) {
		case nil:
			out[i] = nil
		case Timestamp:
			out[i] = x
		case string:
			ts, err := ParseTimestamp(x)
			if err != nil {
				return nil, &ParseError{Row: i + 1, Column: ColCreatedAt, Value: x, Err: err}
			}
			out[i] = ts
		default:
			return nil, &ParseError{Row: i + 1, Column: ColCreatedAt, Value: FormatCell(v),
				Err: fmt.Errorf("unexpected %T", v)}
		}
	}
	return out, nil
}

func deriveDate(t *Table, _ *CleanStats) ([]any, error) {
	col, _ := t.Column(ColCreatedAt)
	out := make([]any, len(col.Values))
	for i, v := range col.Values {
		if ts, ok := v.(Timestamp); ok {
			out[i] = ts.Date()
		}
	}
	return out, nil
}

// deriveTweetLength counts code points; a null text gives a null length.
func deriveTweetLength(t *Table, _ *CleanStats) ([]any, error) {
	col, _ := t.Column(ColText)
	out := make([]any, len(col.Values))
	for i, v := range col.Values {
		if s, ok := v.(string); ok {
			out[i] = utf8.RuneCountInString(s)
		}
	}
	return out, nil
}

func (c *Cleaner) entityDerivation(kind EntityKind) func(*Table, *CleanStats) ([]any, error) {
	return func(t *Table, stats *CleanStats) ([]any, error) {
		col, _ := t.Column(ColEntities)
		out := make([]any, len(col.Values))
		for i, v := range col.Values {
			ex := ExtractEntities(c.decode, v, kind)
			if ex.Err != nil {
				switch kind {
				case HashtagEntities:
					stats.HashtagFallbacks++
				case MentionEntities:
					stats.MentionFallbacks++
				}
			}
			out[i] = ex.OrEmpty()
		}
		return out, nil
	}
}

func countOf(listColumn string) func(*Table, *CleanStats) ([]any, error) {
	return func(t *Table, _ *CleanStats) ([]any, error) {
		col, ok := t.Column(listColumn)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, listColumn)
		}
		out := make([]any, len(col.Values))
		for i, v := range col.Values {
			list, _ := v.([]string)
			out[i] = len(list)
		}
		return out, nil
	}
}
