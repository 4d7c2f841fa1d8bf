package core

// entities.go extracts hashtags and mentions from the entities column.
//
// The column holds a Python-repr style mapping such as
//
//	{'hashtags': [{'tag': 'gym'}], 'mentions': [{'username': 'nbc'}]}
//
// Extraction is best effort. Every failure maps to an empty list through
// Extraction.OrEmpty; the reason stays on Extraction.Err for tests and
// metrics and is never returned as a run error.

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EntityKind names a list inside the entities mapping and the field read
// from each of its entries.
type EntityKind struct {
	Key   string
	Field string
}

var (
	HashtagEntities = EntityKind{Key: "hashtags", Field: "tag"}
	MentionEntities = EntityKind{Key: "mentions", Field: "username"}
)

// ErrEntities marks every extraction failure.
var ErrEntities = errors.New("unusable entities")

// Extraction is the outcome of extracting one entity kind from one row.
type Extraction struct {
	Values []string
	Err    error
}

// OrEmpty returns the extracted values, or an empty list on failure.
func (e Extraction) OrEmpty() []string {
	if e.Err != nil || e.Values == nil {
		return []string{}
	}
	return e.Values
}

// EntityParser selects how the entities string is turned into a mapping.
type EntityParser string

const (
	// ParserReplace swaps every single quote for a double quote and parses
	// the result as JSON. Apostrophes inside values break the JSON, and such
	// rows fall back to empty lists.
	ParserReplace EntityParser = "replace"

	// ParserLiteral parses the value as a Python literal, so quoted
	// apostrophes survive.
	ParserLiteral EntityParser = "literal"
)

// EntityDecoder turns a raw entities string into a decoded value.
type EntityDecoder func(raw string) (any, error)

// DecoderFor returns the decoder for a parser name.
// An empty name selects ParserReplace.
func DecoderFor(p EntityParser) (EntityDecoder, error) {
	switch EntityParser(strings.ToLower(string(p))) {
	case "", ParserReplace:
		return DecodeReplacingQuotes, nil
	case ParserLiteral:
		return DecodeLiteral, nil
	default:
		return nil, fmt.Errorf("unknown entity parser %q", p)
	}
}

// DecodeReplacingQuotes normalizes raw to JSON by global quote substitution
// and decodes it.
func DecodeReplacingQuotes(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ExtractEntities pulls kind out of one entities cell.
// cell is the raw table value: a string, or nil for a null cell.
func ExtractEntities(decode EntityDecoder, cell any, kind EntityKind) Extraction {
	raw, ok := cell.(string)
	if !ok {
		return Extraction{Err: fmt.Errorf("%w: value is %T, not a string", ErrEntities, cell)}
	}

	decoded, err := decode(raw)
	if err != nil {
		return Extraction{Err: fmt.Errorf("%w: %v", ErrEntities, err)}
	}

	root, ok := decoded.(map[string]any)
	if !ok {
		return Extraction{Err: fmt.Errorf("%w: root is %T, not a mapping", ErrEntities, decoded)}
	}

	listVal, present := root[kind.Key]
	if !present {
		return Extraction{Values: []string{}}
	}
	list, ok := listVal.([]any)
	if !ok {
		return Extraction{Err: fmt.Errorf("%w: %s is %T, not a list", ErrEntities, kind.Key, listVal)}
	}

	values := make([]string, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return Extraction{Err: fmt.Errorf("%w: %s[%d] is %T, not a mapping", ErrEntities, kind.Key, i, item)}
		}
		field, present := entry[kind.Field]
		if !present {
			return Extraction{Err: fmt.Errorf("%w: %s[%d] has no %q", ErrEntities, kind.Key, i, kind.Field)}
		}
		s, ok := field.(string)
		if !ok {
			return Extraction{Err: fmt.Errorf("%w: %s[%d].%s is %T, not a string", ErrEntities, kind.Key, i, kind.Field, field)}
		}
		values = append(values, s)
	}
	return Extraction{Values: values}
}
