package core

import (
	"errors"
	"strings"
	"time"
)

// Timestamp is a parsed created_at value.
// Naive is set when the source carried no UTC offset; such values are
// written back without one.
type Timestamp struct {
	Time  time.Time
	Naive bool
}

const (
	zonedOutputLayout = "2006-01-02 15:04:05.999999-07:00"
	naiveOutputLayout = "2006-01-02 15:04:05.999999"
)

// String formats the timestamp the way the serializer writes it.
func (ts Timestamp) String() string {
	if ts.Naive {
		return ts.Time.Format(naiveOutputLayout)
	}
	return ts.Time.Format(zonedOutputLayout)
}

// Date returns the calendar date of the timestamp in its own location.
func (ts Timestamp) Date() Date {
	return DateOf(ts.Time)
}

// Layouts carrying an offset are tried before naive ones.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"Mon Jan 2 15:04:05 -0700 2006",
		time.RubyDate,
	}
	naiveLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
)

var errNoLayout = errors.New("no known layout matches")

// ParseTimestamp parses s using the known created_at layouts.
// Whitespace runs are collapsed first, as exported Twitter data often pads
// the fields of the v1.1 format.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return Timestamp{}, errors.New("empty value")
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Naive: true}, nil
		}
	}
	return Timestamp{}, errNoLayout
}
