package table

import (
	"cmp"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction of a sort.
type Direction string

const (
	None       Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortState is the active sort key and direction of a table.
type SortState struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// SortBy is shorthand for an active sort state.
func SortBy(key string, dir Direction) SortState {
	return SortState{Key: key, Direction: dir}
}

// Active reports whether the state orders anything.
func (s SortState) Active() bool {
	return s.Key != "" && s.Direction != None
}

// Toggle advances the header cycle: the same key goes asc -> desc -> none,
// any other key starts at asc.
func (s SortState) Toggle(key string) SortState {
	if s.Key != key {
		return SortState{Key: key, Direction: Ascending}
	}
	switch s.Direction {
	case Ascending:
		return SortState{Key: key, Direction: Descending}
	case Descending:
		return SortState{}
	default:
		return SortState{Key: key, Direction: Ascending}
	}
}

// ParseDirection accepts "asc", "desc" and "" (none).
func ParseDirection(v string) (Direction, bool) {
	switch Direction(v) {
	case Ascending, Descending, None:
		return Direction(v), true
	case "none":
		return None, true
	}
	return None, false
}

// collator instances keep internal buffers, so each goroutine borrows its own.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Turkish, collate.Loose, collate.Numeric)
	},
}

// Sort returns a stably sorted copy of records. An inactive state or a key
// missing from fields returns records in their original order.
func Sort[T any](records []T, fields Fields[T], state SortState) []T {
	out := slices.Clone(records)
	if !state.Active() {
		return out
	}
	extract, ok := fields[state.Key]
	if !ok {
		return out
	}

	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)

	desc := state.Direction == Descending
	slices.SortStableFunc(out, func(a, b T) int {
		return compareCells(c, extract(a), extract(b), desc)
	})
	return out
}

// compareCells ranks null above every value, so nulls trail an ascending sort
// and lead a descending one.
func compareCells(c *collate.Collator, a, b Value, desc bool) int {
	var result int
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		result = 1
	case b.IsNull():
		result = -1
	case a.kind == kindNumber && b.kind == kindNumber:
		result = cmp.Compare(a.num, b.num)
	case a.kind == kindString && b.kind == kindString:
		result = c.CompareString(a.str, b.str)
	default:
		result = c.CompareString(a.String(), b.String())
	}

	if desc {
		return -result
	}
	return result
}
