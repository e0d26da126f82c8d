package table

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// All is the filter value that disables a selection predicate.
const All = "all"

// Predicate accepts or rejects a record.
type Predicate[T any] func(T) bool

// Filter keeps records accepted by every predicate, preserving order.
// Nil predicates are ignored.
func Filter[T any](records []T, predicates ...Predicate[T]) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if acceptAll(rec, predicates) {
			out = append(out, rec)
		}
	}
	return out
}

func acceptAll[T any](rec T, predicates []Predicate[T]) bool {
	for _, p := range predicates {
		if p != nil && !p(rec) {
			return false
		}
	}
	return true
}

// Contains matches when any of the fields contains query, ignoring case with
// Turkish casing rules (İ/i, I/ı). An empty query accepts everything.
func Contains[T any](query string, fields ...func(T) string) Predicate[T] {
	needle := foldTurkish(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	return func(rec T) bool {
		for _, field := range fields {
			if strings.Contains(foldTurkish(field(rec)), needle) {
				return true
			}
		}
		return false
	}
}

// Equals matches an exact field value. "" and All are inactive.
func Equals[T any](want string, field func(T) string) Predicate[T] {
	if want == "" || want == All {
		return nil
	}
	return func(rec T) bool {
		return field(rec) == want
	}
}

// Range is an inclusive numeric interval. Max may be +Inf. OpenMin excludes
// Min itself, for buckets written as "above x, up to y".
type Range struct {
	Min     float64
	Max     float64
	OpenMin bool
}

// Unbounded returns a range with no upper limit.
func Unbounded(min float64) Range {
	return Range{Min: min, Max: math.Inf(1)}
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v float64) bool {
	if r.OpenMin && v <= r.Min {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// InRange matches records whose field lies within r. Records without a value
// never match.
func InRange[T any](r Range, field func(T) (float64, bool)) Predicate[T] {
	return func(rec T) bool {
		v, ok := field(rec)
		return ok && r.Contains(v)
	}
}

// Bucketed resolves a named range such as "low" or "high". Unknown names and
// All are inactive.
func Bucketed[T any](name string, buckets map[string]Range, field func(T) (float64, bool)) Predicate[T] {
	r, ok := buckets[name]
	if !ok {
		return nil
	}
	return InRange(r, field)
}

// foldTurkish lowercases with Turkish rules and then merges dotless ı into i,
// so I, ı, İ and i all compare equal.
func foldTurkish(s string) string {
	return strings.ReplaceAll(cases.Lower(language.Turkish).String(s), "ı", "i")
}
