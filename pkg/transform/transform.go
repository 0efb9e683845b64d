// Package transform provides document transforms for update migrations
// and row mapping for create migrations.
//
// A Func may modify the document it is given and returns the result.
// Callers that need the input unchanged clone it first.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/surrealdb/surrealmigrate/internal/fieldpath"
	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Func transforms one document.
type Func func(doc models.Document) (models.Document, error)

// Identity returns the document unchanged.
func Identity(doc models.Document) (models.Document, error) {
	return doc, nil
}

// Chain applies fns in order.
func Chain(fns ...Func) Func {
	return func(doc models.Document) (models.Document, error) {
		var err error
		for i, fn := range fns {
			doc, err = fn(doc)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			if doc == nil {
				return nil, fmt.Errorf("step %d returned no document", i+1)
			}
		}
		return doc, nil
	}
}

// Set stores value at field.
func Set(field string, value any) Func {
	return func(doc models.Document) (models.Document, error) {
		if err := fieldpath.Set(doc, field, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", field, err)
		}
		return doc, nil
	}
}

// Unset removes field.
func Unset(field string) Func {
	return func(doc models.Document) (models.Document, error) {
		fieldpath.Unset(doc, field)
		return doc, nil
	}
}

// Rename moves the value at from to to. A missing from is left alone.
func Rename(from, to string) Func {
	return func(doc models.Document) (models.Document, error) {
		v, ok := fieldpath.Get(doc, from)
		if !ok {
			return doc, nil
		}
		fieldpath.Unset(doc, from)
		if err := fieldpath.Set(doc, to, v); err != nil {
			return nil, fmt.Errorf("rename %s to %s: %w", from, to, err)
		}
		return doc, nil
	}
}

// Copy duplicates the value at from into to.
func Copy(from, to string) Func {
	return func(doc models.Document) (models.Document, error) {
		v, ok := fieldpath.Get(doc, from)
		if !ok {
			return doc, nil
		}
		if err := fieldpath.Set(doc, to, v); err != nil {
			return nil, fmt.Errorf("copy %s to %s: %w", from, to, err)
		}
		return doc, nil
	}
}

// Increment adds by to the number at field. A missing field starts at
// zero. Integer fields stay integers when by is whole.
func Increment(field string, by float64) Func {
	return func(doc models.Document) (models.Document, error) {
		cur, _ := fieldpath.Get(doc, field)
		next, err := add(cur, by)
		if err != nil {
			return nil, fmt.Errorf("increment %s: %w", field, err)
		}
		if err := fieldpath.Set(doc, field, next); err != nil {
			return nil, fmt.Errorf("increment %s: %w", field, err)
		}
		return doc, nil
	}
}

// ErrOutOfRange is returned when an integer result does not fit in an
// int64.
var ErrOutOfRange = errors.New("integer out of int64 range")

func add(v any, by float64) (any, error) {
	step, whole := wholeInt64(by)
	switch n := v.(type) {
	case nil:
		if whole {
			return step, nil
		}
		return by, nil
	case int:
		if whole {
			sum, err := addInt64(int64(n), step)
			return int(sum), err
		}
		return float64(n) + by, nil
	case int32:
		if whole {
			return addInt64(int64(n), step)
		}
		return float64(n) + by, nil
	case int64:
		if whole {
			return addInt64(n, step)
		}
		return float64(n) + by, nil
	case uint64:
		if whole {
			if n > math.MaxInt64 {
				return nil, fmt.Errorf("%w: %d", ErrOutOfRange, n)
			}
			return addInt64(int64(n), step)
		}
		return float64(n) + by, nil
	case float32:
		return float64(n) + by, nil
	case float64:
		return n + by, nil
	default:
		return nil, fmt.Errorf("value %v of type %T is not a number", v, v)
	}
}

// wholeInt64 reports whether f is a whole number inside the int64 range.
func wholeInt64(f float64) (int64, bool) {
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func addInt64(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOutOfRange, a, b)
	}
	return a + b, nil
}

// Kind names a scalar type Convert can produce.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
)

// Convert parses or formats the value at field as kind. Missing fields
// are left alone.
func Convert(field string, kind Kind) Func {
	return func(doc models.Document) (models.Document, error) {
		v, ok := fieldpath.Get(doc, field)
		if !ok || v == nil {
			return doc, nil
		}
		out, err := convert(v, kind)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", field, err)
		}
		if err := fieldpath.Set(doc, field, out); err != nil {
			return nil, fmt.Errorf("convert %s: %w", field, err)
		}
		return doc, nil
	}
}

func convert(v any, kind Kind) (any, error) {
	s := fmt.Sprint(v)
	switch kind {
	case KindString:
		return s, nil
	case KindInt:
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			n, ok := wholeInt64(f)
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrOutOfRange, f)
			}
			return n, nil
		}
		return strconv.ParseInt(s, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(s, 64)
	case KindBool:
		return strconv.ParseBool(s)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
