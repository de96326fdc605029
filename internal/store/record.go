package store

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Record is one row of a local model keyed by column name.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's id column, or 0 when absent or not numeric.
func (r Record) ID() int64 {
	return cast.ToInt64(r["id"])
}

// String returns the column as a string, "" for nil or missing values.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || IsNil(v) {
		return ""
	}
	return cast.ToString(v)
}

// AttioID returns the external record id bound to this row, "" when unbound.
func (r Record) AttioID() string {
	return r.String(AttioIDField)
}

type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
)

// Where is one filter clause. Clauses passed together are ANDed.
type Where struct {
	Field    string
	Operator Operator
	Value    any
}

func Eq(field string, value any) Where {
	return Where{Field: field, Operator: OpEq, Value: value}
}

func In(field string, values any) Where {
	return Where{Field: field, Operator: OpIn, Value: values}
}

func Contains(field string, value any) Where {
	return Where{Field: field, Operator: OpContains, Value: value}
}

// IsNil reports whether v is nil or a nil pointer, slice or map.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ValuesEqual compares two column values loosely: int64(5), float64(5) and "5" are equal,
// pointers compare by their target, and nil only equals nil.
// JSON-decoded patches and database rows carry different Go types for the same value.
func ValuesEqual(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if isList(a) || isList(b) {
		la, lb := toList(a), toList(b)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !ValuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	if ta, ok := a.(time.Time); ok {
		tb, err := cast.ToTimeE(b)
		return err == nil && ta.Equal(tb)
	}
	if tb, ok := b.(time.Time); ok {
		ta, err := cast.ToTimeE(a)
		return err == nil && ta.Equal(tb)
	}
	sa, errA := cast.ToStringE(a)
	sb, errB := cast.ToStringE(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return sa == sb
}

func matches(rec Record, where []Where) (bool, error) {
	for _, w := range where {
		v := rec[w.Field]
		switch w.Operator {
		case OpEq, "":
			if !ValuesEqual(v, w.Value) {
				return false, nil
			}
		case OpContains:
			if isList(v) {
				found := false
				for _, item := range toList(v) {
					if ValuesEqual(item, w.Value) {
						found = true
						break
					}
				}
				if !found {
					return false, nil
				}
				continue
			}
			if IsNil(v) || !strings.Contains(strings.ToLower(cast.ToString(v)), strings.ToLower(cast.ToString(w.Value))) {
				return false, nil
			}
		case OpIn:
			if !isList(w.Value) {
				return false, fmt.Errorf("operator in on %s requires a list, got %T", w.Field, w.Value)
			}
			found := false
			for _, item := range toList(w.Value) {
				if ValuesEqual(v, item) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported operator %q", w.Operator)
		}
	}
	return true, nil
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	if k == reflect.Slice {
		// []byte is a scalar column value
		return reflect.TypeOf(v).Elem().Kind() != reflect.Uint8
	}
	return k == reflect.Array
}

func toList(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
