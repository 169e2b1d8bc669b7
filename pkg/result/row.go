// Package result provides the rows produced by a fetch.
package result

import (
	"strconv"
	"strings"
)

// Shape selects how a Row can be addressed.
type Shape int

// Fetch shapes.
const (
	Assoc Shape = iota + 1 // by column name
	Num                    // by position "0", "1", ...
	Both                   // by name and by position
)

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	return s == Assoc || s == Num || s == Both
}

func (s Shape) String() string {
	switch s {
	case Assoc:
		return "assoc"
	case Num:
		return "num"
	case Both:
		return "both"
	default:
		return "invalid"
	}
}

// Row is one fetched record. Every column is present; NULL is nil.
type Row struct {
	names  []string
	values []any
	shape  Shape
	index  map[string]int
}

// NewRow creates a row from parallel names and values.
func NewRow(names []string, values []any, shape Shape) *Row {
	if !shape.Valid() {
		shape = Assoc
	}
	r := &Row{
		names:  names,
		values: values,
		shape:  shape,
		index:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		key := strings.ToUpper(name)
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
	}
	return r
}

// Shape returns the shape the row was fetched with.
func (r *Row) Shape() Shape { return r.shape }

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.values) }

func (r *Row) position(key string) (int, bool) {
	if r.shape != Num {
		if i, ok := r.index[strings.ToUpper(key)]; ok {
			return i, true
		}
	}
	if r.shape != Assoc {
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(r.values) {
			return i, true
		}
	}
	return 0, false
}

// Get returns the value of a column. Names are matched case-insensitively;
// positional keys are accepted for Num and Both rows.
func (r *Row) Get(key string) any {
	if i, ok := r.position(key); ok {
		return r.values[i]
	}
	return nil
}

// Lookup is Get with a presence flag.
func (r *Row) Lookup(key string) (any, bool) {
	i, ok := r.position(key)
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Has reports whether key addresses a column.
func (r *Row) Has(key string) bool {
	_, ok := r.position(key)
	return ok
}

// At returns the value at position i, or nil when out of range.
func (r *Row) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Set replaces the value of an existing column.
func (r *Row) Set(key string, value any) bool {
	i, ok := r.position(key)
	if ok {
		r.values[i] = value
	}
	return ok
}

// Names returns the column names in order.
func (r *Row) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Values returns the values in column order.
func (r *Row) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Keys returns the addressable keys in order: names for Assoc, positions
// for Num, names followed by positions for Both.
func (r *Row) Keys() []string {
	var keys []string
	if r.shape != Num {
		keys = append(keys, r.names...)
	}
	if r.shape != Assoc {
		for i := range r.values {
			keys = append(keys, strconv.Itoa(i))
		}
	}
	return keys
}

// Map returns the row as a map keyed by Keys.
func (r *Row) Map() map[string]any {
	keys := r.Keys()
	m := make(map[string]any, len(keys))
	for _, k := range keys {
		m[k] = r.Get(k)
	}
	return m
}
