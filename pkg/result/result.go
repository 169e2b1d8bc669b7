package result

import "fmt"

// Result is an ordered list of rows.
type Result struct {
	rows []*Row
}

// New creates a result holding rows.
func New(rows ...*Row) *Result {
	return &Result{rows: rows}
}

// Append adds a row. Only the producer of a result appends to it.
func (r *Result) Append(row *Row) {
	r.rows = append(r.rows, row)
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}

// Rows returns the rows in fetch order.
func (r *Result) Rows() []*Row {
	if r == nil {
		return nil
	}
	out := make([]*Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// At returns row i, or nil when out of range.
func (r *Result) At(i int) *Row {
	if r == nil || i < 0 || i >= len(r.rows) {
		return nil
	}
	return r.rows[i]
}

// First returns the first row or nil.
func (r *Result) First() *Row { return r.At(0) }

// Last returns the last row or nil.
func (r *Result) Last() *Row { return r.At(r.Len() - 1) }

// Column returns the values of one column.
func (r *Result) Column(key string) []any {
	out := make([]any, 0, r.Len())
	for _, row := range r.Rows() {
		out = append(out, row.Get(key))
	}
	return out
}

// Lists maps the key column to the val column. Keys are formatted with
// fmt.Sprint; later rows win on duplicate keys.
func (r *Result) Lists(val, key string) map[string]any {
	out := make(map[string]any, r.Len())
	for _, row := range r.Rows() {
		out[fmt.Sprint(row.Get(key))] = row.Get(val)
	}
	return out
}
