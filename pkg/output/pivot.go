// Package output reshapes finished results for display.
package output

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

// ErrMultipleColumnHeaders is returned when more than one column header
// field is requested.
var ErrMultipleColumnHeaders = errors.New("cannot pivot on multiple column header fields")

// Column names added by Pivot.
const (
	UnknownColumn = "_Unknown"
	TotalColumn   = "Total"
)

const rowKeySeparator = "\x1f"

// Pivoter turns the distinct values of one column into columns and sums a
// data field per row header combination.
type Pivoter struct {
	// ShowTotal appends a Total column with the row sums.
	ShowTotal bool
	// SortRows orders rows by their header values. Otherwise rows keep
	// the order in which they first appear.
	SortRows bool
}

// NewPivoter returns a pivoter with totals and row sorting enabled.
func NewPivoter() *Pivoter {
	return &Pivoter{ShowTotal: true, SortRows: true}
}

// Pivot is NewPivoter().Pivot.
func Pivot(res *result.Result, colHeader string, rowHeaders []string, dataField string) (*result.Result, error) {
	return NewPivoter().Pivot(res, colHeader, rowHeaders, dataField)
}

// Pivot builds one row per distinct combination of rowHeaders and one
// column per distinct colHeader value, sorted by name. Rows without a
// colHeader value are summed under _Unknown. Missing cells are nil.
func (p *Pivoter) Pivot(res *result.Result, colHeader string, rowHeaders []string, dataField string) (*result.Result, error) {
	if strings.Contains(colHeader, ",") {
		return nil, fmt.Errorf("%w: %q", ErrMultipleColumnHeaders, colHeader)
	}
	out := result.New()
	if res.Len() == 0 {
		return out, nil
	}

	var rowKeys []string
	rowHeads := make(map[string][]any)
	rowTotals := make(map[string]float64)
	cells := make(map[string]map[string]float64)

	for _, row := range res.Rows() {
		key := rowKey(row, rowHeaders)
		if _, seen := rowHeads[key]; !seen {
			rowKeys = append(rowKeys, key)
			heads := make([]any, len(rowHeaders))
			for i, h := range rowHeaders {
				heads[i] = text(row.Get(h))
			}
			rowHeads[key] = heads
		}
		col := UnknownColumn
		if v, ok := row.Lookup(colHeader); ok && v != nil {
			col = text(v)
		}
		amount := number(row.Get(dataField))

		rowTotals[key] += amount
		if cells[col] == nil {
			cells[col] = make(map[string]float64)
		}
		cells[col][key] += amount
	}

	cols := make([]string, 0, len(cells))
	for col := range cells {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	if p.SortRows {
		sort.Strings(rowKeys)
	}

	names := append(append([]string(nil), rowHeaders...), cols...)
	if p.ShowTotal {
		names = append(names, TotalColumn)
	}
	for _, key := range rowKeys {
		values := make([]any, 0, len(names))
		values = append(values, rowHeads[key]...)
		for _, col := range cols {
			if v, ok := cells[col][key]; ok {
				values = append(values, v)
			} else {
				values = append(values, nil)
			}
		}
		if p.ShowTotal {
			values = append(values, rowTotals[key])
		}
		out.Append(result.NewRow(names, values, result.Assoc))
	}
	return out, nil
}

func rowKey(row *result.Row, headers []string) string {
	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = text(row.Get(h))
	}
	return strings.Join(parts, rowKeySeparator)
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// number converts a data field to float64. Values that are not numeric
// count as zero.
func number(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	case string, []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(text(t)), 64)
		if err != nil {
			return 0
		}
		return f
	case fmt.Stringer:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
