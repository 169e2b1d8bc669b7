package output

import (
	"strconv"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

// FieldColumn names the first column of an inverted result.
const FieldColumn = "Field"

// Invert swaps rows and columns. Each output row starts with the column
// name under Field, followed by that column's value in Record1..RecordN.
// Column names are taken from the first row.
func Invert(res *result.Result) *result.Result {
	out := result.New()
	first := res.First()
	if first == nil {
		return out
	}

	rows := res.Rows()
	names := make([]string, 0, len(rows)+1)
	names = append(names, FieldColumn)
	for i := range rows {
		names = append(names, "Record"+strconv.Itoa(i+1))
	}

	for c, col := range first.Names() {
		values := make([]any, 0, len(names))
		values = append(values, col)
		for _, row := range rows {
			values = append(values, row.At(c))
		}
		out.Append(result.NewRow(names, values, result.Assoc))
	}
	return out
}
