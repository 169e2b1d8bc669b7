package output

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

func newResult(names []string, rows ...[]any) *result.Result {
	res := result.New()
	for _, values := range rows {
		res.Append(result.NewRow(names, values, result.Assoc))
	}
	return res
}

func table(res *result.Result) [][]any {
	var out [][]any
	if first := res.First(); first != nil {
		names := make([]any, 0, first.Len())
		for _, n := range first.Names() {
			names = append(names, n)
		}
		out = append(out, names)
	}
	for _, row := range res.Rows() {
		out = append(out, row.Values())
	}
	return out
}

func salesResult() *result.Result {
	return newResult(
		[]string{"REGION", "SOORT", "AMOUNT"},
		[]any{"North", "B", int64(5)},
		[]any{"South", "A", "2.5"},
		[]any{"North", "A", int32(10)},
		[]any{"North", "B", 1.5},
		[]any{"South", nil, int64(4)},
	)
}

func TestPivot(t *testing.T) {
	tests := []struct {
		name    string
		pivoter *Pivoter
		want    [][]any
	}{
		{
			name:    "defaults",
			pivoter: NewPivoter(),
			want: [][]any{
				{"REGION", "A", "B", "_Unknown", "Total"},
				{"North", 10.0, 6.5, nil, 16.5},
				{"South", 2.5, nil, 4.0, 6.5},
			},
		},
		{
			name:    "no total",
			pivoter: &Pivoter{SortRows: true},
			want: [][]any{
				{"REGION", "A", "B", "_Unknown"},
				{"North", 10.0, 6.5, nil},
				{"South", 2.5, nil, 4.0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pivoter.Pivot(salesResult(), "SOORT", []string{"REGION"}, "AMOUNT")
			if err != nil {
				t.Fatalf("Pivot failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, table(got)); diff != "" {
				t.Errorf("Pivot() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPivot_RowOrder(t *testing.T) {
	res := newResult(
		[]string{"REGION", "SOORT", "AMOUNT"},
		[]any{"West", "A", 1},
		[]any{"East", "A", 2},
	)
	tests := []struct {
		name     string
		sortRows bool
		want     []any
	}{
		{"sorted", true, []any{"East", "West"}},
		{"first seen", false, []any{"West", "East"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pivoter{SortRows: tt.sortRows}
			got, err := p.Pivot(res, "SOORT", []string{"REGION"}, "AMOUNT")
			if err != nil {
				t.Fatalf("Pivot failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Column("REGION")); diff != "" {
				t.Errorf("row order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPivot_MultipleRowHeaders(t *testing.T) {
	res := newResult(
		[]string{"REGION", "CITY", "SOORT", "AMOUNT"},
		[]any{"North", "Oslo", "A", 1},
		[]any{"North", "Bergen", "A", 2},
		[]any{"North", "Oslo", "A", 3},
	)
	got, err := Pivot(res, "SOORT", []string{"REGION", "CITY"}, "AMOUNT")
	if err != nil {
		t.Fatalf("Pivot failed: %v", err)
	}
	want := [][]any{
		{"REGION", "CITY", "A", "Total"},
		{"North", "Bergen", 2.0, 2.0},
		{"North", "Oslo", 4.0, 4.0},
	}
	if diff := cmp.Diff(want, table(got)); diff != "" {
		t.Errorf("Pivot() mismatch (-want +got):\n%s", diff)
	}
}

func TestPivot_Errors(t *testing.T) {
	_, err := Pivot(salesResult(), "SOORT,REGION", []string{"REGION"}, "AMOUNT")
	if !errors.Is(err, ErrMultipleColumnHeaders) {
		t.Errorf("Pivot() error = %v, want ErrMultipleColumnHeaders", err)
	}
}

func TestPivot_Empty(t *testing.T) {
	got, err := Pivot(result.New(), "SOORT", []string{"REGION"}, "AMOUNT")
	if err != nil {
		t.Fatalf("Pivot failed: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestInvert(t *testing.T) {
	res := newResult(
		[]string{"ID", "NAME"},
		[]any{1, "Acme"},
		[]any{2, nil},
	)
	want := [][]any{
		{"Field", "Record1", "Record2"},
		{"ID", 1, 2},
		{"NAME", "Acme", nil},
	}
	if diff := cmp.Diff(want, table(Invert(res))); diff != "" {
		t.Errorf("Invert() mismatch (-want +got):\n%s", diff)
	}

	if got := Invert(result.New()); got.Len() != 0 {
		t.Errorf("Invert(empty).Len() = %d, want 0", got.Len())
	}
}
