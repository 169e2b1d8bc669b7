package output

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

func monthlyResult() *result.Result {
	return newResult(
		[]string{"MONTH", "REGION", "SOORT", "SALES", "RETURNS"},
		[]any{"jan", "NORTH", "A", int64(10), int64(1)},
		[]any{"jan", "south", "A", int64(4), nil},
		[]any{"feb", "NORTH", "B", int64(12), int64(2)},
		[]any{"mar", "South", "A", int64(7), int64(0)},
	)
}

func TestChartByColumns(t *testing.T) {
	tests := []struct {
		name    string
		res     *result.Result
		columns []string
		want    *Chart
	}{
		{
			name:    "one series per column",
			res:     monthlyResult(),
			columns: []string{"SALES", "RETURNS"},
			want: &Chart{
				Categories: []string{"jan", "jan", "feb", "mar"},
				Series: []Series{
					{Label: "Sales", Values: []any{int64(10), int64(4), int64(12), int64(7)}},
					{Label: "Returns", Values: []any{int64(1), nil, int64(2), int64(0)}},
				},
			},
		},
		{
			name:    "empty result",
			res:     result.New(),
			columns: []string{"SALES"},
			want: &Chart{
				Categories: []string{},
				Series:     []Series{{Label: "Sales", Values: []any{}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChartByColumns(tt.res, "MONTH", tt.columns)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ChartByColumns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChartBySeriesColumn(t *testing.T) {
	tests := []struct {
		name string
		res  *result.Result
		want *Chart
	}{
		{
			name: "aligned to distinct categories",
			res:  monthlyResult(),
			want: &Chart{
				Categories: []string{"jan", "feb", "mar"},
				Series: []Series{
					{Label: "North", Values: []any{int64(10), int64(12), nil}},
					{Label: "South", Values: []any{int64(4), nil, int64(7)}},
				},
			},
		},
		{
			name: "later rows win",
			res: newResult(
				[]string{"MONTH", "REGION", "SALES"},
				[]any{"jan", "north", int64(1)},
				[]any{"jan", "north", int64(2)},
			),
			want: &Chart{
				Categories: []string{"jan"},
				Series:     []Series{{Label: "North", Values: []any{int64(2)}}},
			},
		},
		{
			name: "empty result",
			res:  result.New(),
			want: &Chart{Categories: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChartBySeriesColumn(tt.res, "MONTH", "REGION", "SALES")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ChartBySeriesColumn() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChartByGroups(t *testing.T) {
	got := ChartByGroups(monthlyResult(), "MONTH", []string{"SOORT"}, []string{"SALES", "RETURNS"})
	want := &Chart{
		Categories: []string{"jan", "feb", "mar"},
		Series: []Series{
			{Label: "A Sales", Values: []any{int64(4), nil, int64(7)}},
			{Label: "A Returns", Values: []any{nil, nil, int64(0)}},
			{Label: "B Sales", Values: []any{nil, int64(12), nil}},
			{Label: "B Returns", Values: []any{nil, int64(2), nil}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChartByGroups() mismatch (-want +got):\n%s", diff)
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"NORTH EAST", "North east"},
		{"south", "South"},
		{"", ""},
		{"éCLAIR", "Éclair"},
	}
	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
