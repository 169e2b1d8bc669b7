package output

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

// Series is one line of a multi-series chart. Values holds one value per
// chart category; nil marks a category without data.
type Series struct {
	Label  string
	Params string
	Values []any
}

// Chart is the category axis and the series of a multi-series chart.
type Chart struct {
	Categories []string
	Series     []Series
}

// ChartByColumns draws one series per column in valueColumns. Every row is
// a category, labelled by its categoryColumn value.
func ChartByColumns(res *result.Result, categoryColumn string, valueColumns []string) *Chart {
	rows := res.Rows()
	chart := &Chart{Categories: make([]string, 0, len(rows))}
	for _, row := range rows {
		chart.Categories = append(chart.Categories, text(row.Get(categoryColumn)))
	}
	for _, col := range valueColumns {
		s := Series{Label: capitalize(col), Values: make([]any, 0, len(rows))}
		for _, row := range rows {
			s.Values = append(s.Values, row.Get(col))
		}
		chart.Series = append(chart.Series, s)
	}
	return chart
}

// ChartBySeriesColumn draws one series per distinct seriesColumn value.
// Categories are the distinct categoryColumn values in order of first
// appearance; a later row for the same series and category wins.
func ChartBySeriesColumn(res *result.Result, categoryColumn, seriesColumn, valueColumn string) *Chart {
	b := newChartBuilder()
	for _, row := range res.Rows() {
		b.add(capitalize(text(row.Get(seriesColumn))), text(row.Get(categoryColumn)), row.Get(valueColumn))
	}
	return b.chart()
}

// ChartByGroups draws one series per combination of the groupColumns
// values and a value column. The label is the group values followed by
// the title-cased value column name, joined by spaces.
func ChartByGroups(res *result.Result, categoryColumn string, groupColumns, valueColumns []string) *Chart {
	title := cases.Title(language.Und)
	b := newChartBuilder()
	for _, row := range res.Rows() {
		category := text(row.Get(categoryColumn))
		group := make([]string, 0, len(groupColumns)+1)
		for _, col := range groupColumns {
			group = append(group, text(row.Get(col)))
		}
		for _, col := range valueColumns {
			label := strings.Join(append(group, title.String(col)), " ")
			b.add(label, category, row.Get(col))
		}
	}
	return b.chart()
}

type chartBuilder struct {
	categories []string
	seen       map[string]int
	labels     []string
	cells      map[string]map[string]any
}

func newChartBuilder() *chartBuilder {
	return &chartBuilder{
		seen:  make(map[string]int),
		cells: make(map[string]map[string]any),
	}
}

func (b *chartBuilder) add(label, category string, value any) {
	if _, ok := b.seen[category]; !ok {
		b.seen[category] = len(b.categories)
		b.categories = append(b.categories, category)
	}
	cells, ok := b.cells[label]
	if !ok {
		cells = make(map[string]any)
		b.cells[label] = cells
		b.labels = append(b.labels, label)
	}
	cells[category] = value
}

func (b *chartBuilder) chart() *Chart {
	chart := &Chart{Categories: b.categories}
	if chart.Categories == nil {
		chart.Categories = []string{}
	}
	for _, label := range b.labels {
		s := Series{Label: label, Values: make([]any, len(b.categories))}
		for i, category := range b.categories {
			s.Values[i] = b.cells[label][category]
		}
		chart.Series = append(chart.Series, s)
	}
	return chart
}

// capitalize lower-cases s and upper-cases its first letter.
func capitalize(s string) string {
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
