package query

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/result"
)

// Fetcher reads the rows of an executed Statement.
type Fetcher struct {
	stmt    *Statement
	mapper  *TypeMapper
	rows    *sql.Rows
	result  sql.Result
	columns []ColumnMetadata
	names   []string
	mode    FetchMode

	dateLayout string
	done       bool

	all        *result.Result
	first      any
	firstDone  bool
	columnVals map[string][]any
	numRows    int64
	counted    bool
}

// NewFetcher executes s without commit unless it already ran, then reads
// its column metadata.
func NewFetcher(ctx context.Context, s *Statement) (*Fetcher, error) {
	if !s.Executed() {
		if err := s.Execute(ctx, NoCommit); err != nil {
			return nil, err
		}
	}
	if s.state.Err != nil {
		return nil, s.state.Err
	}

	f := &Fetcher{
		stmt:       s,
		mapper:     defaultTypeMapper,
		rows:       s.state.Rows,
		result:     s.state.Result,
		dateLayout: s.cfg.DateFormat,
		columnVals: make(map[string][]any),
	}
	if f.dateLayout == "" {
		f.dateLayout = config.DefaultDateLayout
	}
	if f.rows != nil {
		cts, err := f.rows.ColumnTypes()
		if err != nil {
			return nil, s.fail(err)
		}
		f.columns = f.mapper.InferColumns(cts)
	}

	f.names = make([]string, len(f.columns))
	f.mode.ReturnNulls = true
	for i, col := range f.columns {
		f.names[i] = col.Name
		if f.mapper.IsLOB(col.Type) {
			f.mode.InlineLOBs = true
		}
	}
	return f, nil
}

// Fetch returns the next row, or nil at the end of the result set.
func (f *Fetcher) Fetch(ctx context.Context, shape result.Shape) (*result.Row, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("%w: %d", dberror.ErrInvalidFetchShape, int(shape))
	}
	values, err := f.next(ctx)
	if values == nil || err != nil {
		return nil, err
	}
	return result.NewRow(f.names, values, shape), nil
}

func (f *Fetcher) next(ctx context.Context) ([]any, error) {
	if f.rows == nil || f.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !f.rows.Next() {
		f.done = true
		if err := f.rows.Err(); err != nil {
			return nil, f.stmt.fail(err)
		}
		return nil, nil
	}

	dest := f.scanTargets()
	if err := f.rows.Scan(dest...); err != nil {
		return nil, f.stmt.fail(err)
	}
	values := make([]any, len(dest))
	for i, d := range dest {
		values[i] = f.convert(f.columns[i], d)
	}
	return values, nil
}

func (f *Fetcher) scanTargets() []any {
	dest := make([]any, len(f.columns))
	for i, col := range f.columns {
		switch {
		case f.mode.InlineLOBs && col.Type == TypeBlob:
			dest[i] = new([]byte)
		case f.mode.InlineLOBs && f.mapper.IsLOB(col.Type):
			dest[i] = new(sql.NullString)
		default:
			dest[i] = new(any)
		}
	}
	return dest
}

func (f *Fetcher) convert(col ColumnMetadata, dest any) any {
	var v any
	switch d := dest.(type) {
	case *[]byte:
		if *d == nil {
			return nil
		}
		return *d
	case *sql.NullString:
		if !d.Valid {
			return nil
		}
		v = d.String
	case *any:
		v = *d
	}

	if b, ok := v.([]byte); ok {
		if col.Type == TypeBlob || col.Type == TypeRaw {
			return b
		}
		v = string(b)
	}
	if v != nil && f.mapper.IsDate(col.Type) {
		return f.formatDate(v)
	}
	return v
}

// formatDate renders time values and canonical date text with the
// display layout. A midnight time part is dropped.
func (f *Fetcher) formatDate(v any) any {
	var t time.Time
	switch d := v.(type) {
	case time.Time:
		t = d
	case string:
		parsed, err := time.Parse(config.CanonicalDateLayout, d)
		if err != nil {
			if parsed, err = time.Parse(config.CanonicalDayLayout, d); err != nil {
				return v
			}
		}
		t = parsed
	default:
		return v
	}
	return strings.TrimSuffix(t.Format(f.dateLayout), config.ZeroTimeSuffix)
}

// FetchAll reads the remaining rows. The outcome is memoized; every call
// returns a fresh copy of the same rows in the requested shape.
func (f *Fetcher) FetchAll(ctx context.Context, shape result.Shape) (*result.Result, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("%w: %d", dberror.ErrInvalidFetchShape, int(shape))
	}
	if f.all == nil {
		all := result.New()
		for {
			values, err := f.next(ctx)
			if err != nil {
				return nil, err
			}
			if values == nil {
				break
			}
			all.Append(result.NewRow(f.names, values, result.Both))
		}
		f.all = all
	}
	out := result.New()
	for _, row := range f.all.Rows() {
		out.Append(result.NewRow(f.names, row.Values(), shape))
	}
	return out, nil
}

// FetchFirstValue returns column of the first row, or its first value when
// column is empty. The outcome is memoized.
func (f *Fetcher) FetchFirstValue(ctx context.Context, column string) (any, error) {
	if f.firstDone {
		return f.first, nil
	}
	var row *result.Row
	if f.all != nil {
		row = f.all.First()
	} else {
		var err error
		if row, err = f.Fetch(ctx, result.Both); err != nil {
			return nil, err
		}
	}
	if row != nil {
		if column == "" {
			f.first = row.At(0)
		} else {
			f.first = row.Get(column)
		}
	}
	f.firstDone = true
	return f.first, nil
}

// FetchArray maps the key column to the val column over all rows. Empty
// arguments select the first and second column.
func (f *Fetcher) FetchArray(ctx context.Context, key, val string) (map[string]any, error) {
	if key == "" {
		key = "0"
	}
	if val == "" {
		val = "1"
	}
	all, err := f.FetchAll(ctx, result.Both)
	if err != nil {
		return nil, err
	}
	return all.Lists(val, key), nil
}

// FetchColumn returns every value of one column, the first column when
// name is empty. An unknown column yields an empty slice.
func (f *Fetcher) FetchColumn(ctx context.Context, name string) ([]any, error) {
	all, err := f.FetchAll(ctx, result.Both)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(f.names) == 0 {
			return []any{}, nil
		}
		name = f.names[0]
	}
	key := strings.ToUpper(name)
	if vals, ok := f.columnVals[key]; ok {
		return vals, nil
	}
	if !f.HasColumn(key) {
		return []any{}, nil
	}
	vals := all.Column(key)
	f.columnVals[key] = vals
	return vals, nil
}

// NumRows returns the affected row count of a non-query, or the number of
// rows a query yields. An unread query is counted with a count(*) wrapper
// bound with the same values.
func (f *Fetcher) NumRows(ctx context.Context) (int64, error) {
	s := f.stmt
	if !s.stmtType.IsQuery() {
		if f.result == nil {
			return 0, nil
		}
		n, err := f.result.RowsAffected()
		if err != nil {
			return 0, s.fail(err)
		}
		return n, nil
	}
	if f.all != nil {
		return int64(f.all.Len()), nil
	}
	if f.counted {
		return f.numRows, nil
	}

	countSQL := "select count(*) as num_rows from (\n" + s.sql + "\n)"
	rendered, markers := s.dialect.Rebind(countSQL)
	row, err := s.conn.QueryRow(ctx, rendered, s.binder.args(markers, false)...)
	if err != nil {
		return 0, err
	}
	if err := row.Scan(&f.numRows); err != nil {
		return 0, s.fail(err)
	}
	f.counted = true
	return f.numRows, nil
}

// ColumnNames returns the upper-cased column names.
func (f *Fetcher) ColumnNames() []string {
	return append([]string(nil), f.names...)
}

// ColumnTypes returns the column metadata in projection order.
func (f *Fetcher) ColumnTypes() []ColumnMetadata {
	return append([]ColumnMetadata(nil), f.columns...)
}

// ColumnType returns the canonical type of a column given by name or by
// zero-based index.
func (f *Fetcher) ColumnType(key string) (string, bool) {
	if i, err := strconv.Atoi(key); err == nil {
		if i < 0 || i >= len(f.columns) {
			return "", false
		}
		return f.columns[i].Type, true
	}
	for _, col := range f.columns {
		if strings.EqualFold(col.Name, key) {
			return col.Type, true
		}
	}
	return "", false
}

// HasColumn reports whether the result has a column called name.
func (f *Fetcher) HasColumn(name string) bool {
	for _, n := range f.names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// DateFormat returns the Go layout dates are rendered with.
func (f *Fetcher) DateFormat() string { return f.dateLayout }

// SetDateFormat changes the layout for rows fetched afterwards.
func (f *Fetcher) SetDateFormat(layout string) { f.dateLayout = layout }

// Mode returns the fetch flags.
func (f *Fetcher) Mode() FetchMode { return f.mode }
