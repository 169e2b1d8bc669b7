package query

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/sqltext"
)

type outParam struct {
	name  string
	label string
	size  int
	dest  *string
}

// Binder attaches values to the bind markers of a Statement.
//
// The applied set only ever holds names whose marker occurs in the
// statement's current SQL. A list value expands into one scalar bind per
// element and rewrites the SQL, which re-prepares the statement.
type Binder struct {
	stmt    *Statement
	applied []Bind
	outs    []*outParam
}

func newBinder(s *Statement) *Binder {
	return &Binder{stmt: s}
}

func (b *Binder) reset() {
	b.applied = nil
	b.outs = nil
}

// Bind applies binds in name order.
func (b *Binder) Bind(ctx context.Context, binds map[string]any) error {
	names := make([]string, 0, len(binds))
	for name := range binds {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]Bind, len(names))
	for i, name := range names {
		ordered[i] = Bind{Name: name, Value: binds[name]}
	}
	return b.BindOrdered(ctx, ordered)
}

// BindOrdered applies binds in the given order. On error the applied set
// and the SQL are left unchanged.
func (b *Binder) BindOrdered(ctx context.Context, binds []Bind) error {
	current := b.stmt.SQL()
	rewritten, applied, err := resolveBinds(current, b.applied, binds)
	if err != nil {
		return err
	}
	if rewritten != current {
		if err := b.stmt.parse(ctx, rewritten); err != nil {
			return err
		}
		b.stmt.log.WithField("sql", rewritten).Debug("rewrote statement for list binds")
	}
	b.applied = applied
	return nil
}

// resolveBinds applies pending to applied against sqlText and returns the
// resulting SQL and bind set.
//
// States per pending bind:
//   - invalid name: fail
//   - marker absent: skip
//   - empty list: skip
//   - one-element list or scalar: validate and upsert
//   - longer list: rewrite the marker to name0..nameN-1, then restart with
//     the binds applied so far, the expanded binds and the rest.
func resolveBinds(sqlText string, applied, pending []Bind) (string, []Bind, error) {
	applied = append([]Bind(nil), applied...)
	for len(pending) > 0 {
		bind := pending[0]
		pending = pending[1:]

		name := sqltext.CanonicalName(bind.Name)
		if name == "" {
			return "", nil, fmt.Errorf("%w: %q", dberror.ErrInvalidBindName, bind.Name)
		}
		if !sqltext.HasMarker(sqlText, name) {
			continue
		}

		value := bind.Value
		if list, ok := listValues(value); ok {
			switch len(list) {
			case 0:
				continue
			case 1:
				value = list[0]
			default:
				expanded := make([]Bind, len(list))
				names := make([]string, len(list))
				for i, v := range list {
					names[i] = fmt.Sprintf("%s%d", name, i)
					expanded[i] = Bind{Name: names[i], Value: v}
				}
				sqlText = sqltext.ReplaceMarker(sqlText, name, strings.Join(names, ", "))

				next := make([]Bind, 0, len(applied)+len(expanded)+len(pending))
				next = append(next, applied...)
				next = append(next, expanded...)
				next = append(next, pending...)
				pending = next
				applied = nil
				continue
			}
		}

		if _, err := driver.DefaultParameterConverter.ConvertValue(value); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %w", dberror.ErrBind, name, err)
		}
		applied = upsertBind(applied, Bind{Name: name, Value: value})
	}
	return sqlText, applied, nil
}

// listValues returns the elements of slice and array values. Byte slices
// and driver.Valuer implementations are scalars.
func listValues(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.(driver.Valuer); ok {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func upsertBind(binds []Bind, bind Bind) []Bind {
	for i := range binds {
		if strings.EqualFold(binds[i].Name, bind.Name) {
			binds[i].Value = bind.Value
			return binds
		}
	}
	return append(binds, bind)
}

// BindOutParameter registers an output parameter for name. After
// execution its value is read with OutParameter(label).
func (b *Binder) BindOutParameter(name, label string, maxSize int) error {
	canonical := sqltext.CanonicalName(name)
	if canonical == "" {
		return fmt.Errorf("%w: %q", dberror.ErrInvalidBindName, name)
	}
	if !sqltext.HasMarker(b.stmt.SQL(), canonical) {
		return nil
	}
	for _, out := range b.outs {
		if strings.EqualFold(out.name, canonical) {
			out.label = label
			out.size = maxSize
			return nil
		}
	}
	b.outs = append(b.outs, &outParam{name: canonical, label: label, size: maxSize, dest: new(string)})
	return nil
}

// OutParameter returns the value received by the output parameter
// registered under label.
func (b *Binder) OutParameter(label string) (string, bool) {
	for _, out := range b.outs {
		if out.label == label {
			return *out.dest, true
		}
	}
	return "", false
}

// Variables returns a copy of the applied binds in application order.
func (b *Binder) Variables() []Bind {
	return append([]Bind(nil), b.applied...)
}

// Value returns the applied value of name.
func (b *Binder) Value(name string) (any, bool) {
	name = sqltext.CanonicalName(name)
	for _, bind := range b.applied {
		if strings.EqualFold(bind.Name, name) {
			return bind.Value, true
		}
	}
	return nil, false
}

// Diagnostics renders one "name => value" line per applied bind.
func (b *Binder) Diagnostics() string {
	lines := make([]string, 0, len(b.applied))
	for _, bind := range b.applied {
		lines = append(lines, fmt.Sprintf("%s => %s", bind.Name, formatBindValue(bind.Value)))
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer.
func (b *Binder) String() string { return b.Diagnostics() }

func formatBindValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + t + "'"
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(t))
	default:
		return fmt.Sprint(t)
	}
}

// args returns the driver arguments for SQL whose markers are given in
// driver order. Named dialects ignore markers and bind every applied name.
func (b *Binder) args(markers []string, withOuts bool) []any {
	d := b.stmt.dialect
	if d.Named() {
		args := make([]any, 0, len(b.applied)+len(b.outs))
		for _, bind := range b.applied {
			args = append(args, d.Arg(strings.TrimPrefix(bind.Name, ":"), bind.Value))
		}
		if withOuts {
			for _, out := range b.outs {
				args = append(args, d.OutArg(strings.TrimPrefix(out.name, ":"), out.dest, out.size))
			}
		}
		return args
	}

	args := make([]any, len(markers))
	for i, marker := range markers {
		if withOuts {
			if out := b.out(marker); out != nil {
				args[i] = d.OutArg(marker, out.dest, out.size)
				continue
			}
		}
		value, _ := b.Value(marker)
		args[i] = d.Arg(marker, value)
	}
	return args
}

func (b *Binder) out(name string) *outParam {
	for _, out := range b.outs {
		if strings.EqualFold(out.name, name) {
			return out
		}
	}
	return nil
}
