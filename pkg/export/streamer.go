// Package export writes fetched rows as delimited flat files, either to
// disk or to an HTTP response.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

// ErrUnknownType is returned for file types without a separator.
var ErrUnknownType = errors.New("unknown file type")

// Source yields rows one at a time. *query.Fetcher satisfies it.
type Source interface {
	Fetch(ctx context.Context, shape result.Shape) (*result.Row, error)
	ColumnNames() []string
}

var separators = map[string]rune{
	"txt": '\t',
	"csv": ',',
	"psv": '|',
	"tsv": '~',
}

// Types returns the supported file types.
func Types() []string { return []string{"csv", "psv", "tsv", "txt"} }

// Streamer renders a Source as delimited lines ending in CRLF.
type Streamer struct {
	src      Source
	filename string
	typ      string
	sep      rune
	crlf     bool
}

// NewStreamer creates a streamer for filename. An empty typ is taken from
// the file extension.
func NewStreamer(src Source, filename, typ string) (*Streamer, error) {
	s := &Streamer{src: src, filename: filename, crlf: true}
	if typ == "" {
		typ = strings.TrimPrefix(filepath.Ext(filename), ".")
	}
	if err := s.SetType(typ); err != nil {
		return nil, err
	}
	return s, nil
}

// SetType selects the file type and its separator.
func (s *Streamer) SetType(typ string) error {
	typ = strings.ToLower(typ)
	sep, ok := separators[typ]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	s.typ, s.sep = typ, sep
	return nil
}

// SetSeparator overrides the separator of the file type.
func (s *Streamer) SetSeparator(sep rune) { s.sep = sep }

// SetCRLF chooses between CRLF and LF line endings.
func (s *Streamer) SetCRLF(crlf bool) { s.crlf = crlf }

func (s *Streamer) Filename() string { return s.filename }

func (s *Streamer) Type() string { return s.typ }

func (s *Streamer) Separator() rune { return s.sep }

// Stem returns the file name without directory and extension.
func (s *Streamer) Stem() string {
	base := filepath.Base(s.filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HeaderLine renders the column names.
func (s *Streamer) HeaderLine() (string, error) {
	return s.line(s.src.ColumnNames())
}

// Next renders the next row. It returns io.EOF after the last row.
func (s *Streamer) Next(ctx context.Context) (string, error) {
	row, err := s.src.Fetch(ctx, result.Num)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", io.EOF
	}
	values := row.Values()
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = field(v)
	}
	return s.line(fields)
}

func (s *Streamer) line(fields []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = s.sep
	w.UseCRLF = s.crlf
	if err := w.Write(fields); err != nil {
		return "", err
	}
	w.Flush()
	return buf.String(), w.Error()
}

func field(v any) string {
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
