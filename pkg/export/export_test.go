package export

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/result"
)

type sliceSource struct {
	names []string
	rows  [][]any
	pos   int
}

func (s *sliceSource) Fetch(_ context.Context, shape result.Shape) (*result.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := result.NewRow(s.names, s.rows[s.pos], shape)
	s.pos++
	return row, nil
}

func (s *sliceSource) ColumnNames() []string { return s.names }

func newSource(n int) *sliceSource {
	src := &sliceSource{names: []string{"ID", "NAME"}}
	for i := 1; i <= n; i++ {
		src.rows = append(src.rows, []any{i, "name" + string(rune('0'+i))})
	}
	return src
}

func TestNewStreamer_Types(t *testing.T) {
	tests := []struct {
		filename string
		typ      string
		wantType string
		wantSep  rune
		wantErr  error
	}{
		{"out.txt", "", "txt", '\t', nil},
		{"out.csv", "", "csv", ',', nil},
		{"dir/out.PSV", "", "psv", '|', nil},
		{"out.tsv", "", "tsv", '~', nil},
		{"out", "csv", "csv", ',', nil},
		{"out.xls", "", "", 0, ErrUnknownType},
		{"out", "", "", 0, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.filename+"/"+tt.typ, func(t *testing.T) {
			s, err := NewStreamer(newSource(0), tt.filename, tt.typ)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewStreamer() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if s.Type() != tt.wantType || s.Separator() != tt.wantSep {
				t.Errorf("got type %q sep %q, want %q %q", s.Type(), s.Separator(), tt.wantType, tt.wantSep)
			}
		})
	}
}

func TestStreamer_Lines(t *testing.T) {
	ctx := context.Background()
	src := &sliceSource{
		names: []string{"ID", "NAME", "NOTES"},
		rows: [][]any{
			{1, "Acme", nil},
			{2, "Globex, Inc", []byte("vip")},
		},
	}
	s, err := NewStreamer(src, "resellers.csv", "")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}

	var got []string
	header, err := s.HeaderLine()
	if err != nil {
		t.Fatalf("HeaderLine failed: %v", err)
	}
	got = append(got, header)
	for {
		line, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, line)
	}

	want := []string{
		"ID,NAME,NOTES\r\n",
		"1,Acme,\r\n",
		"2,\"Globex, Inc\",vip\r\n",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamer_PipeSeparatedWithLF(t *testing.T) {
	s, err := NewStreamer(newSource(1), "out.psv", "")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	s.SetCRLF(false)

	line, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if line != "1|name1\n" {
		t.Errorf("Next() = %q", line)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) failed: %v", path, err)
	}
	return string(data)
}

func TestWriter_SplitsFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStreamer(newSource(5), filepath.Join(dir, "out.csv"), "")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	w := NewWriter(s)
	w.LinesPerFile = 2

	files, err := w.Write(context.Background())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "out_01.csv"),
		filepath.Join(dir, "out_02.csv"),
		filepath.Join(dir, "out_03.csv"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	contents := []string{
		"ID,NAME\r\n1,name1\r\n2,name2\r\n",
		"ID,NAME\r\n3,name3\r\n4,name4\r\n",
		"ID,NAME\r\n5,name5\r\n",
	}
	for i, f := range files {
		if diff := cmp.Diff(contents[i], readFile(t, f)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", f, diff)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "out.csv")); !os.IsNotExist(err) {
		t.Errorf("Expected out.csv to be renamed, stat error = %v", err)
	}
}

func TestWriter_ExactMultipleDoesNotLeaveEmptyFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStreamer(newSource(2), filepath.Join(dir, "out.txt"), "")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	w := NewWriter(s)
	w.LinesPerFile = 2

	files, err := w.Write(context.Background())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "out.txt")}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_Modes(t *testing.T) {
	tests := []struct {
		name        string
		mode        WriteMode
		showHeaders bool
		want        string
	}{
		{"overwrite", Overwrite, true, "ID~NAME\r\n1~name1\r\n"},
		{"append", Append, false, "previous\r\n1~name1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.tsv")
			if err := os.WriteFile(path, []byte("previous\r\n"), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			s, err := NewStreamer(newSource(1), path, "")
			if err != nil {
				t.Fatalf("NewStreamer failed: %v", err)
			}
			w := NewWriter(s)
			w.Mode = tt.mode
			w.ShowHeaders = tt.showHeaders

			if _, err := w.Write(context.Background()); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, readFile(t, path)); diff != "" {
				t.Errorf("content mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSender_Send(t *testing.T) {
	tests := []struct {
		filename    string
		wantType    string
		wantName    string
		wantBody    string
		showHeaders bool
	}{
		{"reports/resellers.csv", "text/comma-separated-values", "attachment; filename=resellers.csv", "ID,NAME\r\n1,name1\r\n", true},
		{"resellers.txt", "text/plain", "attachment; filename=resellers.txt", "1\tname1\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			s, err := NewStreamer(newSource(1), tt.filename, "")
			if err != nil {
				t.Fatalf("NewStreamer failed: %v", err)
			}
			sender := NewSender(s)
			sender.ShowHeaders = tt.showHeaders
			sender.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }

			rec := httptest.NewRecorder()
			if err := sender.Send(context.Background(), rec); err != nil {
				t.Fatalf("Send failed: %v", err)
			}

			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if got := rec.Header().Get("Content-Disposition"); got != tt.wantName {
				t.Errorf("Content-Disposition = %q, want %q", got, tt.wantName)
			}
			if got := rec.Header().Get("Last-Modified"); got != "Tue, 05 Mar 2024 10:00:00 GMT" {
				t.Errorf("Last-Modified = %q", got)
			}
			if diff := cmp.Diff(tt.wantBody, rec.Body.String()); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
