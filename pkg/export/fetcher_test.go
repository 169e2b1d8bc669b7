package export

import (
	"context"
	"net/http/httptest"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/query"
)

var _ Source = (*query.Fetcher)(nil)

func TestSender_FromFetcher(t *testing.T) {
	ctx := context.Background()
	cfg := config.New()
	cfg.Driver = "duckdb"

	a, err := query.NewAdapter(cfg, "main", "memory")
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.Prepare(ctx, "select * from (values (1, 'Acme', DATE '2024-03-05'), (2, NULL, NULL)) as t(id, name, created) order by id"); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	f, err := a.Fetcher(ctx)
	if err != nil {
		t.Fatalf("Fetcher failed: %v", err)
	}
	s, err := NewStreamer(f, "resellers", "psv")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := NewSender(s).Send(ctx, rec); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	want := "ID|NAME|CREATED\r\n1|Acme|05-03-2024\r\n2||\r\n"
	if diff := cmp.Diff(want, rec.Body.String()); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}
