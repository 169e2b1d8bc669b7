package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQueryRequestJSON(t *testing.T) {
	input := `{
		"sql": "select * from resellers where id in (:ids)",
		"binds": {"ids": [1, 2], "name": "Acme"},
		"schema": "MAIN",
		"shape": "num",
		"commit": false
	}`

	var req QueryRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatalf("Failed to unmarshal QueryRequest: %v", err)
	}

	commit := false
	want := QueryRequest{
		StatementSource: StatementSource{
			SQL:    "select * from resellers where id in (:ids)",
			Binds:  map[string]any{"ids": []any{1.0, 2.0}, "name": "Acme"},
			Schema: "MAIN",
		},
		Shape:  "num",
		Commit: &commit,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("QueryRequest mismatch (-want +got):\n%s", diff)
	}
}

func TestStatementResponseJSON(t *testing.T) {
	resp := StatementResponse{
		Success: true,
		Handle:  "abc",
		Status:  "running",
		Columns: []ColumnMetadata{{Name: "ID", Type: "NUMBER", Nullable: true}},
		Rows:    []map[string]any{{"ID": 1.0}},
		More:    true,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal StatementResponse: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal StatementResponse: %v", err)
	}
	want := map[string]any{
		"success":         true,
		"statementHandle": "abc",
		"status":          "running",
		"columns":         []any{map[string]any{"name": "ID", "type": "NUMBER", "nullable": true}},
		"rows":            []any{map[string]any{"ID": 1.0}},
		"more":            true,
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("StatementResponse mismatch (-want +got):\n%s", diff)
	}
}

func TestExportRequestJSON(t *testing.T) {
	input := `{"sql": "select 1", "filename": "out.csv", "showHeaders": false}`

	var req ExportRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatalf("Failed to unmarshal ExportRequest: %v", err)
	}
	if req.SQL != "select 1" || req.Filename != "out.csv" || req.Type != "" {
		t.Errorf("Unexpected ExportRequest: %+v", req)
	}
	if req.ShowHeaders == nil || *req.ShowHeaders {
		t.Errorf("Expected ShowHeaders=false, got %v", req.ShowHeaders)
	}
}
