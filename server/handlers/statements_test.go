package handlers

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/query"
	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

func submit(t *testing.T, ts *testServer, sqlText string) types.StatementResponse {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/statements", types.StatementRequest{
		StatementSource: types.StatementSource{SQL: sqlText},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /statements = %d: %s", rec.Code, rec.Body.String())
	}
	var resp types.StatementResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestStatements_Paging(t *testing.T) {
	ts := setupTestServer(t)

	created := submit(t, ts, "select id, name from resellers order by id")
	if created.Handle == "" || created.Status != string(query.StatementStatusRunning) || !created.More {
		t.Fatalf("Unexpected submit response: %+v", created)
	}
	if created.StatementType != "SELECT" || len(created.Columns) != 2 {
		t.Errorf("Unexpected statement metadata: %+v", created)
	}

	pages := []struct {
		rows   []map[string]any
		more   bool
		status query.StatementStatus
	}{
		{
			rows:   []map[string]any{{"ID": 1.0, "NAME": "Acme"}, {"ID": 2.0, "NAME": "Globex"}},
			more:   true,
			status: query.StatementStatusRunning,
		},
		{
			rows:   []map[string]any{{"ID": 3.0, "NAME": "Initech"}},
			status: query.StatementStatusSuccess,
		},
		{
			status: query.StatementStatusSuccess,
		},
	}
	for i, want := range pages {
		rec := ts.do(t, http.MethodGet, "/statements/"+created.Handle+"?pageSize=2", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("page %d: GET = %d: %s", i, rec.Code, rec.Body.String())
		}
		var got types.StatementResponse
		decodeBody(t, rec, &got)
		if diff := cmp.Diff(want.rows, got.Rows); diff != "" {
			t.Errorf("page %d rows mismatch (-want +got):\n%s", i, diff)
		}
		if got.More != want.more || got.Status != string(want.status) {
			t.Errorf("page %d: more=%v status=%s, want more=%v status=%s", i, got.More, got.Status, want.more, want.status)
		}
	}

	rec := ts.do(t, http.MethodDelete, "/statements/"+created.Handle, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE = %d: %s", rec.Code, rec.Body.String())
	}
	if ts.stmtMgr.Len() != 0 {
		t.Errorf("Expected no managed statements, got %d", ts.stmtMgr.Len())
	}
	if rec := ts.do(t, http.MethodGet, "/statements/"+created.Handle, nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET after DELETE = %d, want 404", rec.Code)
	}
}

func TestStatements_NonQuery(t *testing.T) {
	ts := setupTestServer(t)

	created := submit(t, ts, "update resellers set name = upper(name)")
	if created.Status != string(query.StatementStatusSuccess) || created.More {
		t.Errorf("Unexpected submit response: %+v", created)
	}
	if created.StatementType != "UPDATE" {
		t.Errorf("Expected UPDATE, got %q", created.StatementType)
	}

	var name string
	if err := ts.db.QueryRow("SELECT name FROM resellers WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if name != "ACME" {
		t.Errorf("Expected committed update, got %q", name)
	}
}

func TestStatements_DeleteCancelsRunning(t *testing.T) {
	ts := setupTestServer(t)
	created := submit(t, ts, "select id from resellers")

	rec := ts.do(t, http.MethodDelete, "/statements/"+created.Handle, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE = %d: %s", rec.Code, rec.Body.String())
	}
	var got types.StatementResponse
	decodeBody(t, rec, &got)
	if got.Status != string(query.StatementStatusCanceled) {
		t.Errorf("Expected canceled status, got %q", got.Status)
	}
}

func TestStatements_Failure(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/statements", types.StatementRequest{
		StatementSource: types.StatementSource{SQL: "insert into resellers values (1, 'Duplicate')"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("POST /statements = %d: %s", rec.Code, rec.Body.String())
	}
	var failed apierror.ErrorResponse
	decodeBody(t, rec, &failed)
	handle, _ := failed.Data["statementHandle"].(string)
	if handle == "" || failed.Code != apierror.CodeSQLExecutionError {
		t.Fatalf("Unexpected error response: %+v", failed)
	}

	rec = ts.do(t, http.MethodGet, "/statements/"+handle, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("GET failed statement = %d, want 422", rec.Code)
	}
}

func TestStatements_Errors(t *testing.T) {
	ts := setupTestServer(t)
	created := submit(t, ts, "select 1 as one")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"submit without sql", http.MethodPost, "/statements", types.StatementRequest{}, http.StatusBadRequest},
		{"submit parse error", http.MethodPost, "/statements", types.StatementRequest{
			StatementSource: types.StatementSource{SQL: "selec 1"},
		}, http.StatusBadRequest},
		{"unknown handle", http.MethodGet, "/statements/unknown", nil, http.StatusNotFound},
		{"invalid page size", http.MethodGet, "/statements/" + created.Handle + "?pageSize=abc", nil, http.StatusBadRequest},
		{"zero page size", http.MethodGet, "/statements/" + created.Handle + "?pageSize=0", nil, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/statements/unknown", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
