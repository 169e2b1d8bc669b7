package handlers

import (
	"net/http"

	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

// Query runs one statement and returns all of its rows.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "Invalid request")
		return
	}
	shape, err := parseShape(req.Shape)
	if err != nil {
		h.writeError(w, r, apierror.NewInvalidParameterError("shape", err.Error()), "Invalid request")
		return
	}
	commit := req.Commit == nil || *req.Commit

	ctx := r.Context()
	a, err := h.prepare(ctx, req.StatementSource)
	if err != nil {
		h.writeError(w, r, err, "Query could not be prepared")
		return
	}
	defer func() { _ = a.Close() }()

	if err := a.Execute(ctx, commit); err != nil {
		h.writeError(w, r, err, "Query failed")
		return
	}
	f, err := a.Fetcher(ctx)
	if err != nil {
		h.writeError(w, r, err, "Query failed")
		return
	}
	if req.DateFormat != "" {
		f.SetDateFormat(req.DateFormat)
	}
	res, err := f.FetchAll(ctx, shape)
	if err != nil {
		h.writeError(w, r, err, "Query failed")
		return
	}
	n, err := f.NumRows(ctx)
	if err != nil {
		h.writeError(w, r, err, "Query failed")
		return
	}

	writeJSON(w, http.StatusOK, types.QueryResponse{
		Success:       true,
		StatementType: string(a.Statement().StatementType()),
		Columns:       columns(f.ColumnTypes()),
		Rows:          rows(res),
		NumRows:       n,
	})
}
