package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nnnkkk7/oraquery/pkg/query"
	"github.com/nnnkkk7/oraquery/pkg/result"
	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

// DefaultPageSize is the number of rows returned per GET /statements/{handle}.
const DefaultPageSize = 100

// SubmitStatement executes a statement and keeps it open so its rows can
// be read page by page.
func (h *Handler) SubmitStatement(w http.ResponseWriter, r *http.Request) {
	var req types.StatementRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "Invalid request")
		return
	}

	ctx := r.Context()
	a, err := h.prepare(ctx, req.StatementSource)
	if err != nil {
		h.writeError(w, r, err, "Statement could not be prepared")
		return
	}
	ms := h.stmtMgr.Register(a, req.SQL)
	h.stmtMgr.UpdateStatus(ms.Handle, query.StatementStatusRunning)

	var (
		cols    []query.ColumnMetadata
		isQuery bool
	)
	err = h.stmtMgr.Use(ctx, ms.Handle, func(ctx context.Context, a *query.Adapter) error {
		// Rows stay open after the request ends.
		execCtx := context.WithoutCancel(ctx)
		if err := a.Execute(execCtx, true); err != nil {
			return err
		}
		f, err := a.Fetcher(execCtx)
		if err != nil {
			return err
		}
		cols = f.ColumnTypes()
		isQuery = a.Statement().StatementType().IsQuery()
		return nil
	})
	if err != nil {
		h.stmtMgr.SetError(ms.Handle, err)
		apiErr := apierror.FromError(err, "Statement failed", h.isAdmin(r))
		apiErr.WithData("statementHandle", ms.Handle).Write(w)
		return
	}
	if !isQuery {
		h.stmtMgr.UpdateStatus(ms.Handle, query.StatementStatusSuccess)
	}

	info, _ := h.stmtMgr.Info(ms.Handle)
	h.log.WithField("handle", ms.Handle).Debug("statement registered")
	resp := statementResponse(info, cols)
	resp.More = isQuery
	writeJSON(w, http.StatusAccepted, resp)
}

// GetStatement returns the next page of rows of a registered statement.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	info, ok := h.stmtMgr.Info(handle)
	if !ok {
		h.writeError(w, r, apierror.NewStatementNotFoundError(handle), "Statement not found")
		return
	}
	if info.Status == query.StatementStatusFailed {
		apiErr := apierror.FromError(info.Err, "Statement failed", h.isAdmin(r))
		apiErr.WithData("statementHandle", handle).Write(w)
		return
	}

	pageSize := DefaultPageSize
	if v := r.URL.Query().Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, apierror.NewInvalidParameterError("pageSize", "must be a positive integer"), "Invalid request")
			return
		}
		pageSize = n
	}

	var (
		cols []query.ColumnMetadata
		page []map[string]any
		more bool
	)
	if info.Status == query.StatementStatusRunning {
		err := h.stmtMgr.Use(r.Context(), handle, func(ctx context.Context, a *query.Adapter) error {
			f, err := a.Fetcher(ctx)
			if err != nil {
				return err
			}
			cols = f.ColumnTypes()
			for len(page) < pageSize {
				row, err := f.Fetch(ctx, result.Assoc)
				if err != nil {
					return err
				}
				if row == nil {
					return nil
				}
				page = append(page, row.Map())
			}
			more = true
			return nil
		})
		if err != nil {
			h.stmtMgr.SetError(handle, err)
			apiErr := apierror.FromError(err, "Statement failed", h.isAdmin(r))
			apiErr.WithData("statementHandle", handle).Write(w)
			return
		}
		if !more {
			h.stmtMgr.UpdateStatus(handle, query.StatementStatusSuccess)
		}
		if latest, ok := h.stmtMgr.Info(handle); ok {
			info = latest
		}
	}

	resp := statementResponse(info, cols)
	resp.Rows = page
	resp.More = more
	writeJSON(w, http.StatusOK, resp)
}

// DeleteStatement cancels a statement and closes it.
func (h *Handler) DeleteStatement(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	info, ok := h.stmtMgr.Info(handle)
	if !ok {
		h.writeError(w, r, apierror.NewStatementNotFoundError(handle), "Statement not found")
		return
	}
	if info.Status == query.StatementStatusRunning || info.Status == query.StatementStatusPending {
		if err := h.stmtMgr.Cancel(handle); err == nil {
			info.Status = query.StatementStatusCanceled
		}
	}
	if err := h.stmtMgr.Delete(handle); err != nil {
		h.writeError(w, r, err, "Statement could not be closed")
		return
	}
	h.log.WithField("handle", handle).Debug("statement closed")
	writeJSON(w, http.StatusOK, statementResponse(info, nil))
}

func statementResponse(info query.StatementInfo, cols []query.ColumnMetadata) types.StatementResponse {
	resp := types.StatementResponse{
		Success:   true,
		Handle:    info.Handle,
		Status:    string(info.Status),
		CreatedOn: info.CreatedOn.UnixMilli(),
	}
	if len(cols) > 0 {
		resp.Columns = columns(cols)
	}
	if t := query.ClassifySQL(info.SQLText).Type; t != "" {
		resp.StatementType = string(t)
	}
	return resp
}
