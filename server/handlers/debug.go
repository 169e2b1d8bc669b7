package handlers

import (
	"bytes"
	"net/http"

	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

// Debug prepares a statement without running it and renders its SQL and
// binds, or the error view when preparing fails. Admin only.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		h.writeError(w, r, apierror.NewPermissionDeniedError("debug"), "Permission denied")
		return
	}
	var req types.DebugRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "Invalid request")
		return
	}
	if req.SQL == "" {
		h.writeError(w, r, apierror.NewInvalidParameterError("sql", "SQL text is required"), "Invalid request")
		return
	}

	a, err := h.open(req.StatementSource)
	if err != nil {
		h.writeError(w, r, err, "Connection failed")
		return
	}
	defer func() { _ = a.Close() }()

	renderer := apierror.NewRenderer(true)
	status := http.StatusOK
	var buf bytes.Buffer
	loadErr := h.load(r.Context(), a, req.StatementSource)
	switch {
	case loadErr == nil:
		err = renderer.RenderDebug(&buf, a.Statement())
	case a.Statement() != nil:
		status = apierror.HTTPStatus(apierror.Code(loadErr))
		err = renderer.RenderError(&buf, a.Statement(), "Statement could not be prepared")
	default:
		h.writeError(w, r, loadErr, "Statement could not be prepared")
		return
	}
	if err != nil {
		h.writeError(w, r, err, "Debug view failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
