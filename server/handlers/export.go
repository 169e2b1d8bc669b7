package handlers

import (
	"errors"
	"net/http"

	"github.com/nnnkkk7/oraquery/pkg/export"
	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

// Export runs a query and sends its rows as a flat-file download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "Invalid request")
		return
	}
	if req.Filename == "" {
		h.writeError(w, r, apierror.NewInvalidParameterError("filename", "filename is required"), "Invalid request")
		return
	}

	ctx := r.Context()
	a, err := h.prepare(ctx, req.StatementSource)
	if err != nil {
		h.writeError(w, r, err, "Export could not be prepared")
		return
	}
	defer func() { _ = a.Close() }()

	f, err := a.Fetcher(ctx)
	if err != nil {
		h.writeError(w, r, err, "Export failed")
		return
	}
	s, err := export.NewStreamer(f, req.Filename, req.Type)
	if errors.Is(err, export.ErrUnknownType) {
		h.writeError(w, r, apierror.NewInvalidParameterError("type", err.Error()), "Invalid request")
		return
	}
	if err != nil {
		h.writeError(w, r, err, "Export failed")
		return
	}

	sender := export.NewSender(s)
	if req.ShowHeaders != nil {
		sender.ShowHeaders = *req.ShowHeaders
	}
	if err := sender.Send(ctx, w); err != nil {
		h.log.WithError(err).WithField("filename", req.Filename).Error("export interrupted")
	}
}
