// Package handlers provides the HTTP handlers of the query server.
package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/query"
	"github.com/nnnkkk7/oraquery/pkg/result"
	"github.com/nnnkkk7/oraquery/server/apierror"
	"github.com/nnnkkk7/oraquery/server/types"
)

// AdminTokenHeader carries the token that grants admin privileges.
const AdminTokenHeader = "X-Admin-Token"

// Handler serves the query API.
type Handler struct {
	cfg      *config.Config
	stmtMgr  *query.StatementManager
	connOpts []connection.Option
	stmtOpts []query.StatementOption
	log      logrus.FieldLogger
}

// Option configures a Handler.
type Option func(*Handler)

// WithConnectionOptions sets the options of every connection the handler opens.
func WithConnectionOptions(opts ...connection.Option) Option {
	return func(h *Handler) { h.connOpts = opts }
}

// WithStatementOptions sets the options of every statement the handler
// prepares, such as a query logger.
func WithStatementOptions(opts ...query.StatementOption) Option {
	return func(h *Handler) { h.stmtOpts = opts }
}

// WithLogger sets the handler's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a handler. Statements registered through the API are
// kept in stmtMgr.
func NewHandler(cfg *config.Config, stmtMgr *query.StatementManager, opts ...Option) *Handler {
	h := &Handler{
		cfg:     cfg,
		stmtMgr: stmtMgr,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/query", h.Query)
	r.Post("/export", h.Export)
	r.Post("/debug", h.Debug)

	r.Route("/statements", func(r chi.Router) {
		r.Post("/", h.SubmitStatement)
		r.Get("/{handle}", h.GetStatement)
		r.Delete("/{handle}", h.DeleteStatement)
	})

	r.Get("/health", h.Health)
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.log.WithError(err).Warn("failed to write health response")
	}
}

func (h *Handler) isAdmin(r *http.Request) bool {
	if h.cfg.AdminToken == "" {
		return false
	}
	token := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.AdminToken)) == 1
}

// open creates an adapter for the request's schema. Empty names fall back
// to the configured defaults.
func (h *Handler) open(src types.StatementSource) (*query.Adapter, error) {
	a, err := query.NewAdapter(h.cfg, src.Schema, src.Database, h.connOpts...)
	if err != nil {
		return nil, err
	}
	return a.WithStatementOptions(h.stmtOpts...), nil
}

// load prepares the request's SQL on a and applies its binds.
func (h *Handler) load(ctx context.Context, a *query.Adapter, src types.StatementSource) error {
	if err := a.Prepare(ctx, src.SQL); err != nil {
		return err
	}
	if len(src.Binds) == 0 {
		return nil
	}
	return a.Bind(ctx, normalizeBinds(src.Binds))
}

// prepare opens an adapter and loads src into it. The adapter is closed
// on failure.
func (h *Handler) prepare(ctx context.Context, src types.StatementSource) (*query.Adapter, error) {
	if src.SQL == "" {
		return nil, apierror.NewInvalidParameterError("sql", "SQL text is required")
	}
	a, err := h.open(src)
	if err != nil {
		return nil, err
	}
	if err := h.load(ctx, a, src); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, custom string) *apierror.APIError {
	apiErr := apierror.FromError(err, custom, h.isAdmin(r))
	if apiErr.Code == apierror.CodeInternalError {
		h.log.WithError(err).Error(custom)
	} else {
		h.log.WithError(err).WithField("code", apiErr.Code).Debug(custom)
	}
	apiErr.Write(w)
	return apiErr
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.NewInvalidParameterError("body", "Invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// normalizeBinds turns whole JSON numbers into int64 so they bind as
// integers.
func normalizeBinds(binds map[string]any) map[string]any {
	out := make(map[string]any, len(binds))
	for k, v := range binds {
		out[k] = normalizeBind(v)
	}
	return out
}

func normalizeBind(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBind(e)
		}
		return out
	default:
		return v
	}
}

var errInvalidShape = errors.New("shape must be assoc, num or both")

func parseShape(s string) (result.Shape, error) {
	switch s {
	case "", "assoc":
		return result.Assoc, nil
	case "num":
		return result.Num, nil
	case "both":
		return result.Both, nil
	default:
		return 0, errInvalidShape
	}
}

func columns(cols []query.ColumnMetadata) []types.ColumnMetadata {
	out := make([]types.ColumnMetadata, len(cols))
	for i, c := range cols {
		out[i] = types.ColumnMetadata{
			Name:         c.Name,
			Type:         c.Type,
			DatabaseType: c.DatabaseType,
			Length:       c.Length,
			Precision:    c.Precision,
			Scale:        c.Scale,
			Nullable:     c.Nullable,
		}
	}
	return out
}

func rows(res *result.Result) []map[string]any {
	out := make([]map[string]any, 0, res.Len())
	for _, row := range res.Rows() {
		out = append(out, row.Map())
	}
	return out
}
