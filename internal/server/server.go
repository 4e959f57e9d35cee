// Package server exposes a visor.Service as a JSON-over-HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/visor"
	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// maxBodyBytes bounds a query submission body.
const maxBodyBytes = 1 << 20

// Service is the subset of *visor.Service the handlers use.
type Service interface {
	Registry() *query.Registry
	Submit(ctx context.Context, raw query.Raw) (query.SessionID, error)
	PollStatus(id query.SessionID) (execution.Status, error)
	Wait(ctx context.Context, id query.SessionID) (execution.Status, error)
	Result(ctx context.Context, id query.SessionID, blocking bool) (*model.Result, error)
	FetchPage(ctx context.Context, id query.SessionID, pageNumber, pageSize int, opts ...visor.FetchOption) (*visor.Page, error)
	Lookup(id query.SessionID) (query.Definition, error)
	Stats() cache.Stats
}

// Handler holds the HTTP handlers of the query API.
type Handler struct {
	svc    Service
	title  string
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTitle sets the title reported by GET /engines.
func WithTitle(title string) Option {
	return func(h *Handler) { h.title = title }
}

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, fn := range opts {
		fn(h)
	}
	return h
}

// RegisterRoutes registers all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /engines", h.handleEngines)
	mux.HandleFunc("GET /stats", h.handleStats)

	mux.HandleFunc("POST /queries", h.handleSubmit)
	mux.HandleFunc("GET /queries/{qsid}", h.handleStatus)
	mux.HandleFunc("GET /queries/{qsid}/wait", h.handleWait)
	mux.HandleFunc("GET /queries/{qsid}/pages/{page}", h.handlePage)
}

// Routes returns a mux serving the API.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

type engineInfo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	ImageInput    bool   `json:"image_input"`
	SimilarEngine string `json:"similar_engine,omitempty"`
}

func (h *Handler) handleEngines(w http.ResponseWriter, _ *http.Request) {
	reg := h.svc.Registry()

	names := reg.EngineNames()
	engines := make([]engineInfo, 0, len(names))
	for _, name := range names {
		e, _ := reg.Engine(name)
		engines = append(engines, engineInfo{
			Name:          e.Name,
			FullName:      e.FullName,
			ImageInput:    e.ImageInput,
			SimilarEngine: e.SimilarEngine,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"title":           h.title,
		"engines":         engines,
		"datasets":        reg.Datasets(),
		"default_dataset": reg.DefaultDataset(),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var raw query.Raw
	if err := gojson.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.Submit(r.Context(), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"qsid": id.String()})
}

type statusResponse struct {
	ID     query.SessionID  `json:"qsid"`
	Query  query.Definition `json:"query"`
	Status execution.Status `json:"status"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	st, err := h.svc.PollStatus(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeStatus(w, r, id, st, http.StatusOK)
}

func (h *Handler) handleWait(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	st, err := h.svc.Wait(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	code := http.StatusOK
	if st.State.Failed() {
		code = http.StatusBadGateway
	}
	h.writeStatus(w, r, id, st, code)
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, id query.SessionID, st execution.Status, code int) {
	def, err := h.svc.Lookup(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, code, statusResponse{ID: id, Query: def, Status: st})
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	number, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}

	q := r.URL.Query()

	size := 0
	if s := q.Get("size"); s != "" {
		if size, err = strconv.Atoi(s); err != nil || size < 0 {
			writeError(w, http.StatusBadRequest, "invalid page size")
			return
		}
	}

	var opts []visor.FetchOption
	if flag(q.Get("roi_only")) {
		opts = append(opts, visor.ROIOnly())
	}
	if flag(q.Get("resolve_rois")) {
		opts = append(opts, visor.ResolveROIs())
	}

	if flag(q.Get("wait")) {
		if _, err := h.svc.Result(r.Context(), id, true); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	p, err := h.svc.FetchPage(r.Context(), id, number, size, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (query.SessionID, bool) {
	id, err := query.ParseSessionID(r.PathValue("qsid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// fail maps a service error onto an HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"error", err,
		)
	}
	writeError(w, code, err.Error())
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, visor.ErrValidation), errors.Is(err, visor.ErrUnknownEngine):
		return http.StatusBadRequest
	case errors.Is(err, visor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, visor.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, visor.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, visor.ErrExecutionFailed):
		return http.StatusBadGateway
	case errors.Is(err, visor.ErrWaitTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, visor.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func flag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
