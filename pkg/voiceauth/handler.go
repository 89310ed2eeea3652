package voiceauth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxRequestBytes bounds the size of a request body.
const MaxRequestBytes = 64 << 20

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// Metrics instruments HTTP requests. Nil disables instrumentation.
	Metrics *Metrics

	// Gatherer serves GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewHandler returns the HTTP API of svc:
//
//	POST   /v1/enroll              EnrollRequest  → EnrollResponse
//	POST   /v1/verify              VerifyRequest  → VerifyResponse
//	GET    /v1/templates           → {"owners": [...]}
//	GET    /v1/templates/{owner}   → TemplateInfo
//	DELETE /v1/templates/{owner}   → 204
//	GET    /healthz
//	GET    /metrics
//
// Failures are reported as ErrorResponse (EnrollResponse for enroll) with
// the status from HTTPStatus.
func NewHandler(svc *Service, opts HandlerOptions) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.instrument)
	r.Use(requestLogger)

	r.Get("/healthz", h.health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/enroll", h.enroll)
		r.Post("/verify", h.verify)
		r.Get("/templates", h.listTemplates)
		r.Get("/templates/{owner}", h.getTemplate)
		r.Delete("/templates/{owner}", h.deleteTemplate)
	})
	return r
}

type handler struct {
	svc *Service
}

func (h *handler) enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, HTTPStatus(err), NewEnrollResponse(nil, err))
		return
	}
	res, err := h.svc.EnrollBuffers(r.Context(), req.OwnerID, req.Buffers())
	writeJSON(w, HTTPStatus(err), NewEnrollResponse(res, err))
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path != "" {
		writeError(w, fmt.Errorf("%w: path is not accepted over HTTP", errBadRequest))
		return
	}
	res, err := h.svc.VerifyBuffer(r.Context(), req.OwnerID, req.Recording)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewVerifyResponse(res))
}

func (h *handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	owners, err := h.svc.Owners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if owners == nil {
		owners = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": owners})
}

func (h *handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Template(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTemplateInfo(t))
}

func (h *handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "owner")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"model":     h.svc.Model().Name(),
		"threshold": h.svc.Threshold(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// writeJSON encodes v before writing the header so that an unencodable
// value turns into a 500 error body instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("voiceauth: encode response", "status", status, "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(NewErrorResponse(fmt.Errorf("encode response: %w", err)))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		slog.Debug("voiceauth: write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, HTTPStatus(err), NewErrorResponse(err))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("voiceauth: http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed", time.Since(start),
		)
	})
}
