// Package httpapi exposes the token service over JSON/HTTP.
//
// Callers identify themselves with the X-Caller header (a hex address).
// Mutations honour an optional Idempotency-Key header: repeating a request
// with the same key returns the original result with status 200 instead of
// 201.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/service"
)

const (
	HeaderCaller         = "X-Caller"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Codes used for failures that are not ledger rejections.
const (
	CodeBadRequest   = "BadRequest"
	CodeTooLarge     = "RequestTooLarge"
	CodeUnauthorized = "Unauthorized"
	CodeConflict     = "IdempotencyConflict"
	CodeRateLimited  = "RateLimited"
	CodeInternal     = "Internal"
	CodeUnhealthy    = "Unhealthy"
)

type Handler struct {
	svc     *service.TokenService
	logger  *slog.Logger
	limiter *RateLimiter
	metrics http.Handler
	now     func() time.Time
	mux     *http.ServeMux
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithRateLimiter(l *RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(svc *service.TokenService, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /health", h.health)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}

	h.mux.HandleFunc("GET /token", h.token)
	h.mux.HandleFunc("GET /accounts/balance", h.balance)
	h.mux.HandleFunc("GET /allowance", h.allowance)
	h.mux.HandleFunc("GET /operations", h.operations)

	h.mux.HandleFunc("POST /transfer", h.transfer)
	h.mux.HandleFunc("POST /approve", h.approve)
	h.mux.HandleFunc("POST /allowance/increase", h.increaseAllowance)
	h.mux.HandleFunc("POST /allowance/decrease", h.decreaseAllowance)
	h.mux.HandleFunc("POST /transfer-from", h.transferFrom)
	h.mux.HandleFunc("POST /mint", h.mint)
	h.mux.HandleFunc("POST /burn", h.burn)
	h.mux.HandleFunc("POST /finish-minting", h.finishMinting)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	if !h.limiter.Allow(rateKey(r), start) {
		writeError(rec, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
	} else {
		h.mux.ServeHTTP(rec, r)
	}

	h.logger.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", h.now().Sub(start),
	)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CheckInvariants(); err != nil {
		h.logger.Error("ledger invariant violated", "error", err)
		writeError(w, http.StatusServiceUnavailable, CodeUnhealthy, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rateKey is the client host. X-Caller is unauthenticated and never part of
// the key.
func rateKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func callerFrom(r *http.Request) (common.Address, error) {
	raw := r.Header.Get(HeaderCaller)
	if raw == "" {
		return common.Address{}, errors.New("missing " + HeaderCaller + " header")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.New(HeaderCaller + " is not a hex address")
	}
	return common.HexToAddress(raw), nil
}

// writeServiceError maps service and ledger errors to responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if kind := ledger.KindOf(err); kind != "" {
		writeError(w, http.StatusUnprocessableEntity, string(kind), err.Error())
		return
	}
	if errors.Is(err, service.ErrIdempotencyConflict) {
		writeError(w, http.StatusConflict, CodeConflict, err.Error())
		return
	}
	h.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
