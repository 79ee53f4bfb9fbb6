// Package httpx wires HTTP endpoints to services.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
	"github.com/haw0k/mern-links/internal/service/auth"
	"github.com/haw0k/mern-links/internal/service/link"
)

const (
	rateWindowDefault  = time.Minute
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitLinkWrite = 60
	rateLimitLinkRead  = 120
	healthCheckTimeout = 2 * time.Second

	genericErrorMessage = "something went wrong, try again"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	links    link.Service
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, linkSvc link.Service, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		links:    linkSvc,
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/register", r.audit("/register", r.withRateLimit("/register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/login", r.audit("/login", r.withRateLimit("/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/link/generate", r.audit("/api/link/generate", r.handlerAuthRate("/api/link/generate", rateLimitLinkWrite, rateWindowDefault, r.handleLinkGenerate)))
	r.mux.HandleFunc("/api/link", r.audit("/api/link", r.handlerAuthRate("/api/link", rateLimitLinkRead, rateWindowDefault, r.handleLinkList)))
	r.mux.HandleFunc("/api/link/", r.audit("/api/link/{id}", r.handlerAuthRate("/api/link/{id}", rateLimitLinkRead, rateWindowDefault, r.handleLinkDetail)))
	r.mux.HandleFunc("/t/", r.audit("/t/{code}", r.handleRedirect))
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	_, err := r.auth.Register(req.Context(), payload.Email, payload.Password)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidation(w, verr.Fields, "invalid registration data")
		case errors.Is(err, auth.ErrDuplicateAccount):
			writeMessage(w, http.StatusBadRequest, "account already exists")
		default:
			r.logger.Error("registration failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		}
		return
	}
	writeMessage(w, http.StatusCreated, "account created")
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidation(w, verr.Fields, "invalid login data")
		case errors.Is(err, auth.ErrAccountNotFound):
			writeMessage(w, http.StatusBadRequest, "account not found")
		case errors.Is(err, auth.ErrCredentialMismatch):
			writeMessage(w, http.StatusBadRequest, "invalid password")
		default:
			r.logger.Error("login failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     session.Token,
		"accountId": session.AccountID,
	})
}

func (r *Router) handleLinkGenerate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		From string `json:"from"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for link creation", "path", req.URL.Path)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	l, err := r.links.Shorten(req.Context(), info.AccountID, payload.From)
	if err != nil {
		if errors.Is(err, link.ErrInvalidTarget) {
			writeMessage(w, http.StatusBadRequest, "enter a valid url")
			return
		}
		r.logger.Error("link creation failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"link": r.marshalLink(l)})
}

func (r *Router) handleLinkList(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for link listing", "path", req.URL.Path)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	links, err := r.links.List(req.Context(), info.AccountID)
	if err != nil {
		r.logger.Error("link listing failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	payload := make([]map[string]any, 0, len(links))
	for i := range links {
		payload = append(payload, r.marshalLink(&links[i]))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (r *Router) handleLinkDetail(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(req.URL.Path, "/api/link/")
	if id == "" || strings.Contains(id, "/") {
		writeMessage(w, http.StatusNotFound, "link not found")
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for link detail", "path", req.URL.Path)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	l, err := r.links.Get(req.Context(), info.AccountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "link not found")
			return
		}
		r.logger.Error("link detail failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"link": r.marshalLink(l)})
}

func (r *Router) handleRedirect(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	code := strings.TrimPrefix(req.URL.Path, "/t/")
	if code == "" || strings.Contains(code, "/") {
		writeMessage(w, http.StatusNotFound, "link not found")
		return
	}
	l, err := r.links.Resolve(req.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "link not found")
			return
		}
		r.logger.Error("redirect failed", "error", err, "code", code)
		writeMessage(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	http.Redirect(w, req, l.Target, http.StatusFound)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) marshalLink(l *domain.Link) map[string]any {
	return map[string]any{
		"id":     l.ID,
		"code":   l.Code,
		"from":   l.Target,
		"to":     r.links.ShortURL(l),
		"owner":  l.OwnerID,
		"clicks": l.Clicks,
		"date":   l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// audit logs the request outcome and records metrics under a stable route
// label.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "account"
			fields = append(fields, "account_id", info.AccountID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
