package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"rowhub.org/internal/auth"
	"rowhub.org/internal/obs"
	"rowhub.org/internal/perf"
	"rowhub.org/internal/roster"
)

// ReadyProbe is a readiness check, typically a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	roster   *roster.Service
	perf     *perf.Service
	recovery *auth.PasswordRecovery

	tokenTTL   time.Duration
	rateBurst  int
	ratePerSec int
}

// Option configures API.
type Option func(*API)

// WithTokenTTL overrides the default lifetime of issued login tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) {
		if ttl > 0 {
			a.tokenTTL = ttl
		}
	}
}

// WithRateLimit overrides the per-client request rate limit.
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSec > 0 {
			a.ratePerSec = perSec
		}
	}
}

func New(rp ReadyProbe, version string, rosterSvc *roster.Service, perfSvc *perf.Service, recovery *auth.PasswordRecovery, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		roster:     rosterSvc,
		perf:       perfSvc,
		recovery:   recovery,
		tokenTTL:   auth.DefaultTokenTTL,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication and recovery
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/recover", a.handleRecover)
	a.mux.HandleFunc("/v1/auth/reset", a.handleReset)

	// roster
	a.mux.HandleFunc("/v1/societies", a.handleSocieties)
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)
	a.mux.HandleFunc("/v1/society-changes", a.handleSocietyChanges)
	a.mux.HandleFunc("/v1/society-changes/", a.handleSocietyChangeResource)

	// performance tests
	a.mux.HandleFunc("/v1/tests", a.handleTests)
	a.mux.HandleFunc("/v1/tests/subjects/", a.handleSubjectStats)

	// maintenance
	a.mux.HandleFunc("/v1/admin/categories/recompute", a.handleRecomputeCategories)
	a.mux.HandleFunc("/v1/admin/reset-tokens/sweep", a.handleSweepResetTokens)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rowhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rowhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
