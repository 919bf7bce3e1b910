package httpapi

import (
	"fmt"
	"net/http"

	"rowhub.org/internal/audit"
	"rowhub.org/internal/roster"
)

func (a *API) handleRecomputeCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	changed, err := a.roster.RecomputeCategories(r.Context(), identity)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "roster.categories.recompute", map[string]any{
		"changed": changed,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
	})
}

func (a *API) handleSweepResetTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if identity.Role != roster.RoleSuperAdmin {
		writeError(w, r, http.StatusForbidden, fmt.Sprintf("role %s may not sweep tokens", identity.Role))
		return
	}
	removed, err := a.recovery.Sweep(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.reset_tokens.sweep", map[string]any{
		"removed": removed,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
	})
}
