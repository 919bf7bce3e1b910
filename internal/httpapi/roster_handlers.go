package httpapi

import (
	"net/http"
	"strings"

	"rowhub.org/internal/audit"
	"rowhub.org/internal/roster"
)

func (a *API) handleSocieties(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSocieties(w, r)
	case http.MethodPost:
		a.createSociety(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listSocieties(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityOrFail(w, r); !ok {
		return
	}
	societies, err := a.roster.ListSocieties(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": societies})
}

func (a *API) createSociety(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	society, err := a.roster.CreateSociety(r.Context(), identity, req.Name)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "roster.society.create", map[string]any{
		"society_id": society.ID,
	})
	w.Header().Set("Location", "/v1/societies/"+society.ID)
	writeJSON(w, http.StatusCreated, society)
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	var status *roster.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := roster.ParseStatus(raw)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		status = &parsed
	}
	accounts, err := a.roster.ListAccounts(r.Context(), identity, status)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "pending" {
		a.listPendingAccounts(w, r, identity)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAccount(w, r, identity, id)
	case "approve":
		a.decideRegistration(w, r, identity, id, roster.StatusApproved)
	case "reject":
		a.decideRegistration(w, r, identity, id, roster.StatusRejected)
	case "designated-coach":
		a.setDesignatedCoach(w, r, identity, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listPendingAccounts(w http.ResponseWriter, r *http.Request, identity roster.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	pending := roster.StatusPending
	accounts, err := a.roster.ListAccounts(r.Context(), identity, &pending)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, identity roster.Identity, id string) {
	account, err := a.roster.GetAccount(r.Context(), identity, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *API) decideRegistration(w http.ResponseWriter, r *http.Request, identity roster.Identity, id string, decision roster.Status) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	account, err := a.roster.DecideRegistration(r.Context(), identity, id, decision)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "roster.registration.decide", map[string]any{
		"target_id": account.ID,
		"decision":  string(decision),
	})
	writeJSON(w, http.StatusOK, account)
}

func (a *API) setDesignatedCoach(w http.ResponseWriter, r *http.Request, identity roster.Identity, id string) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPut, http.MethodPost)
		return
	}
	var req struct {
		CoachID string `json:"coach_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.roster.SetDesignatedCoach(r.Context(), identity, id, strings.TrimSpace(req.CoachID))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "roster.designated_coach.set", map[string]any{
		"target_id": account.ID,
		"coach_id":  account.DesignatedCoachID,
	})
	writeJSON(w, http.StatusOK, account)
}

func (a *API) handleSocietyChanges(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		var status *roster.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := roster.ParseStatus(raw)
			if err != nil {
				handleDomainError(w, r, err)
				return
			}
			status = &parsed
		}
		requests, err := a.roster.ListSocietyChanges(r.Context(), identity, status)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": requests})
	case http.MethodPost:
		var req struct {
			NewSocietyID string `json:"new_society_id"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		request, err := a.roster.RequestSocietyChange(r.Context(), identity, req.NewSocietyID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "roster.society_change.request", map[string]any{
			"request_id":     request.ID,
			"new_society_id": request.NewSocietyID,
		})
		writeJSON(w, http.StatusCreated, request)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSocietyChangeResource(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/society-changes/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || action != "approve" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	request, err := a.roster.ApproveSocietyChange(r.Context(), identity, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "roster.society_change.approve", map[string]any{
		"request_id": request.ID,
		"athlete_id": request.AthleteID,
	})
	writeJSON(w, http.StatusOK, request)
}
