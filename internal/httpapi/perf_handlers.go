package httpapi

import (
	"net/http"
	"strings"

	"rowhub.org/internal/audit"
	"rowhub.org/internal/perf"
)

func (a *API) handleTests(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		tests, err := a.perf.List(r.Context(), identity, r.URL.Query().Get("subject_id"))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": tests})
	case http.MethodPost:
		var input perf.TestInput
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		test, err := a.perf.Create(r.Context(), identity, input)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "perf.test.create", map[string]any{
			"test_id":    test.ID,
			"subject_id": test.SubjectID,
		})
		writeJSON(w, http.StatusCreated, test)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSubjectStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/tests/subjects/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" || rest != "stats" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	stats, err := a.perf.Stats(r.Context(), identity, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
