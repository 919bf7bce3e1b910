package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"rowhub.org/internal/auth"
	"rowhub.org/internal/mail"
	"rowhub.org/internal/perf"
	"rowhub.org/internal/roster"
)

const testBootstrapEmail = "ops@rowhub.test"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("ROWHUB_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	store := roster.NewMemory()
	rosterSvc := roster.NewService(store, roster.WithBootstrapEmail(testBootstrapEmail))
	perfSvc := perf.NewService(perf.NewMemory(), store, rosterSvc.Engine())
	recovery := auth.NewPasswordRecovery(
		NewAccountDirectory(store),
		auth.NewMemoryResetTokens(),
		mail.LogSender{},
		auth.NewRecoveryLimiter(),
	)

	api := New(ReadyProbe{}, "test", rosterSvc, perfSvc, recovery)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (c *apiClient) register(email, password, role string, societyIDs []string) *roster.Account {
	c.t.Helper()
	resp := c.post("/v1/auth/register", map[string]any{
		"email":       email,
		"password":    password,
		"name":        "Account " + email,
		"role":        role,
		"society_ids": societyIDs,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	account := decode[*roster.Account](c.t, resp)
	return account
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	payload := decode[tokenResponse](c.t, resp)
	if payload.Token == "" {
		c.t.Fatal("empty token issued")
	}
	return payload.Token
}

// bootstrapAdmin registers the operator account and returns its token.
func (c *apiClient) bootstrapAdmin() string {
	c.t.Helper()
	c.register(testBootstrapEmail, "admin-password", "super_admin", nil)
	return c.login(testBootstrapEmail, "admin-password")
}

func (c *apiClient) createSociety(token, name string) *roster.Society {
	c.t.Helper()
	resp := c.post("/v1/societies", map[string]any{"name": name}, authHeaders(token))
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("create society: status %d", resp.StatusCode)
	}
	return decode[*roster.Society](c.t, resp)
}

func (c *apiClient) approve(token, accountID string) {
	c.t.Helper()
	resp := c.post("/v1/accounts/"+accountID+"/approve", nil, authHeaders(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("approve %s: status %d", accountID, resp.StatusCode)
	}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func TestRegistrationApprovalFlow(t *testing.T) {
	c := newTestAPI(t)
	adminToken := c.bootstrapAdmin()
	society := c.createSociety(adminToken, "Canottieri Test")

	athlete := c.register("athlete@rowhub.test", "row-password", "athlete", []string{society.ID})
	if athlete.Status != roster.StatusPending {
		t.Fatalf("athlete status = %s, want pending", athlete.Status)
	}

	// Pending accounts cannot log in.
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "athlete@rowhub.test",
		"password": "row-password",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending login status = %d, want 403", resp.StatusCode)
	}

	// The admin sees it in the pending queue and approves.
	resp = c.get("/v1/accounts/pending", nil, authHeaders(adminToken))
	pending := decode[listResponse[*roster.Account]](t, resp)
	if len(pending.Items) != 1 || pending.Items[0].ID != athlete.ID {
		t.Fatalf("pending queue = %+v", pending.Items)
	}
	c.approve(adminToken, athlete.ID)

	token := c.login("athlete@rowhub.test", "row-password")
	resp = c.get("/v1/auth/me", nil, authHeaders(token))
	me := decode[*roster.Account](t, resp)
	if me.ID != athlete.ID || me.Status != roster.StatusApproved {
		t.Fatalf("me = %+v", me)
	}

	// Approving twice conflicts.
	resp = c.post("/v1/accounts/"+athlete.ID+"/approve", nil, authHeaders(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second approve status = %d, want 409", resp.StatusCode)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	c := newTestAPI(t)
	c.register("dup@rowhub.test", "row-password", "athlete", nil)

	resp := c.post("/v1/auth/register", map[string]any{
		"email":    "dup@rowhub.test",
		"password": "row-password",
		"name":     "Again",
		"role":     "athlete",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestTestRecordingAndStats(t *testing.T) {
	c := newTestAPI(t)
	adminToken := c.bootstrapAdmin()
	society := c.createSociety(adminToken, "Canottieri Test")

	athlete := c.register("athlete@rowhub.test", "row-password", "athlete", []string{society.ID})
	c.approve(adminToken, athlete.ID)
	token := c.login("athlete@rowhub.test", "row-password")

	resp := c.post("/v1/tests", map[string]any{
		"date":         "2026-02-20",
		"distance":     2000,
		"time_seconds": 420,
		"weight":       75,
	}, authHeaders(token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create test status = %d", resp.StatusCode)
	}
	test := decode[*perf.Test](t, resp)
	if test.Split500 != 105 {
		t.Fatalf("split_500 = %v, want 105", test.Split500)
	}
	if test.WattsPerKg == nil {
		t.Fatal("expected watts_per_kg")
	}

	resp = c.get("/v1/tests/subjects/"+athlete.ID+"/stats", nil, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	stats := decode[*perf.SubjectStats](t, resp)
	if stats.TestsCount != 1 {
		t.Fatalf("tests_count = %d, want 1", stats.TestsCount)
	}
	if _, ok := stats.Stats["2000m"]; !ok {
		t.Fatalf("missing 2000m bucket: %v", stats.Stats)
	}
}

func TestTestVisibilityAcrossSocieties(t *testing.T) {
	c := newTestAPI(t)
	adminToken := c.bootstrapAdmin()
	socA := c.createSociety(adminToken, "Society A")
	socB := c.createSociety(adminToken, "Society B")

	coach := c.register("coach@rowhub.test", "row-password", "coach", []string{socA.ID})
	c.approve(adminToken, coach.ID)
	coachToken := c.login("coach@rowhub.test", "row-password")

	outsider := c.register("outsider@rowhub.test", "row-password", "athlete", []string{socB.ID})
	c.approve(adminToken, outsider.ID)
	outsiderToken := c.login("outsider@rowhub.test", "row-password")

	resp := c.post("/v1/tests", map[string]any{
		"date":         "2026-02-20",
		"distance":     2000,
		"time_seconds": 430,
	}, authHeaders(outsiderToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create test status = %d", resp.StatusCode)
	}

	// Coach of society A sees no society-B tests.
	resp = c.get("/v1/tests", nil, authHeaders(coachToken))
	visible := decode[listResponse[*perf.Test]](t, resp)
	if len(visible.Items) != 0 {
		t.Fatalf("coach sees %d foreign tests, want 0", len(visible.Items))
	}

	// And cannot read the outsider's stats.
	resp = c.get("/v1/tests/subjects/"+outsider.ID+"/stats", nil, authHeaders(coachToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stats status = %d, want 403", resp.StatusCode)
	}
}

func TestSocietyChangeOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	adminToken := c.bootstrapAdmin()
	socA := c.createSociety(adminToken, "Society A")
	socB := c.createSociety(adminToken, "Society B")

	athlete := c.register("mover@rowhub.test", "row-password", "athlete", []string{socA.ID})
	c.approve(adminToken, athlete.ID)
	token := c.login("mover@rowhub.test", "row-password")

	resp := c.post("/v1/society-changes", map[string]any{
		"new_society_id": socB.ID,
	}, authHeaders(token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("request status = %d", resp.StatusCode)
	}
	request := decode[*roster.SocietyChangeRequest](t, resp)

	resp = c.post("/v1/society-changes/"+request.ID+"/approve", nil, authHeaders(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d", resp.StatusCode)
	}
	approved := decode[*roster.SocietyChangeRequest](t, resp)
	if approved.Status != roster.StatusApproved {
		t.Fatalf("status = %s", approved.Status)
	}

	resp = c.get("/v1/auth/me", nil, authHeaders(token))
	me := decode[*roster.Account](t, resp)
	if len(me.SocietyIDs) != 1 || me.SocietyIDs[0] != socB.ID {
		t.Fatalf("memberships = %v, want [%s]", me.SocietyIDs, socB.ID)
	}
}

func TestPasswordRecoveryRateLimitOverHTTP(t *testing.T) {
	c := newTestAPI(t)

	for i := 0; i < 3; i++ {
		resp := c.post("/v1/auth/recover", map[string]any{"email": "ghost@rowhub.test"}, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("recover attempt %d: status %d, want 202", i+1, resp.StatusCode)
		}
	}
	resp := c.post("/v1/auth/recover", map[string]any{"email": "ghost@rowhub.test"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestHealthEndpoints(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := c.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}
