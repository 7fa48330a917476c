package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"testing"

	"gigledger/internal/config"
	"gigledger/internal/db"
	"gigledger/internal/engine"
	"gigledger/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, srvCfg *Config) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default("gigledger")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	built := Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			AllowLegacyPrincipalHeader: true,
			Logger:                     log.New(io.Discard, "", 0),
		},
	}
	if srvCfg != nil {
		built = *srvCfg
		built.Engine = e
	}
	handler, err := New(built)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asPrincipal(p string) map[string]string {
	return map[string]string{"X-Principal-Id": p}
}

func TestGigLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/accounts/deposit", map[string]any{
		"amount": 2000,
	}, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deposit: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs", map[string]any{
		"title":   "Logo design",
		"payment": 1000,
	}, asPrincipal("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create gig: %d %s", res.StatusCode, string(data))
	}
	var created GigResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal gig: %v", err)
	}
	if created.ID != 1 || created.Status != "open" {
		t.Fatalf("unexpected gig %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs/1/accept", nil, asPrincipal("bob"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs/1/complete", nil, asPrincipal("bob"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs/1/release", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("release: %d %s", res.StatusCode, string(data))
	}
	var paid GigResponse
	_ = json.Unmarshal(data, &paid)
	if paid.Status != "paid" {
		t.Fatalf("expected paid, got %s", paid.Status)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/bob/balance", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("balance: %d %s", res.StatusCode, string(data))
	}
	var acc AccountResponse
	_ = json.Unmarshal(data, &acc)
	if acc.Balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", acc.Balance)
	}
}

func TestErrorEnvelopeCodes(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	type envelope struct {
		Error apiErrorBody `json:"error"`
	}

	// missing gig
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/gigs/999", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %s", env.Error.Code)
	}

	// creating without funds
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs", map[string]any{
		"title":   "Unfunded",
		"payment": 500,
	}, asPrincipal("alice"))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(data))
	}
	env = envelope{}
	_ = json.Unmarshal(data, &env)
	if env.Error.Code != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds, got %s", env.Error.Code)
	}

	// rating out of range
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/users/bob/ratings", map[string]any{
		"score": 9,
	}, asPrincipal("alice"))
	if res.StatusCode != http.StatusBadRequest && res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected rating rejection, got %d %s", res.StatusCode, string(data))
	}

	// unauthenticated requests are refused
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs", map[string]any{
		"title":   "No auth",
		"payment": 100,
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
}

func TestWrongCallerGetsForbidden(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/accounts/deposit", map[string]any{"amount": 1000}, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deposit: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs", map[string]any{"title": "Gig", "payment": 1000}, asPrincipal("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs/1/accept", nil, asPrincipal("bob"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d", res.StatusCode)
	}
	// only the assigned worker can complete
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs/1/complete", nil, asPrincipal("carol"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", res.StatusCode, string(data))
	}
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &env)
	if env.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", env.Error.Code)
	}
}

func TestProfileAndRatingEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/me/portfolio", map[string]any{
		"skills": []string{"go", "sql"},
		"bio":    "backend dev",
	}, asPrincipal("bob"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("portfolio: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/bob/profile", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get profile: %d %s", res.StatusCode, string(data))
	}
	var profile ProfileResponse
	_ = json.Unmarshal(data, &profile)
	if len(profile.Skills) != 2 || profile.Bio != "backend dev" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/users/bob/ratings", map[string]any{"score": 4}, asPrincipal("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("rate: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/bob/rating", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get rating: %d %s", res.StatusCode, string(data))
	}
	var rating RatingResponse
	_ = json.Unmarshal(data, &rating)
	if rating.Count != 1 || rating.Average != 4 {
		t.Fatalf("unexpected rating %+v", rating)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	srv, cleanup := newTestServer(t, &Config{
		BasePath: "/v0",
		Auth: AuthConfig{
			AllowLegacyPrincipalHeader: true,
			Logger:                     log.New(io.Discard, "", 0),
		},
		RateLimit: RateLimitConfig{RPS: 1, Burst: 2},
	})
	defer cleanup()
	client := srv.Client()

	limited := false
	for i := 0; i < 5; i++ {
		res, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/accounts/deposit", map[string]any{"amount": 1}, asPrincipal("alice"))
		if res.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("expected a 429 after burst exhausted")
	}
	// reads stay unthrottled
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/users/alice/balance", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("read should pass: %d %s", res.StatusCode, string(data))
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/accounts/deposit", map[string]any{"amount": 1000}, asPrincipal("alice"))
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/gigs", map[string]any{"title": "Gig", "payment": 1000}, asPrincipal("alice"))

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?type=gig.created", nil, asPrincipal("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var events []EventResponse
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "gig.created" {
		t.Fatalf("unexpected events %+v", events)
	}
}
