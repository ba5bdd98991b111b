package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"quizdeck/internal/config"
	"quizdeck/internal/service"
)

func newTestAuth(t *testing.T) *service.AuthService {
	t.Helper()
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.HostUsername = "admin"
	cfg.Auth.HostPassword = "hunter2"
	return service.NewAuthService(cfg)
}

func playerRouter(auth *service.AuthService, got *string) http.Handler {
	mw := NewAuthMiddleware(auth)
	r := mux.NewRouter()
	sub := r.NewRoute().Subrouter()
	sub.Use(mw.RequirePlayer)
	sub.HandleFunc("/sessions/{pin}/answers", func(w http.ResponseWriter, r *http.Request) {
		*got = GetPlayerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")
	return r
}

func TestRequirePlayerScopesTokenToSession(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.GeneratePlayerToken("ABC234", "p1")
	if err != nil {
		t.Fatal(err)
	}

	var playerID string
	router := playerRouter(auth, &playerID)

	req := httptest.NewRequest(http.MethodPost, "/sessions/ABC234/answers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching pin: status %d", rec.Code)
	}
	if playerID != "p1" {
		t.Fatalf("player id not injected, got %q", playerID)
	}

	// The same token must not reach a handler for another session.
	req = httptest.NewRequest(http.MethodPost, "/sessions/ZZZ999/answers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign pin: status %d, want 403", rec.Code)
	}
}

func TestRequirePlayerRejectsMissingOrBadToken(t *testing.T) {
	auth := newTestAuth(t)
	var playerID string
	router := playerRouter(auth, &playerID)

	req := httptest.NewRequest(http.MethodPost, "/sessions/ABC234/answers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/ABC234/answers", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", rec.Code)
	}
}

func TestRequirePlayerAcceptsQueryToken(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.GeneratePlayerToken("ABC234", "p1")
	if err != nil {
		t.Fatal(err)
	}

	var playerID string
	router := playerRouter(auth, &playerID)

	req := httptest.NewRequest(http.MethodPost, "/sessions/ABC234/answers?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query token: status %d", rec.Code)
	}
}

func TestRequireHost(t *testing.T) {
	auth := newTestAuth(t)
	mw := NewAuthMiddleware(auth)

	var hostID string
	r := mux.NewRouter()
	sub := r.NewRoute().Subrouter()
	sub.Use(mw.RequireHost)
	sub.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		hostID = GetHostID(r.Context())
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	resp, err := auth.Login("admin", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || hostID != resp.HostID {
		t.Fatalf("status %d, host %q", rec.Code, hostID)
	}

	// A player token is not a host token.
	playerToken, _ := auth.GeneratePlayerToken("ABC234", "p1")
	req = httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("Authorization", "Bearer "+playerToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("player token on host route: status %d, want 401", rec.Code)
	}
}
