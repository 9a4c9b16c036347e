package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHandler() *Handler {
	svc := NewService(NewInMemoryUserRepository(), nil, NewTokenIssuer("secret", 0), nil)
	svc.cost = bcrypt.MinCost
	return NewHandler(svc, nil)
}

func TestHandlerLogin(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"asha@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AccessToken == "" || body.TokenType != "bearer" {
		t.Fatalf("unexpected body %#v", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"asha@example.com","password":"nope"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlerLoginBadRequests(t *testing.T) {
	h := newTestHandler()
	for _, body := range []string{`{`, `{"email":"","password":"x"}`, `{"email":"a@b.c","password":"x","role":"nurse"}`} {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestHandlerMe(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(WithPrincipal(context.Background(), Principal{Email: "a@example.com", Role: RolePatient, Name: "a"}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"email":"a@example.com"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestPrincipalFromContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatalf("expected no principal")
	}
	if _, ok := PrincipalFromContext(WithPrincipal(context.Background(), Principal{})); ok {
		t.Fatalf("expected empty principal to be rejected")
	}
	p, ok := PrincipalFromContext(WithPrincipal(context.Background(), Principal{Email: "a@example.com", Role: RoleDoctor}))
	if !ok || !p.IsDoctor() {
		t.Fatalf("unexpected principal %#v", p)
	}
}
