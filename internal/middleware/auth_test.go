package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/token"
)

func TestAuthResolvesOwner(t *testing.T) {
	tokens := token.NewService("test-secret", time.Hour)
	owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: uuid.New()}

	signed, err := tokens.Generate(owner)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var got ledger.Owner
	handler := middleware.Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetOwner(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != owner {
		t.Fatalf("expected owner %v, got %v", owner, got)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	tokens := token.NewService("test-secret", time.Hour)
	handler := middleware.Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without valid identity")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	signed, err := token.NewService("other-secret", time.Hour).
		Generate(ledger.Owner{Type: ledger.OwnerAdmin, ID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	handler := middleware.Auth(token.NewService("test-secret", time.Hour))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not run with a foreign signature")
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireOwnerType(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	tokens := token.NewService("test-secret", time.Hour)
	merchantToken, err := tokens.Generate(ledger.Owner{Type: ledger.OwnerMerchant, ID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	call := func(mw func(http.Handler) http.Handler) int {
		handler := middleware.Auth(tokens)(mw(http.HandlerFunc(ok)))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+merchantToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(middleware.RequireMerchant()); code != http.StatusOK {
		t.Fatalf("merchant should pass merchant gate, got %d", code)
	}
	if code := call(middleware.RequirePlatform()); code != http.StatusForbidden {
		t.Fatalf("merchant must not pass platform gate, got %d", code)
	}
	if code := call(middleware.RequireOwnerType(ledger.OwnerMerchant, ledger.OwnerAdmin)); code != http.StatusOK {
		t.Fatalf("merchant should pass merchant-or-admin gate, got %d", code)
	}
}

func TestExpiredToken(t *testing.T) {
	tokens := token.NewService("test-secret", -time.Minute)
	signed, err := tokens.Generate(ledger.Owner{Type: ledger.OwnerMerchant, ID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := tokens.Validate(signed); err != token.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}
