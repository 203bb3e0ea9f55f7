package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner("test-secret")

	token, err := signer.Sign("user-1", []string{"client", "vendedor"}, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.CurrentRole != "client" {
		t.Errorf("expected current_role client, got %s", claims.CurrentRole)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("expected 2 roles, got %d", len(claims.Roles))
	}
}

func TestTokenSigner_RejectsWrongSecret(t *testing.T) {
	signer := NewTokenSigner("secret-a")
	other := NewTokenSigner("secret-b")

	token, err := signer.Sign("user-1", []string{"client"}, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected error for token signed with different secret")
	}
}

func TestTokenSigner_RejectsExpired(t *testing.T) {
	signer := NewTokenSigner("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Roles:       []string{"client"},
		CurrentRole: "client",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := signer.Parse(signed); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestMiddleware_BearerHeader(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	token, _ := signer.Sign("user-1", []string{"professional"}, "professional")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "user-1" {
			t.Errorf("expected user-1, got %s", got)
		}
		if got := CurrentRoleFromContext(ctx); got != "professional" {
			t.Errorf("expected professional, got %s", got)
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := Middleware(signer)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_Cookie(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	token, _ := signer.Sign("user-2", []string{"client"}, "client")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if got := UserIDFromContext(c.Request().Context()); got != "user-2" {
			t.Errorf("expected user-2, got %s", got)
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := Middleware(signer)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	signer := NewTokenSigner("test-secret")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Fatal("handler should not be reached")
		return nil
	}

	err := Middleware(signer)(handler)(c)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if apperr.KindOf(err) != apperr.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", apperr.KindOf(err))
	}
}

func TestRequireRole_SelectedRoleOnly(t *testing.T) {
	// The user holds the professional role but logged in as client; the
	// selected role is what counts.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, []string{"client", "professional"})
	ctx = context.WithValue(ctx, CurrentRoleKey, "client")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := RequireRole(RoleProfessional)(handler)(c)
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), CurrentRoleKey, "admin")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	}

	if err := RequireRole(RoleProfessional)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called for admin")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleProfessional, RoleClient, RoleVendedor} {
		if !ValidRole(role) {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if ValidRole("superuser") {
		t.Error("expected superuser to be invalid")
	}
}
