package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

type mockImageHost struct {
	url string
}

func (m *mockImageHost) Upload(_ context.Context, _ string) (string, error) {
	return m.url, nil
}

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc := NewService(newMockUserRepo(), nil)
	signer := auth.NewTokenSigner("test-secret")
	h := NewHandler(svc, signer, &mockImageHost{url: "https://img.example/p.jpg"}, false)
	return h, svc, echo.New()
}

func TestHandler_Register(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"cpf":"123.456.789-01","password":"secret1","name":"Maria"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var u User
	json.Unmarshal(rec.Body.Bytes(), &u)
	if u.CPF != "12345678901" {
		t.Errorf("expected normalized cpf, got %s", u.CPF)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash leaked in response")
	}
}

func TestHandler_LoginReturnsNoToken(t *testing.T) {
	h, svc, e := newTestHandler()
	if _, err := svc.Register(context.Background(), RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"cpf":"12345678901","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Error("login must not mint a token")
	}
}

func TestHandler_SelectRole(t *testing.T) {
	h, svc, e := newTestHandler()
	if _, err := svc.Register(context.Background(), RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"cpf":"12345678901","password":"secret1","role":"client"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/select-role", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SelectRole(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp sessionResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}
	if resp.CurrentRole != "client" {
		t.Errorf("expected current_role client, got %s", resp.CurrentRole)
	}

	cookieSet := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.TokenCookieName && cookie.HttpOnly {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("expected HTTP-only token cookie")
	}
}

func TestHandler_SelectRole_NotAssigned(t *testing.T) {
	h, svc, e := newTestHandler()
	if _, err := svc.Register(context.Background(), RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"cpf":"12345678901","password":"secret1","role":"professional"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/select-role", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SelectRole(c); err == nil {
		t.Fatal("expected error for role outside the set")
	}
}

func TestHandler_GetOtherUserForbidden(t *testing.T) {
	h, svc, e := newTestHandler()
	ctx := context.Background()
	u1, _ := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	u2, _ := svc.Register(ctx, RegisterInput{CPF: "98765432100", Password: "secret1", Name: "Ana"})

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+u2.ID.String(), nil)
	reqCtx := context.WithValue(req.Context(), auth.UserIDKey, u1.ID.String())
	reqCtx = context.WithValue(reqCtx, auth.CurrentRoleKey, "client")
	req = req.WithContext(reqCtx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u2.ID.String())

	if err := h.Get(c); err == nil {
		t.Fatal("expected Forbidden for reading another user")
	}
}

func TestHandler_UploadPhoto(t *testing.T) {
	h, svc, e := newTestHandler()
	ctx := context.Background()
	u, _ := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})

	body := `{"image_base64":"aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+u.ID.String()+"/photo", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	reqCtx := context.WithValue(req.Context(), auth.UserIDKey, u.ID.String())
	reqCtx = context.WithValue(reqCtx, auth.CurrentRoleKey, "client")
	req = req.WithContext(reqCtx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())

	if err := h.UploadPhoto(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := svc.Get(ctx, u.ID)
	if stored.PhotoURL == nil || *stored.PhotoURL != "https://img.example/p.jpg" {
		t.Error("expected photo url to be stored")
	}
}

// newRoutedServer wires the handler onto public and authenticated groups the
// way the server does, so route-level middleware is exercised end to end.
func newRoutedServer(t *testing.T) (*Service, *auth.TokenSigner, *echo.Echo) {
	t.Helper()
	svc := NewService(newMockUserRepo(), nil)
	signer := auth.NewTokenSigner("test-secret")
	h := NewHandler(svc, signer, &mockImageHost{url: "https://img.example/p.jpg"}, false)

	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	public := e.Group("/api")
	api := e.Group("/api", auth.Middleware(signer))
	h.RegisterRoutes(public, api)
	return svc, signer, e
}

func TestHandler_ClientLookupRequiresSession(t *testing.T) {
	svc, signer, e := newRoutedServer(t)
	if _, err := svc.Register(context.Background(), RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/clients/lookup?cpf=12345678901", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("lookup without session: expected 401, got %d (%s)", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "12345678901") {
		t.Error("lookup without session must not leak the record")
	}

	clientToken, err := signer.Sign(uuid.NewString(), []string{"client"}, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/clients/lookup?cpf=12345678901", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("lookup with client session: expected 403, got %d", rec.Code)
	}

	profToken, err := signer.Sign(uuid.NewString(), []string{"professional"}, "professional")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/clients/lookup?cpf=12345678901", nil)
	req.Header.Set("Authorization", "Bearer "+profToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup with professional session: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Maria") {
		t.Error("expected the client record in the response")
	}
}
