package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/api/middleware"
	"github.com/angelmondragon/repairdesk-backend/internal/auth"
	"github.com/angelmondragon/repairdesk-backend/internal/users"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

var testCfg = &config.Config{
	App: config.AppConfig{Env: config.AppEnvDev},
	JWT: config.JWTConfig{Secret: "secret", Issuer: "repairdesk", ExpirationMinutes: 30, CookieName: "access_token"},
}

func TestAuthLoginSetsCookie(t *testing.T) {
	stub := &stubAuthService{token: "signed-token"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"tech@shop.example","password":"secret123"}`))
	rec := httptest.NewRecorder()

	AuthLogin(stub, testCfg, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "access_token" || cookies[0].Value != "signed-token" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	if !strings.Contains(rec.Body.String(), `"accessToken":"signed-token"`) {
		t.Fatalf("expected token in body, got %s", rec.Body.String())
	}
}

func TestAuthLoginRejectsInvalidEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nope","password":"secret123"}`))
	rec := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, testCfg, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthRegisterConflict(t *testing.T) {
	stub := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"firstName":"Ana","lastName":"Lopez","email":"ana@shop.example","password":"phones4ever"}`))
	rec := httptest.NewRecorder()

	AuthRegister(stub, testCfg, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthLogoutRevokesAndClearsCookie(t *testing.T) {
	stub := &stubAuthService{}
	ctx := middleware.WithAccessID(context.Background(), "jti-9")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	AuthLogout(stub, testCfg, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if stub.loggedOut != "jti-9" {
		t.Fatalf("expected jti-9 revoked, got %q", stub.loggedOut)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}

func TestAuthMe(t *testing.T) {
	userID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), userID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	AuthMe(&stubAuthService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), userID.String()) {
		t.Fatalf("expected user id in body, got %s", rec.Body.String())
	}
}

type stubAuthService struct {
	token     string
	err       error
	loggedOut string
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{AccessToken: s.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{AccessToken: s.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = accessID
	return s.err
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: userID, Email: "tech@shop.example"}, nil
}
