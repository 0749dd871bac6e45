package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/repairdesk-backend/internal/users"
	pkgAuth "github.com/angelmondragon/repairdesk-backend/pkg/auth"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "repairdesk",
	ExpirationMinutes: 30,
}

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestServiceLoginIssuesTokenAndSession(t *testing.T) {
	password := "fix-it-2026"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "owner@shop.example",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Sam",
		LastName:     "Reyes",
	}
	repo := newStubUserRepo(user)
	sessions := &stubSessionManager{started: map[string]uuid.UUID{}}
	svc := buildTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " OWNER@shop.example", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if got, ok := sessions.started[claims.ID]; !ok || got != user.ID {
		t.Fatalf("expected session for jti %s", claims.ID)
	}
	if repo.lastLogin.IsZero() {
		t.Fatal("expected last login to be recorded")
	}
	if repo.rehash != "" {
		t.Fatal("did not expect a rehash for a current hash")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
}

func TestServiceLoginUpgradesWeakHash(t *testing.T) {
	password := "bench-repair-7"
	weak := testPasswordCfg
	weak.ArgonMemoryKB = 1024
	weakHash, err := security.HashPassword(password, weak)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{ID: uuid.New(), Email: "tech@shop.example", PasswordHash: weakHash, FirstName: "Ari", LastName: "Lee"}
	repo := newStubUserRepo(user)
	svc := buildTestService(t, repo, nil)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.rehash == "" || repo.rehash == weakHash {
		t.Fatal("expected the weak hash to be replaced")
	}
	if ok, err := security.VerifyPassword(password, repo.rehash); err != nil || !ok {
		t.Fatalf("expected upgraded hash to verify, got %v, %v", ok, err)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "owner@shop.example",
		PasswordHash: mustHashPassword(t, "right-pass-1"),
	}
	svc := buildTestService(t, newStubUserRepo(user), nil)

	for _, req := range []LoginRequest{
		{Email: user.Email, Password: "wrong-pass-1"},
		{Email: "ghost@shop.example", Password: "right-pass-1"},
		{Email: "", Password: "right-pass-1"},
	} {
		_, err := svc.Login(context.Background(), req)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}
}

func TestServiceRegister(t *testing.T) {
	repo := newStubUserRepo()
	svc := buildTestService(t, repo, nil)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		FirstName: " Ana ",
		LastName:  "Lopez",
		Email:     "Ana@Shop.Example",
		Password:  "phones4ever",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	stored, ok := repo.byEmail["ana@shop.example"]
	if !ok {
		t.Fatal("expected user stored under normalized email")
	}
	if stored.FirstName != "Ana" {
		t.Fatalf("expected trimmed first name, got %q", stored.FirstName)
	}
	if ok, _ := security.VerifyPassword("phones4ever", stored.PasswordHash); !ok {
		t.Fatal("expected stored hash to verify")
	}

	_, err = svc.Register(ctx, RegisterRequest{FirstName: "Ana", LastName: "Lopez", Email: "ana@shop.example", Password: "phones4ever"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	_, err = svc.Register(ctx, RegisterRequest{FirstName: "Bo", LastName: "Li", Email: "bo@shop.example", Password: "short"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for weak password, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessionManager{started: map[string]uuid.UUID{}}
	svc := buildTestService(t, newStubUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-1" {
		t.Fatalf("expected jti-1 revoked, got %v", sessions.revoked)
	}

	stateless := buildTestService(t, newStubUserRepo(), nil)
	if err := stateless.Logout(context.Background(), "jti-2"); err != nil {
		t.Fatalf("logout without sessions should be a no-op: %v", err)
	}
}

func TestServiceMe(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "me@shop.example", FirstName: "Me"}
	svc := buildTestService(t, newStubUserRepo(user), nil)

	dto, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.ID != user.ID {
		t.Fatalf("unexpected user %s", dto.ID)
	}

	_, err = svc.Me(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for missing user, got %v", err)
	}
}

func buildTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	params := ServiceParams{
		UserRepo:       repo,
		JWTConfig:      testJWT,
		PasswordConfig: testPasswordCfg,
	}
	if sessions != nil {
		params.SessionManager = sessions
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	lastLogin time.Time
	rehash    string
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byEmail: map[string]*models.User{}}
	for _, u := range seed {
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if _, exists := s.byEmail[user.Email]; exists {
		return nil, errors.New("UNIQUE constraint failed: users.email")
	}
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[users.NormalizeEmail(email)]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	s.lastLogin = at
	s.rehash = rehash
	return nil
}

type stubSessionManager struct {
	started map[string]uuid.UUID
	revoked []string
}

func (s *stubSessionManager) Start(ctx context.Context, accessID string, userID uuid.UUID) error {
	s.started[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}
