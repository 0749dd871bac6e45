package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	pkgAuth "github.com/angelmondragon/repairdesk-backend/pkg/auth"
	"github.com/angelmondragon/repairdesk-backend/pkg/auth/session"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

// Auth admits requests carrying a valid access token, taken from the
// Authorization header or else the configured cookie. With a session checker
// the token's jti must also still be live, so logged-out tokens are refused.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := authenticate(r.Context(), bearerToken(r, cfg.CookieName), cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithCaller(r.Context(), caller)
			if logg != nil {
				ctx = logg.WithUserID(ctx, caller.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, token string, cfg config.JWTConfig, sessions session.AccessSessionChecker) (Caller, error) {
	if token == "" {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Caller{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	caller := Caller{UserID: claims.UserID.String(), AccessID: claims.ID}
	if sessions == nil {
		return caller, nil
	}

	if caller.AccessID == "" {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	live, err := sessions.HasSession(ctx, caller.AccessID)
	switch {
	case err != nil:
		return Caller{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return caller, nil
}

// bearerToken accepts "Bearer <token>" or a bare token in Authorization.
func bearerToken(r *http.Request, cookieName string) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return header
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
