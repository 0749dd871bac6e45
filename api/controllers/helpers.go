package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// currentUserID returns the authenticated user placed in the context by the
// auth middleware.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
