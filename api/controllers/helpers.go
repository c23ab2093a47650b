package controllers

import (
	"net/http"

	"github.com/agrolease/agrolease-backend/api/middleware"
	"github.com/agrolease/agrolease-backend/internal/session"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
)

// actorFrom returns the session attached by ResolveSession. Routes behind Auth
// always have one; a missing session means the route was wired without it.
func actorFrom(r *http.Request) (*session.Session, error) {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess, nil
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	role := middleware.RoleFromContext(r.Context())
	return &session.Session{UserID: userID, Role: role, SignedIn: true, Landing: session.LandingFor(role)}, nil
}

func requireUserID(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return userID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
