package session

import (
	"context"
	"errors"
	"testing"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type stubProfiles struct {
	users map[string]*users.User
	err   error
}

func (s stubProfiles) FindByID(_ context.Context, id string) (*users.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gateway.ErrNotFound
}

func newController(t *testing.T, profiles stubProfiles) *Controller {
	t.Helper()
	c, err := NewController(profiles, logger.Nop())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestResolveLandsByRole(t *testing.T) {
	c := newController(t, stubProfiles{users: map[string]*users.User{
		"l1": {ID: "l1", Role: enums.UserRoleLandlord},
		"t1": {ID: "t1", Role: enums.UserRoleTenant},
	}})

	if got := c.Resolve(context.Background(), "l1"); !got.Resolved || got.Landing != LandingLandlord || got.Role != enums.UserRoleLandlord {
		t.Fatalf("unexpected landlord session %+v", got)
	}
	if got := c.Resolve(context.Background(), "t1"); !got.Resolved || got.Landing != LandingTenant {
		t.Fatalf("unexpected tenant session %+v", got)
	}
}

func TestResolveDegradesOnReadFailure(t *testing.T) {
	c := newController(t, stubProfiles{err: errors.New("store offline")})
	got := c.Resolve(context.Background(), "t1")
	if got.Resolved || got.Landing != "" || !got.SignedIn {
		t.Fatalf("expected unresolved signed-in session without navigation, got %+v", got)
	}
}

func TestResolveMissingProfile(t *testing.T) {
	c := newController(t, stubProfiles{})
	if got := c.Resolve(context.Background(), "ghost"); got.Resolved || got.User != nil {
		t.Fatalf("expected unresolved session, got %+v", got)
	}
}

func TestResolveAnonymous(t *testing.T) {
	c := newController(t, stubProfiles{})
	got := c.Resolve(context.Background(), "")
	if got.SignedIn || got.Landing != LandingSignedOut {
		t.Fatalf("expected signed-out session, got %+v", got)
	}
}

func TestObserveFiresImmediatelyThenOnChanges(t *testing.T) {
	c := newController(t, stubProfiles{users: map[string]*users.User{
		"t1": {ID: "t1", Role: enums.UserRoleTenant},
	}})

	var seen []*Session
	cancel := c.Observe(func(s *Session) { seen = append(seen, s) })

	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("expected one initial nil notification, got %v", seen)
	}

	c.SignedIn(context.Background(), "t1")
	c.SignedOut(context.Background(), "t1")

	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	if seen[1] == nil || seen[1].UserID != "t1" {
		t.Fatalf("expected sign-in notification, got %+v", seen[1])
	}
	if seen[2] != nil {
		t.Fatalf("expected sign-out notification to be nil")
	}

	cancel()
	cancel()
	c.SignedIn(context.Background(), "t1")
	if len(seen) != 3 {
		t.Fatalf("observer still notified after cancel")
	}

	var late *Session
	c.Observe(func(s *Session) { late = s })
	if late == nil || late.UserID != "t1" {
		t.Fatalf("late observer should receive the latest session, got %+v", late)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), &Session{UserID: "u1"})
	got, ok := FromContext(ctx)
	if !ok || got.UserID != "u1" {
		t.Fatalf("expected session from context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no session on bare context")
	}
}
