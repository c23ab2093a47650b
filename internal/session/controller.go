// Package session resolves who is signed in and which dashboard they land on.
// Session state is passed explicitly through context; nothing is global.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const (
	LandingLandlord  = "/dashboard/landlord"
	LandingTenant    = "/dashboard/tenant"
	LandingSignedOut = "/login"
)

// Session is the resolved view of the current user.
type Session struct {
	UserID   string         `json:"userId,omitempty"`
	User     *users.User    `json:"user,omitempty"`
	Role     enums.UserRole `json:"role,omitempty"`
	Landing  string         `json:"landing,omitempty"`
	SignedIn bool           `json:"signedIn"`
	// Resolved is false when the profile could not be read; callers keep the
	// user where they are instead of navigating.
	Resolved bool `json:"resolved"`
}

// Observer receives the session after every sign-in (non-nil) and sign-out (nil).
type Observer func(*Session)

type profileReader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type Controller struct {
	profiles profileReader
	logg     *logger.Logger

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
	current   *Session
}

func NewController(profiles profileReader, logg *logger.Logger) (*Controller, error) {
	if profiles == nil {
		return nil, errors.New("profile reader required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Controller{profiles: profiles, logg: logg, observers: map[int]Observer{}}, nil
}

// LandingFor maps a role to its dashboard.
func LandingFor(role enums.UserRole) string {
	switch role {
	case enums.UserRoleLandlord:
		return LandingLandlord
	case enums.UserRoleTenant:
		return LandingTenant
	default:
		return ""
	}
}

// Resolve reads the profile for userID. A failed or missing read is logged
// and yields an unresolved session rather than an error.
func (c *Controller) Resolve(ctx context.Context, userID string) *Session {
	if userID == "" {
		return &Session{Landing: LandingSignedOut}
	}
	sess := &Session{UserID: userID, SignedIn: true}
	user, err := c.profiles.FindByID(ctx, userID)
	if err != nil {
		ctx = c.logg.WithUserID(ctx, userID)
		if errors.Is(err, gateway.ErrNotFound) {
			c.logg.Warn(ctx, "session.profile_missing")
		} else {
			c.logg.Error(ctx, "session.profile_read_failed", err)
		}
		return sess
	}
	if !user.Role.IsValid() {
		c.logg.Warn(c.logg.WithUserID(ctx, userID), "session.profile_role_invalid")
		return sess
	}
	sess.User = user
	sess.Role = user.Role
	sess.Landing = LandingFor(user.Role)
	sess.Resolved = true
	return sess
}

// Observe registers fn. It is called once right away with the latest known
// session, then on every sign-in and sign-out. The returned func unregisters.
func (c *Controller) Observe(fn Observer) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// SignedIn resolves the user and notifies observers.
func (c *Controller) SignedIn(ctx context.Context, userID string) *Session {
	sess := c.Resolve(ctx, userID)
	c.publish(sess)
	return sess
}

// SignedOut notifies observers that nobody is signed in.
func (c *Controller) SignedOut(ctx context.Context, userID string) {
	c.logg.Debug(c.logg.WithUserID(ctx, userID), "session.signed_out")
	c.publish(nil)
}

func (c *Controller) publish(sess *Session) {
	c.mu.Lock()
	c.current = sess
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(sess)
	}
}

type ctxKey struct{}

// WithContext attaches the resolved session.
func WithContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session attached by WithContext, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok && sess != nil
}
