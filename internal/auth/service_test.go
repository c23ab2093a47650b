package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/gateway/memstore"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	pkgAuth "github.com/agrolease/agrolease-backend/pkg/auth"
	authsession "github.com/agrolease/agrolease-backend/pkg/auth/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "agrolease", ExpirationMinutes: 15}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
	counter  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	token := fmt.Sprintf("refresh-%d", f.counter)
	f.sessions[accessID] = userID + "|" + token
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, userID, provided string) (string, string, error) {
	f.mu.Lock()
	stored, ok := f.sessions[oldAccessID]
	if !ok || stored != userID+"|"+provided {
		f.mu.Unlock()
		return "", "", authsession.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	f.mu.Unlock()
	newID := authsession.NewAccessID()
	token, err := f.Generate(ctx, newID, userID)
	return newID, token, err
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, accessID)
	return nil
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type countingDocs struct {
	gateway.Documents
	calls int
}

func (c *countingDocs) Create(ctx context.Context, collection string, doc gateway.Document) (string, error) {
	c.calls++
	return c.Documents.Create(ctx, collection, doc)
}

func (c *countingDocs) Query(ctx context.Context, collection string, q gateway.Query) ([]gateway.Document, error) {
	c.calls++
	return c.Documents.Query(ctx, collection, q)
}

type harness struct {
	svc        *Service
	docs       *countingDocs
	sessions   *fakeSessions
	events     *recordingEmitter
	controller *session.Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	docs := &countingDocs{Documents: memstore.New()}
	logg := logger.Nop()
	profiles := users.NewRepository(docs)
	controller, err := session.NewController(profiles, logg)
	require.NoError(t, err)

	h := &harness{docs: docs, sessions: newFakeSessions(), events: &recordingEmitter{}, controller: controller}
	h.svc, err = NewService(ServiceParams{
		Credentials: NewCredentialRepository(docs),
		Profiles:    profiles,
		Sessions:    h.sessions,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		}),
		Publisher: controller,
		Events:    h.events,
		JWTConfig: testJWT,
		Logger:    logg,
	})
	require.NoError(t, err)
	return h
}

func intPtr(v int) *int { return &v }

func TestRegisterTenantSignsInWithDefaults(t *testing.T) {
	h := newHarness(t)

	var observed []*session.Session
	h.controller.Observe(func(s *session.Session) { observed = append(observed, s) })

	resp, err := h.svc.Register(context.Background(), RegisterRequest{
		Name:              "Ada Tenant",
		Email:             " Ada@Example.com ",
		Password:          "secret1",
		Role:              enums.UserRoleTenant,
		Experience:        intPtr(4),
		PreferredSoilType: "Loam",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	assert.True(t, resp.Session.Resolved)
	assert.Equal(t, session.LandingTenant, resp.Session.Landing)
	assert.Equal(t, "4 years", resp.Session.User.Experience)
	assert.Equal(t, users.DefaultRating, resp.Session.User.Rating)
	assert.Equal(t, "ada@example.com", resp.Session.User.Email)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.UserID, claims.UserID)
	assert.Equal(t, enums.UserRoleTenant, claims.Role)
	assert.NotEmpty(t, resp.RefreshToken)

	require.Len(t, observed, 2)
	assert.Nil(t, observed[0])
	assert.Equal(t, resp.Session.UserID, observed[1].UserID)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, enums.EventUserRegistered, h.events.events[0].EventType)
}

func TestRegisterValidationTouchesNoGateway(t *testing.T) {
	h := newHarness(t)
	cases := []RegisterRequest{
		{Name: "A", Email: "not-an-email", Password: "secret1", Role: enums.UserRoleTenant},
		{Name: "A", Email: "a@b.co", Password: "", Role: enums.UserRoleTenant},
		{Name: "A", Email: "a@b.co", Password: "123", Role: enums.UserRoleTenant},
		{Name: "A", Email: "a@b.co", Password: "secret1", Role: "admin"},
		{Name: "", Email: "a@b.co", Password: "secret1", Role: enums.UserRoleLandlord},
	}
	for i, req := range cases {
		_, err := h.svc.Register(context.Background(), req)
		require.Error(t, err, "case %d", i)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}
	assert.Zero(t, h.docs.calls)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	req := RegisterRequest{Name: "Lan", Email: "lan@example.com", Password: "secret1", Role: enums.UserRoleLandlord}
	_, err := h.svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Email = "LAN@example.com"
	_, err = h.svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginAndRefreshAndLogout(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Register(context.Background(), RegisterRequest{
		Name: "Lan", Email: "lan@example.com", Password: "secret1", Role: enums.UserRoleLandlord,
	})
	require.NoError(t, err)

	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "lan@example.com", Password: "wrong-pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: "LAN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, session.LandingLandlord, resp.Session.Landing)

	h.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	pair, err := h.svc.Refresh(context.Background(), RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	_, err = h.svc.Refresh(context.Background(), RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must not rotate twice")

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWT, pair.AccessToken)
	require.NoError(t, err)

	var last *session.Session
	cancel := h.controller.Observe(func(s *session.Session) { last = s })
	defer cancel()
	require.NotNil(t, last)

	require.NoError(t, h.svc.Logout(context.Background(), claims.ID, claims.UserID))
	assert.Nil(t, last)
	assert.NotContains(t, h.sessions.sessions, claims.ID)
}

type failingProfiles struct {
	profileStore
}

func (failingProfiles) Create(context.Context, users.CreateUserDTO) (*users.User, error) {
	return nil, errors.New("profile store offline")
}

func TestRegisterProfileFailureIsDependencyError(t *testing.T) {
	h := newHarness(t)
	h.svc.profiles = failingProfiles{}

	_, err := h.svc.Register(context.Background(), RegisterRequest{
		Name: "T", Email: "t@example.com", Password: "secret1", Role: enums.UserRoleTenant,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, h.events.events)
}
