package leases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/gateway/memstore"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) types() []enums.OutboxEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// countingStore counts reads so tests can assert a call never touched storage.
type countingStore struct {
	*Repository
	mu    sync.Mutex
	reads int
}

func (c *countingStore) FindRequest(ctx context.Context, id string) (*Request, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Repository.FindRequest(ctx, id)
}

type harness struct {
	svc      *Service
	store    *countingStore
	mem      *memstore.Store
	events   *recordingEmitter
	landID   string
	clockMu  sync.Mutex
	clock    time.Time
	landlord *session.Session
	tenant   *session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	mem := memstore.New()
	profiles := users.NewRepository(mem)
	years := 4

	landlord, err := profiles.Create(ctx, users.CreateUserDTO{ID: "landlord-1", Name: "Maria Lopez", Email: "maria@example.com", Role: enums.UserRoleLandlord})
	require.NoError(t, err)
	tenant, err := profiles.Create(ctx, users.CreateUserDTO{ID: "tenant-1", Name: "Sam Reed", Email: "sam@example.com", Role: enums.UserRoleTenant, ExperienceYears: &years})
	require.NoError(t, err)
	_, err = profiles.Create(ctx, users.CreateUserDTO{ID: "tenant-2", Email: "quiet@example.com", Role: enums.UserRoleTenant})
	require.NoError(t, err)

	lands := listings.NewRepository(mem)
	landID, err := lands.Create(ctx, &listings.Listing{
		OwnerID:   landlord.ID,
		Title:     "North Field",
		Location:  "Fresno, CA",
		Size:      5,
		Price:     decimal.NewFromInt(20000),
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	store := &countingStore{Repository: NewRepository(mem)}
	events := &recordingEmitter{}
	svc, err := NewService(ServiceParams{
		Store:    store,
		Listings: lands,
		Profiles: profiles,
		Events:   events,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)

	h := &harness{
		svc:      svc,
		store:    store,
		mem:      mem,
		events:   events,
		landID:   landID,
		clock:    time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		landlord: &session.Session{UserID: landlord.ID, User: landlord, Role: enums.UserRoleLandlord, SignedIn: true, Resolved: true},
		tenant:   &session.Session{UserID: tenant.ID, User: tenant, Role: enums.UserRoleTenant, SignedIn: true, Resolved: true},
	}
	svc.now = func() time.Time {
		h.clockMu.Lock()
		defer h.clockMu.Unlock()
		h.clock = h.clock.Add(time.Minute)
		return h.clock
	}
	return h
}

func (h *harness) decide(id, actorID string, action enums.LeaseAction) (*Request, error) {
	return h.svc.DecideRequest(context.Background(), DecisionInput{ID: id, ActorID: actorID, Action: action, Confirmed: true})
}

func TestCreateRequestSnapshotsTenantAndLand(t *testing.T) {
	h := newHarness(t)

	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeaseStatusPending, req.Status)
	assert.Equal(t, "North Field", req.LandTitle)
	assert.Equal(t, "landlord-1", req.LandlordID)
	assert.Equal(t, "Sam Reed", req.TenantName)
	assert.Equal(t, "sam@example.com", req.TenantEmail)
	assert.Equal(t, "New", req.TenantRating)
	assert.Equal(t, "4 years", req.TenantExperience)

	stored, err := h.store.Repository.FindRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.LandTitle, stored.LandTitle)
	assert.Equal(t, enums.LeaseStatusPending, stored.Status)
	assert.Equal(t, []enums.OutboxEventType{enums.EventLeaseRequestCreated}, h.events.types())
}

func TestCreateRequestDefaultsMissingSnapshotFields(t *testing.T) {
	h := newHarness(t)
	actor := &session.Session{UserID: "tenant-2", Role: enums.UserRoleTenant, SignedIn: true, Resolved: true}

	req, err := h.svc.CreateRequest(context.Background(), actor, h.landID)
	require.NoError(t, err)
	assert.Equal(t, "Tenant", req.TenantName)
	assert.Equal(t, "< 1 year", req.TenantExperience)
	assert.Equal(t, "New", req.TenantRating)
}

func TestCreateRequestTwiceKeepsOne(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateRequest(ctx, h.tenant, h.landID)
	require.NoError(t, err)

	_, err = h.svc.CreateRequest(ctx, h.tenant, h.landID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.True(t, errors.Is(err, ErrDuplicateRequest))

	list, err := h.svc.ListRequestsForTenant(ctx, h.tenant.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateRequestDuplicateAfterDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, h.tenant, h.landID)
	require.NoError(t, err)
	_, err = h.decide(req.ID, h.landlord.UserID, enums.LeaseActionReject)
	require.NoError(t, err)

	_, err = h.svc.CreateRequest(ctx, h.tenant, h.landID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateRequestRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateRequest(ctx, h.landlord, h.landID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "own land: %v", err)
	assert.ErrorIs(t, err, ErrSelfAction)

	other := &session.Session{UserID: "landlord-2", Role: enums.UserRoleLandlord, SignedIn: true, Resolved: true}
	_, err = h.svc.CreateRequest(ctx, other, h.landID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "landlord role: %v", err)

	_, err = h.svc.CreateRequest(ctx, h.tenant, "missing-land")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "missing land: %v", err)

	_, err = h.svc.CreateRequest(ctx, nil, h.landID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAcceptShowsOnBothSides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, h.tenant, h.landID)
	require.NoError(t, err)

	decided, err := h.decide(req.ID, h.landlord.UserID, enums.LeaseActionAccept)
	require.NoError(t, err)
	assert.Equal(t, enums.LeaseStatusAccepted, decided.Status)
	assert.Equal(t, h.landlord.UserID, decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	tenantView, err := h.svc.ListRequestsForTenant(ctx, h.tenant.UserID)
	require.NoError(t, err)
	require.Len(t, tenantView, 1)
	assert.Equal(t, req.ID, tenantView[0].ID)
	assert.Equal(t, enums.LeaseStatusAccepted, tenantView[0].Status)
	assert.Equal(t, []Affordance{AffordanceContact}, tenantView[0].Actions)

	landlordView, err := h.svc.ListRequestsForLandlord(ctx, h.landlord.UserID)
	require.NoError(t, err)
	require.Len(t, landlordView, 1)
	assert.Equal(t, req.ID, landlordView[0].ID)
	assert.Equal(t, enums.LeaseStatusAccepted, landlordView[0].Status)
	assert.Equal(t, []Affordance{AffordanceGenerateAgreement, AffordanceContact}, landlordView[0].Actions)

	assert.Equal(t, []enums.OutboxEventType{enums.EventLeaseRequestCreated, enums.EventLeaseRequestDecided}, h.events.types())
}

func TestSecondDecisionIsStale(t *testing.T) {
	h := newHarness(t)
	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)

	_, err = h.decide(req.ID, h.landlord.UserID, enums.LeaseActionAccept)
	require.NoError(t, err)

	_, err = h.decide(req.ID, h.landlord.UserID, enums.LeaseActionReject)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.True(t, errors.Is(err, ErrStaleTransition))
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, true, details["refresh"])

	stored, err := h.store.Repository.FindRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeaseStatusAccepted, stored.Status)
}

func TestConcurrentDecisionsPersistOne(t *testing.T) {
	h := newHarness(t)
	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)

	actions := []enums.LeaseAction{enums.LeaseActionAccept, enums.LeaseActionReject}
	errs := make([]error, len(actions))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action enums.LeaseAction) {
			defer wg.Done()
			<-start
			_, errs[i] = h.decide(req.ID, h.landlord.UserID, action)
		}(i, action)
	}
	close(start)
	wg.Wait()

	var won, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, stale)

	stored, err := h.store.Repository.FindRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.IsTerminal())
}

func TestInitiatorCannotDecide(t *testing.T) {
	h := newHarness(t)
	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)

	_, err = h.decide(req.ID, h.tenant.UserID, enums.LeaseActionAccept)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = h.decide(req.ID, "stranger", enums.LeaseActionAccept)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestUnconfirmedDecisionIsNoop(t *testing.T) {
	h := newHarness(t)
	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)
	before := h.store.reads

	_, err = h.svc.DecideRequest(context.Background(), DecisionInput{ID: req.ID, ActorID: h.landlord.UserID, Action: enums.LeaseActionAccept})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.True(t, errors.Is(err, ErrConfirmationRequired))
	assert.Equal(t, before, h.store.reads)

	stored, err := h.store.Repository.FindRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeaseStatusPending, stored.Status)
}

func TestDecideMissingRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.decide("nope", h.landlord.UserID, enums.LeaseActionAccept)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestInvitationLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inv, err := h.svc.CreateInvitation(ctx, h.landlord, CreateInvitationInput{TenantID: h.tenant.UserID})
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", inv.LandlordName)
	assert.Equal(t, "Sam Reed", inv.TenantName)
	assert.Equal(t, enums.LeaseStatusPending, inv.Status)

	_, err = h.svc.CreateInvitation(ctx, h.landlord, CreateInvitationInput{TenantID: h.tenant.UserID})
	require.NoError(t, err, "repeat invitations are allowed")

	pending, err := h.svc.ListInvitationsForTenant(ctx, h.tenant.UserID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, pending[0].CreatedAt.After(pending[1].CreatedAt), "newest first")
	assert.Equal(t, []Affordance{AffordanceAccept, AffordanceReject}, pending[1].Actions)

	_, err = h.svc.DecideInvitation(ctx, DecisionInput{ID: inv.ID, ActorID: h.landlord.UserID, Action: enums.LeaseActionAccept, Confirmed: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "landlord cannot decide own invitation")

	decided, err := h.svc.DecideInvitation(ctx, DecisionInput{ID: inv.ID, ActorID: h.tenant.UserID, Action: enums.LeaseActionReject, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, enums.LeaseStatusRejected, decided.Status)

	_, err = h.svc.DecideInvitation(ctx, DecisionInput{ID: inv.ID, ActorID: h.tenant.UserID, Action: enums.LeaseActionAccept, Confirmed: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	sent, err := h.svc.ListInvitationsForLandlord(ctx, h.landlord.UserID)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	for _, item := range sent {
		if item.ID == inv.ID {
			assert.Equal(t, enums.LeaseStatusRejected, item.Status)
			assert.Empty(t, item.Actions)
		}
	}
}

func TestCreateInvitationRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateInvitation(ctx, h.landlord, CreateInvitationInput{TenantID: h.landlord.UserID})
	assert.True(t, errors.Is(err, ErrSelfAction))

	_, err = h.svc.CreateInvitation(ctx, h.landlord, CreateInvitationInput{TenantID: "ghost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.CreateInvitation(ctx, h.tenant, CreateInvitationInput{TenantID: "tenant-2"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.CreateInvitation(ctx, h.landlord, CreateInvitationInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	other := &session.Session{UserID: "landlord-2", Role: enums.UserRoleLandlord, SignedIn: true, Resolved: true}
	_, err = h.mem.Create(ctx, gateway.CollectionUsers, gateway.Document{gateway.FieldID: "landlord-2", "role": "landlord"})
	require.NoError(t, err)
	_, err = h.svc.CreateInvitation(ctx, other, CreateInvitationInput{TenantID: "landlord-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "invitee must be a tenant")

	inv, err := h.svc.CreateInvitation(ctx, other, CreateInvitationInput{TenantID: "tenant-2"})
	require.NoError(t, err)
	assert.Equal(t, "Landowner", inv.LandlordName)
	assert.Equal(t, "Tenant", inv.TenantName)
}

func TestGetRequestRequiresParty(t *testing.T) {
	h := newHarness(t)
	req, err := h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)

	item, err := h.svc.GetRequest(context.Background(), h.landlord.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []Affordance{AffordanceAccept, AffordanceReject}, item.Actions)

	_, err = h.svc.GetRequest(context.Background(), "stranger", req.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestHasRequested(t *testing.T) {
	h := newHarness(t)
	ok, err := h.store.HasRequested(context.Background(), h.landID, h.tenant.UserID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.svc.CreateRequest(context.Background(), h.tenant, h.landID)
	require.NoError(t, err)
	ok, err = h.store.HasRequested(context.Background(), h.landID, h.tenant.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
}
