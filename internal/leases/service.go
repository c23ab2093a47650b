package leases

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
)

type leaseStore interface {
	CreateRequest(ctx context.Context, req *Request) (string, error)
	FindRequest(ctx context.Context, id string) (*Request, error)
	HasRequested(ctx context.Context, landID, tenantID string) (bool, error)
	ListRequests(ctx context.Context, field, id string) ([]*Request, error)
	CreateInvitation(ctx context.Context, inv *Invitation) (string, error)
	FindInvitation(ctx context.Context, id string) (*Invitation, error)
	ListInvitations(ctx context.Context, field, id string) ([]*Invitation, error)
	Decide(ctx context.Context, kind Kind, id string, status enums.LeaseStatus, decidedBy string, at time.Time) error
}

type listingReader interface {
	FindByID(ctx context.Context, id string) (*listings.Listing, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type decisionRecorder interface {
	IncDecision(kind, outcome string)
}

type ServiceParams struct {
	Store    leaseStore
	Listings listingReader
	Profiles profileReader
	Events   outbox.Emitter
	Metrics  decisionRecorder
	Logger   *logger.Logger
}

// Service runs the request and invitation lifecycle.
type Service struct {
	store    leaseStore
	listings listingReader
	profiles profileReader
	events   outbox.Emitter
	metrics  decisionRecorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Store == nil:
		return nil, errors.New("lease store is required")
	case params.Listings == nil:
		return nil, errors.New("listing reader is required")
	case params.Profiles == nil:
		return nil, errors.New("profile reader is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	events := params.Events
	if events == nil {
		events = outbox.NewLogEmitter(params.Logger)
	}
	return &Service{
		store:    params.Store,
		listings: params.Listings,
		profiles: params.Profiles,
		events:   events,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// CreateRequest files a pending request from the signed-in tenant for landID.
// A tenant gets at most one request per land, whatever its status. The owner
// check runs before the role check so a landlord requesting their own land
// is told it is a self action.
func (s *Service) CreateRequest(ctx context.Context, actor *session.Session, landID string) (*Request, error) {
	if actor == nil || !actor.SignedIn {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	landID = strings.TrimSpace(landID)
	if landID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "land id required")
	}
	ctx = s.logg.WithUserID(ctx, actor.UserID)

	listing, err := s.listings.FindByID(ctx, landID)
	if err != nil {
		return nil, notFoundOr(err, "listing not found", "load listing")
	}
	if listing.OwnerID == actor.UserID {
		return nil, selfAction("cannot request your own listing")
	}
	if err := requireRole(actor, enums.UserRoleTenant); err != nil {
		return nil, err
	}

	requested, err := s.store.HasRequested(ctx, landID, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing request")
	}
	if requested {
		return nil, duplicateRequest(nil)
	}

	tenant := actor.User
	if tenant == nil {
		if tenant, err = s.profiles.FindByID(ctx, actor.UserID); err != nil {
			return nil, notFoundOr(err, "tenant profile not found", "load tenant profile")
		}
	}

	req := &Request{
		LandID:           listing.ID,
		LandTitle:        listing.Title,
		LandlordID:       listing.OwnerID,
		TenantID:         actor.UserID,
		TenantName:       orDefault(tenant.Name, defaultTenantName),
		TenantEmail:      tenant.Email,
		TenantRating:     orDefault(tenant.Rating, defaultTenantRating),
		TenantExperience: orDefault(tenant.Experience, defaultTenantExperience),
		Status:           enums.LeaseStatusPending,
		CreatedAt:        s.now().UTC(),
	}
	id, err := s.store.CreateRequest(ctx, req)
	if err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, duplicateRequest(err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}
	req.ID = id

	s.emit(ctx, actor, KindRequest, id, enums.EventLeaseRequestCreated, payloads.LeaseCreatedEvent{
		ID:         id,
		LandID:     req.LandID,
		LandlordID: req.LandlordID,
		TenantID:   req.TenantID,
		LandTitle:  req.LandTitle,
	})
	s.logg.Info(s.logg.WithLease(ctx, string(KindRequest), id), "leases.request_created")
	return req, nil
}

// CreateInvitation files a pending invitation from the signed-in landlord.
// Repeat invitations to the same tenant are allowed.
func (s *Service) CreateInvitation(ctx context.Context, actor *session.Session, in CreateInvitationInput) (*Invitation, error) {
	if err := requireRole(actor, enums.UserRoleLandlord); err != nil {
		return nil, err
	}
	tenantID := strings.TrimSpace(in.TenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required").
			WithDetails(map[string]string{"tenantId": "is required"})
	}
	if tenantID == actor.UserID {
		return nil, selfAction("cannot invite yourself")
	}
	ctx = s.logg.WithUserID(ctx, actor.UserID)

	tenant, err := s.profiles.FindByID(ctx, tenantID)
	if err != nil {
		return nil, notFoundOr(err, "tenant not found", "load tenant")
	}
	if tenant.Role != enums.UserRoleTenant {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invitee is not a tenant").
			WithDetails(map[string]string{"tenantId": "must reference a tenant"})
	}

	inv := &Invitation{
		LandlordID:   actor.UserID,
		LandlordName: s.landlordName(ctx, actor),
		TenantID:     tenant.ID,
		TenantName:   orDefault(tenant.Name, defaultTenantName),
		Status:       enums.LeaseStatusPending,
		CreatedAt:    s.now().UTC(),
	}
	id, err := s.store.CreateInvitation(ctx, inv)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
	}
	inv.ID = id

	s.emit(ctx, actor, KindInvitation, id, enums.EventInvitationCreated, payloads.LeaseCreatedEvent{
		ID:         id,
		LandlordID: inv.LandlordID,
		TenantID:   inv.TenantID,
	})
	s.logg.Info(s.logg.WithLease(ctx, string(KindInvitation), id), "leases.invitation_created")
	return inv, nil
}

// DecideRequest applies the landlord's accept or reject to a pending request.
func (s *Service) DecideRequest(ctx context.Context, in DecisionInput) (*Request, error) {
	if err := checkDecision(in); err != nil {
		return nil, err
	}
	ctx = s.logg.WithLease(s.logg.WithUserID(ctx, in.ActorID), string(KindRequest), in.ID)

	req, err := s.store.FindRequest(ctx, in.ID)
	if err != nil {
		return nil, notFoundOr(err, "request not found", "load request")
	}
	next, err := Transition(KindRequest, req.Status, in.Action, SideOf(in.ActorID, req.LandlordID, req.TenantID))
	if err != nil {
		return nil, s.transitionError(KindRequest, err)
	}
	at := s.now().UTC()
	if err := s.store.Decide(ctx, KindRequest, req.ID, next, in.ActorID, at); err != nil {
		return nil, s.commitError(ctx, KindRequest, err)
	}
	s.record(KindRequest, string(next))
	req.Status, req.DecidedBy, req.DecidedAt, req.UpdatedAt = next, in.ActorID, &at, &at

	s.emitDecision(ctx, KindRequest, enums.EventLeaseRequestDecided, payloads.LeaseDecidedEvent{
		ID:         req.ID,
		LandID:     req.LandID,
		LandlordID: req.LandlordID,
		TenantID:   req.TenantID,
		Status:     next,
		DecidedBy:  in.ActorID,
		DecidedAt:  at,
	})
	s.logg.Info(s.logg.WithField(ctx, "status", string(next)), "leases.request_decided")
	return req, nil
}

// DecideInvitation applies the tenant's accept or reject to a pending invitation.
func (s *Service) DecideInvitation(ctx context.Context, in DecisionInput) (*Invitation, error) {
	if err := checkDecision(in); err != nil {
		return nil, err
	}
	ctx = s.logg.WithLease(s.logg.WithUserID(ctx, in.ActorID), string(KindInvitation), in.ID)

	inv, err := s.store.FindInvitation(ctx, in.ID)
	if err != nil {
		return nil, notFoundOr(err, "invitation not found", "load invitation")
	}
	next, err := Transition(KindInvitation, inv.Status, in.Action, SideOf(in.ActorID, inv.LandlordID, inv.TenantID))
	if err != nil {
		return nil, s.transitionError(KindInvitation, err)
	}
	at := s.now().UTC()
	if err := s.store.Decide(ctx, KindInvitation, inv.ID, next, in.ActorID, at); err != nil {
		return nil, s.commitError(ctx, KindInvitation, err)
	}
	s.record(KindInvitation, string(next))
	inv.Status, inv.DecidedBy, inv.DecidedAt, inv.UpdatedAt = next, in.ActorID, &at, &at

	s.emitDecision(ctx, KindInvitation, enums.EventInvitationDecided, payloads.LeaseDecidedEvent{
		ID:         inv.ID,
		LandlordID: inv.LandlordID,
		TenantID:   inv.TenantID,
		Status:     next,
		DecidedBy:  in.ActorID,
		DecidedAt:  at,
	})
	s.logg.Info(s.logg.WithField(ctx, "status", string(next)), "leases.invitation_decided")
	return inv, nil
}

// GetRequest returns a request the viewer is party to.
func (s *Service) GetRequest(ctx context.Context, viewerID, id string) (*RequestItem, error) {
	req, err := s.store.FindRequest(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "request not found", "load request")
	}
	side := SideOf(viewerID, req.LandlordID, req.TenantID)
	if side == SideNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this request")
	}
	return &RequestItem{Request: req, Actions: Affordances(KindRequest, req.Status, side)}, nil
}

func (s *Service) ListRequestsForTenant(ctx context.Context, tenantID string) ([]RequestItem, error) {
	return s.listRequests(ctx, "tenantId", tenantID)
}

func (s *Service) ListRequestsForLandlord(ctx context.Context, landlordID string) ([]RequestItem, error) {
	return s.listRequests(ctx, "landlordId", landlordID)
}

func (s *Service) ListInvitationsForTenant(ctx context.Context, tenantID string) ([]InvitationItem, error) {
	return s.listInvitations(ctx, "tenantId", tenantID)
}

func (s *Service) ListInvitationsForLandlord(ctx context.Context, landlordID string) ([]InvitationItem, error) {
	return s.listInvitations(ctx, "landlordId", landlordID)
}

func (s *Service) listRequests(ctx context.Context, field, viewerID string) ([]RequestItem, error) {
	reqs, err := s.store.ListRequests(ctx, field, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	out := make([]RequestItem, 0, len(reqs))
	for _, req := range reqs {
		side := SideOf(viewerID, req.LandlordID, req.TenantID)
		out = append(out, RequestItem{Request: req, Actions: Affordances(KindRequest, req.Status, side)})
	}
	return out, nil
}

func (s *Service) listInvitations(ctx context.Context, field, viewerID string) ([]InvitationItem, error) {
	invs, err := s.store.ListInvitations(ctx, field, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invitations")
	}
	sort.SliceStable(invs, func(i, j int) bool { return invs[i].CreatedAt.After(invs[j].CreatedAt) })
	out := make([]InvitationItem, 0, len(invs))
	for _, inv := range invs {
		side := SideOf(viewerID, inv.LandlordID, inv.TenantID)
		out = append(out, InvitationItem{Invitation: inv, Actions: Affordances(KindInvitation, inv.Status, side)})
	}
	return out, nil
}

func (s *Service) landlordName(ctx context.Context, actor *session.Session) string {
	profile := actor.User
	if profile == nil {
		var err error
		profile, err = s.profiles.FindByID(ctx, actor.UserID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "leases.landlord_lookup_failed")
			return defaultLandlordName
		}
	}
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	return orDefault(profile.Email, defaultLandlordName)
}

func (s *Service) record(kind Kind, outcome string) {
	if s.metrics != nil {
		s.metrics.IncDecision(string(kind), outcome)
	}
}

func (s *Service) commitError(ctx context.Context, kind Kind, err error) error {
	switch {
	case errors.Is(err, gateway.ErrPreconditionFailed):
		s.record(kind, "stale")
		s.logg.Warn(ctx, "leases.stale_transition")
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrStaleTransition, "already decided").Refresh()
	case errors.Is(err, gateway.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "record not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save decision")
	}
}

func (s *Service) emit(ctx context.Context, actor *session.Session, kind Kind, id string, eventType enums.OutboxEventType, data any) {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregateFor(kind),
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data:          data,
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", eventType), "outbox.emit_failed", err)
	}
}

func (s *Service) emitDecision(ctx context.Context, kind Kind, eventType enums.OutboxEventType, data payloads.LeaseDecidedEvent) {
	role := enums.UserRoleLandlord
	if kind == KindInvitation {
		role = enums.UserRoleTenant
	}
	actor := &session.Session{UserID: data.DecidedBy, Role: role}
	s.emit(ctx, actor, kind, data.ID, eventType, data)
}

func aggregateFor(kind Kind) enums.OutboxAggregateType {
	if kind == KindInvitation {
		return enums.AggregateInvitation
	}
	return enums.AggregateLeaseRequest
}

func checkDecision(in DecisionInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "id required")
	}
	if in.ActorID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if !in.Action.IsValid() {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidAction, "action must be accept or reject").
			WithDetails(map[string]string{"action": "must be accept or reject"})
	}
	if !in.Confirmed {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrConfirmationRequired, "decision not confirmed").
			WithDetails(map[string]string{"confirm": "required"})
	}
	return nil
}

func (s *Service) transitionError(kind Kind, err error) error {
	if errors.Is(err, ErrStaleTransition) {
		s.record(kind, "stale")
	}
	switch {
	case errors.Is(err, ErrNotRecipient):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "only the recipient may decide")
	case errors.Is(err, ErrStaleTransition):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "already decided").Refresh()
	case errors.Is(err, ErrInvalidAction):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "action must be accept or reject")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition failed")
	}
}

func duplicateRequest(cause error) error {
	if cause == nil {
		cause = ErrDuplicateRequest
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "land already requested").
		WithDetails(map[string]any{"state": "already_requested"}).Refresh()
}

func selfAction(msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrSelfAction, msg)
}

func notFoundOr(err error, notFound, dependency string) error {
	if errors.Is(err, gateway.ErrNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dependency)
}

func requireRole(actor *session.Session, role enums.UserRole) error {
	if actor == nil || !actor.SignedIn {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if actor.Role != role {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only "+string(role)+"s may do this")
	}
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
