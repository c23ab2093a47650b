package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	pkgAuth "github.com/agrolease/agrolease-backend/pkg/auth"
	authsession "github.com/agrolease/agrolease-backend/pkg/auth/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
)

const invalidCredentialsMessage = "invalid credentials"

var validate = validator.New()

type credentialStore interface {
	Create(ctx context.Context, userID, email, passwordHash string) (*Credential, error)
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	UpdateHash(ctx context.Context, id, passwordHash string) error
}

type profileStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID, userID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, userID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

type sessionPublisher interface {
	SignedIn(ctx context.Context, userID string) *session.Session
	SignedOut(ctx context.Context, userID string)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Credentials credentialStore
	Profiles    profileStore
	Sessions    sessionManager
	Hasher      passwordHasher
	Publisher   sessionPublisher
	Events      outbox.Emitter
	JWTConfig   config.JWTConfig
	Logger      *logger.Logger
}

// Service signs users up, in and out.
type Service struct {
	credentials credentialStore
	profiles    profileStore
	sessions    sessionManager
	hasher      passwordHasher
	publisher   sessionPublisher
	events      outbox.Emitter
	jwtCfg      config.JWTConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Credentials == nil:
		return nil, errors.New("credential store is required")
	case params.Profiles == nil:
		return nil, errors.New("profile store is required")
	case params.Sessions == nil:
		return nil, errors.New("session manager is required")
	case params.Hasher == nil:
		return nil, errors.New("password hasher is required")
	case params.Publisher == nil:
		return nil, errors.New("session publisher is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	events := params.Events
	if events == nil {
		events = outbox.NewLogEmitter(params.Logger)
	}
	return &Service{
		credentials: params.Credentials,
		profiles:    params.Profiles,
		sessions:    params.Sessions,
		hasher:      params.Hasher,
		publisher:   params.Publisher,
		events:      events,
		jwtCfg:      params.JWTConfig,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Register creates the credential and profile, then signs the user in.
// Nothing touches the gateway until the form validates.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	if _, err := s.credentials.FindByEmail(ctx, req.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gateway.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	userID := uuid.NewString()
	if _, err := s.credentials.Create(ctx, userID, req.Email, hash); err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credential")
	}

	user, err := s.profiles.Create(ctx, users.CreateUserDTO{
		ID:                userID,
		Name:              req.Name,
		Email:             req.Email,
		Role:              req.Role,
		ExperienceYears:   req.Experience,
		PreferredSoilType: req.PreferredSoilType,
		DesiredSize:       req.DesiredSize,
	})
	if err != nil {
		// The credential stays; the next sign-in resolves to an unresolved session.
		s.logg.Error(s.logg.WithUserID(ctx, userID), "auth.register_profile_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}

	s.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventUserRegistered,
		AggregateType: enums.AggregateUser,
		AggregateID:   user.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
		Data:          payloads.UserRegisteredEvent{UserID: user.ID, Role: user.Role},
	})

	return s.signIn(ctx, user)
}

// Login checks the password and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	cred, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup credential")
	}

	ok, err := s.hasher.Verify(req.Password, cred.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.maybeRehash(ctx, cred, req.Password)

	user, err := s.profiles.FindByID(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return s.signIn(ctx, user)
}

// Refresh rotates the refresh token bound to the access token's jti.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	accessID, refreshToken, err := s.sessions.Rotate(ctx, claims.ID, claims.UserID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, authsession.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout revokes the refresh session and tells observers nobody is signed in.
func (s *Service) Logout(ctx context.Context, accessID, userID string) error {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.publisher.SignedOut(ctx, userID)
	return nil
}

func (s *Service) signIn(ctx context.Context, user *users.User) (*LoginResponse, error) {
	accessID := authsession.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	sess := s.publisher.SignedIn(ctx, user.ID)
	s.logg.Info(s.logg.WithActorRole(s.logg.WithUserID(ctx, user.ID), string(user.Role)), "auth.signed_in")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Session:      sess,
	}, nil
}

func (s *Service) maybeRehash(ctx context.Context, cred *Credential, password string) {
	if !s.hasher.NeedsRehash(cred.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.credentials.UpdateHash(ctx, cred.ID, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, cred.UserID), "error", err.Error()), "auth.rehash_failed")
	}
}

func (s *Service) emit(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Emit(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", event.EventType), "outbox.emit_failed", err)
	}
}

func validateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[lowerFirst(fe.Field())] = describeRule(fe)
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid registration").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration")
	}
	return nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
