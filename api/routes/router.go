package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrolease/agrolease-backend/api/controllers"
	"github.com/agrolease/agrolease-backend/api/middleware"
	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/session"
	authsession "github.com/agrolease/agrolease-backend/pkg/auth/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/metrics"
	pkgredis "github.com/agrolease/agrolease-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	WindowRemaining(ctx context.Context, scope string) (time.Duration, error)
}

// Dependencies carries everything the router wires into handlers. A nil
// service yields handlers that answer with an internal error.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    RedisStore
	Sessions authsession.AccessSessionChecker
	Resolver *session.Controller
	Ready    map[string]controllers.Pinger
	Blobs    gateway.BlobReader

	Auth            controllers.AuthService
	Listings        controllers.ListingService
	Leases          controllers.LeaseService
	Agreements      controllers.AgreementService
	Users           controllers.TenantDirectory
	Recommendations controllers.Recommender

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		middleware.Logging(logg),
	)
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Ready, logg))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.RateLimitPolicy{Name: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	registerPolicy := middleware.RateLimitPolicy{Name: "register", Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, cfg.JWT, logg))
	})

	r.Get("/api/v1/blobs/*", controllers.BlobDownload(d.Blobs, logg))

	idem := middleware.Idempotency(d.Redis, middleware.IdempotencyTTL, logg)
	decide := middleware.Idempotency(d.Redis, middleware.DecisionIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		if d.Resolver != nil {
			r.Use(middleware.ResolveSession(d.Resolver, logg))
		}

		r.Get("/session", controllers.SessionCurrent(logg))
		r.Get("/listings", controllers.ListingsBrowse(d.Listings, logg))
		r.Get("/listings/{id}", controllers.ListingDetail(d.Listings, logg))

		r.Route("/tenant", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleTenant, logg))
			r.With(idem).Post("/listings/{id}/requests", controllers.TenantCreateRequest(d.Leases, logg))
			r.Get("/requests", controllers.TenantRequests(d.Leases, logg))
			r.Get("/invitations", controllers.TenantInvitations(d.Leases, logg))
			r.With(decide).Post("/invitations/{id}/decision", controllers.TenantDecideInvitation(d.Leases, logg))
		})

		r.Route("/landlord", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleLandlord, logg))
			r.With(idem).Post("/listings", controllers.LandlordCreateListing(d.Listings, cfg.Listings, logg))
			r.Get("/listings", controllers.LandlordListings(d.Listings, logg))
			r.Get("/requests", controllers.LandlordRequests(d.Leases, logg))
			r.With(decide).Post("/requests/{id}/decision", controllers.LandlordDecideRequest(d.Leases, logg))
			r.Get("/requests/{id}/agreement", controllers.LandlordAgreement(d.Agreements, logg))
			r.With(idem).Post("/invitations", controllers.LandlordCreateInvitation(d.Leases, logg))
			r.Get("/invitations", controllers.LandlordInvitations(d.Leases, logg))
			r.Get("/tenants", controllers.LandlordTenants(d.Users, logg))
			r.Get("/recommendations", controllers.LandlordRecommendations(d.Recommendations, logg))
		})
	})

	return r
}
