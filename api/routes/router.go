package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/civicpulse-backend/api/controllers"
	"github.com/angelmondragon/civicpulse-backend/api/middleware"
	"github.com/angelmondragon/civicpulse-backend/api/responses"
	"github.com/angelmondragon/civicpulse-backend/internal/analytics"
	"github.com/angelmondragon/civicpulse-backend/internal/auth"
	"github.com/angelmondragon/civicpulse-backend/internal/media"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/redis"
	"github.com/google/uuid"
)

const reasonRouteNotFound = "ROUTE_NOT_FOUND"

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAdministrators(ctx context.Context) ([]models.User, error)
}

type httpObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// Params carries everything the router mounts. Nil services answer with an
// internal error; a nil limiter disables rate limiting.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	Users     userStore
	Limiter   redis.RateLimiter
	Metrics   httpObserver
	Gatherer  prometheus.Gatherer
	Readiness map[string]controllers.Pinger

	Auth      auth.Service
	Register  auth.RegisterService
	Profile   auth.ProfileService
	Reports   reports.Service
	Analytics analytics.Service
	Media     media.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.InternalDetail(cfg.App.IsDev()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	uploadPolicy := middleware.NewUserRateLimitPolicy(
		"upload",
		cfg.UploadRateLimit.Window,
		cfg.UploadRateLimit.UserLimit,
	)

	var users middleware.UserLoader
	var admins controllers.AdministratorLister
	if p.Users != nil {
		users, admins = p.Users, p.Users
	}
	requireAuth := middleware.RequireAuth(cfg.JWT, users, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, users, logg)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "Route "+r.URL.Path+" not found").WithReason(reasonRouteNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "Route "+r.Method+" "+r.URL.Path+" not found").WithReason(reasonRouteNotFound))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Readiness, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.Limiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.Limiter, logg)).Post("/register", controllers.AuthRegister(p.Register, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/profile", controllers.AuthProfile(p.Profile, logg))
				r.Put("/profile", controllers.AuthUpdateProfile(p.Profile, logg))
				r.Put("/change-password", controllers.AuthChangePassword(p.Profile, logg))
				r.Post("/logout", controllers.AuthLogout(logg))
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", controllers.ReportsList(p.Reports, logg))
				r.Get("/nearby", controllers.ReportsNearby(p.Reports, logg))
				r.Get("/{id}", controllers.ReportGet(p.Reports, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/my", controllers.ReportsMine(p.Reports, logg))
				r.Post("/", controllers.ReportCreate(p.Reports, logg))
				r.Put("/{id}", controllers.ReportUpdate(p.Reports, logg))
				r.Delete("/{id}", controllers.ReportDelete(p.Reports, logg))
				r.Post("/{id}/upvote", controllers.ReportUpvote(p.Reports, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireAdministrator(logg))
			r.Get("/reports", controllers.AdminReportsList(p.Reports, logg))
			r.Put("/reports/{id}/status", controllers.AdminReportStatus(p.Reports, logg))
			r.Put("/reports/{id}/assign", controllers.AdminReportAssign(p.Reports, logg))
			r.Post("/reports/{id}/comments", controllers.AdminReportComment(p.Reports, logg))
			r.Get("/dashboard", controllers.AdminDashboard(p.Analytics, logg))
			r.Get("/administrators", controllers.AdminAdministrators(admins, logg))
		})

		r.Route("/upload", func(r chi.Router) {
			r.Use(requireAuth)
			r.Group(func(r chi.Router) {
				r.Use(middleware.UserRateLimit(uploadPolicy, p.Limiter, logg))
				r.Post("/image", controllers.UploadImage(p.Media, cfg.Media, logg))
				r.Post("/images", controllers.UploadImages(p.Media, cfg.Media, logg))
			})
			r.Delete("/*", controllers.DeleteImage(p.Media, logg))
		})
	})

	return r
}
