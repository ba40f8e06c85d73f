package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"volunteerverse/pkg/render"
	"volunteerverse/pkg/telemetry"
	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/gate"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/store"
)

const (
	serviceName          = "volunteerverse"
	defaultUploadTTL     = 15 * time.Minute
	defaultRequestLimit  = 100
	homeEventLimit       = 6
	defaultAllowedOrigin = "http://localhost:3000"
)

// Repository is the persistence surface used by the handlers.
type Repository interface {
	Ping(ctx context.Context) error

	RegisterVolunteer(ctx context.Context, account *models.Account, v *models.VolunteerUser) error
	RegisterUser(ctx context.Context, account *models.Account, u *models.User) error

	VolunteerByID(ctx context.Context, id uuid.UUID) (models.VolunteerUser, error)
	ListVolunteers(ctx context.Context) ([]models.VolunteerUser, error)
	UpdateVolunteer(ctx context.Context, id uuid.UUID, patch store.Patch) (models.VolunteerUser, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch store.Patch) (models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) (string, error)

	ListNGOs(ctx context.Context, ownerID *uuid.UUID) ([]models.NGO, error)
	NGOByID(ctx context.Context, id uuid.UUID) (models.NGO, error)
	NGOByUserID(ctx context.Context, userID uuid.UUID) (models.NGO, error)
	CreateNGO(ctx context.Context, ngo *models.NGO) error
	UpdateNGO(ctx context.Context, id uuid.UUID, patch store.Patch) (models.NGO, error)
	DeleteNGO(ctx context.Context, id uuid.UUID) error

	ListEvents(ctx context.Context, limit int) ([]store.EventSummary, error)
	EventsByNGO(ctx context.Context, ngoID uuid.UUID) ([]store.EventSummary, error)
	EventSummaryByID(ctx context.Context, id uuid.UUID) (store.EventSummary, error)
	EventByID(ctx context.Context, id uuid.UUID) (models.Event, error)
	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, id uuid.UUID, patch store.Patch) (models.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	CreateApplication(ctx context.Context, app *models.VolunteerApplication) error
	ApplicationByID(ctx context.Context, id uuid.UUID) (models.VolunteerApplication, error)
	ApplicationFor(ctx context.Context, eventID, volunteerID uuid.UUID) (models.VolunteerApplication, error)
	ApplicationsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.VolunteerApplication, error)
	ApplicationsByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.VolunteerApplication, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) (models.VolunteerApplication, error)
	DeleteApplication(ctx context.Context, id uuid.UUID) error

	LogHours(ctx context.Context, h *models.VolunteerHours) error
	HoursByID(ctx context.Context, id uuid.UUID) (models.VolunteerHours, error)
	HoursByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.VolunteerHours, error)
	VerifyHours(ctx context.Context, id, verifier uuid.UUID) (models.VolunteerHours, error)
}

// Authenticator is the credential store.
type Authenticator interface {
	NewAccount(email, password string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Logout(ctx context.Context, accessToken string) error
	RevokeAll(ctx context.Context, accountID uuid.UUID) error
}

// Sessions is the session cache.
type Sessions interface {
	Token(r *http.Request) (string, bool)
	HasCookie(r *http.Request) bool
	Current(r *http.Request) (*auth.Session, error)
	Set(w http.ResponseWriter, sess *auth.Session)
	Clear(w http.ResponseWriter)
}

// Profiles maps user ids to profiles.
type Profiles interface {
	Resolve(ctx context.Context, id uuid.UUID) (*profile.Profile, bool)
}

// Recorder receives activity events.
type Recorder interface {
	Log(ctx context.Context, e activity.Event)
}

// Presigner issues presigned media upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error)
}

// HealthChecker reports whether an optional dependency is connected.
type HealthChecker interface {
	Healthy() bool
}

// Deps holds the collaborators of the HTTP layer. Media and Bus are optional.
type Deps struct {
	Store    Repository
	Auth     Authenticator
	Sessions Sessions
	Profiles Profiles
	Gate     *gate.Gate
	Renderer *render.Engine
	Activity Recorder
	Media    Presigner
	Bus      HealthChecker
	Logger   zerolog.Logger
}

// Config controls runtime behaviour for the handlers.
type Config struct {
	AllowedOrigins   []string
	RequestRateLimit int
	MediaBucket      string
	MediaUploadTTL   time.Duration
}

// API wires dependencies, template renderer, and configuration for HTTP handlers.
type API struct {
	store    Repository
	auth     Authenticator
	sessions Sessions
	profiles Profiles
	gate     *gate.Gate
	renderer *render.Engine
	activity Recorder
	media    Presigner
	bus      HealthChecker
	logger   zerolog.Logger
	config   Config
}

// New initialises the API layer with defaults applied to cfg.
func New(deps Deps, cfg Config) (*API, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Auth == nil:
		return nil, errors.New("authenticator is required")
	case deps.Sessions == nil:
		return nil, errors.New("session cache is required")
	case deps.Profiles == nil:
		return nil, errors.New("profile resolver is required")
	case deps.Gate == nil:
		return nil, errors.New("gate is required")
	case deps.Renderer == nil:
		return nil, errors.New("renderer is required")
	case deps.Activity == nil:
		return nil, errors.New("activity recorder is required")
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.RequestRateLimit <= 0 {
		cfg.RequestRateLimit = defaultRequestLimit
	}
	if cfg.MediaUploadTTL <= 0 {
		cfg.MediaUploadTTL = defaultUploadTTL
	}
	if deps.Media != nil && cfg.MediaBucket == "" {
		return nil, errors.New("media bucket is required when uploads are enabled")
	}

	return &API{
		store:    deps.Store,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		gate:     deps.Gate,
		renderer: deps.Renderer,
		activity: deps.Activity,
		media:    deps.Media,
		bus:      deps.Bus,
		logger:   deps.Logger,
		config:   cfg,
	}, nil
}

// Routes constructs the router serving pages, the JSON API and operational endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.Middleware(serviceName, a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.LimitByIP(a.config.RequestRateLimit, time.Minute))
	r.Use(a.gate.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", render.Static()))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", a.handleAPILogin)
		r.Post("/auth/logout", a.handleAPILogout)
		r.Post("/auth/refresh", a.handleAPIRefresh)
		r.Get("/auth/session", a.handleAPISession)
		r.Post("/register", a.handleRegisterVolunteer)
		r.Post("/users", a.handleRegisterUser)
		r.Get("/ngos", a.handleListNGOs)
		r.Get("/ngos/{id}", a.handleGetNGO)
		r.Get("/ngos/user/{id}", a.handleNGOByUser)
		r.Get("/events", a.handleListEvents)
		r.Get("/events/{id}", a.handleGetEvent)
		r.Get("/volunteer_applications/check", a.handleCheckApplication)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)

			r.Get("/users/{id}", a.handleGetUser)
			r.Patch("/users/{id}", a.handlePatchUser)
			r.Get("/profile/me", a.handleProfileMe)

			r.Post("/ngos", a.handleCreateNGO)
			r.Patch("/ngos/{id}", a.handlePatchNGO)
			r.Delete("/ngos/{id}", a.handleDeleteNGO)

			r.Post("/events", a.handleCreateEvent)
			r.Patch("/events/{id}", a.handlePatchEvent)
			r.Delete("/events/{id}", a.handleDeleteEvent)

			r.Post("/volunteer_applications", a.handleCreateApplication)
			r.Get("/volunteer_applications/mine", a.handleMyApplications)
			r.Get("/volunteer_applications/event/{event_id}", a.handleEventApplications)
			r.Get("/volunteer_applications/{id}", a.handleGetApplication)
			r.Patch("/volunteer_applications/{id}", a.handlePatchApplication)
			r.Delete("/volunteer_applications/{id}", a.handleDeleteApplication)

			r.Post("/volunteer_hours", a.handleLogHours)
			r.Get("/volunteer_hours/mine", a.handleMyHours)
			r.Put("/volunteer_hours/{id}/verify", a.handleVerifyHours)

			r.Post("/uploads", a.handleUpload)

			r.Group(func(r chi.Router) {
				r.Use(a.requireAdmin)
				r.Get("/users", a.handleListUsers)
				r.Delete("/users/{id}", a.handleDeleteUser)
				r.Put("/users/{id}/approve", a.handleApproveUser)
				r.Put("/users/{id}/reject", a.handleRejectUser)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(a.withViewer)

		r.Get("/", a.handleHome)
		r.Get("/events", a.handleEventsPage)
		r.Get("/events/register", a.handleEventRegisterPage)
		r.Post("/events/register", a.handleEventRegisterSubmit)
		r.Get("/events/{id}", a.handleEventPage)
		r.Get("/ngos", a.handleNGOsPage)
		r.Get("/ngos/{id}", a.handleNGOPage)
		r.Get("/about", a.handleStaticPage("about", "About"))
		r.Get("/auth-test", a.handleAuthTestPage)
		r.Get("/login", a.handleLoginPage)
		r.Post("/login", a.handleLoginSubmit)
		r.Get("/register", a.handleRegisterPage)
		r.Post("/register", a.handleRegisterSubmit)
		r.Post("/logout", a.handleLogoutSubmit)
		r.Get("/dashboard", a.handleDashboardPage)
		r.Get("/profile", a.handleProfilePage)
		r.Get("/my-activities", a.handleActivitiesPage)
		r.Get("/settings", a.handleStaticPage("settings", "Settings"))
		r.Get("/pending-approval", a.handleStaticPage("pending", "Pending approval"))
	})

	r.NotFound(a.handleNotFound)

	return r, nil
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("readiness: database unavailable")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if a.bus != nil && !a.bus.Healthy() {
		http.Error(w, "bus unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		respondError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	a.renderError(w, r, http.StatusNotFound, "The page you were looking for does not exist.")
}
