package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/guille1999utp/bemaster-part-2/internal/metrics"
	"github.com/guille1999utp/bemaster-part-2/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers. Limiter,
// Metrics, MetricsHandler and HealthCheck are optional.
type Dependencies struct {
	Users          UserStore
	Tokens         TokenIssuer
	Verifier       middleware.TokenVerifier
	TokenHeader    string
	Videos         VideoManager
	Limiter        middleware.RateLimiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	HealthCheck    HealthHandler
	Logger         zerolog.Logger
	MaxUploadBytes int64
	NowFunc        func() time.Time
	// TrustProxy rewrites RemoteAddr from forwarding headers before logging
	// and rate limiting.
	TrustProxy bool
}

// NewRouter wires every HTTP handler into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	users := UserHandler{Users: deps.Users, Tokens: deps.Tokens, Videos: deps.Videos, NowFunc: deps.NowFunc}
	videos := VideoHandler{Videos: deps.Videos, MaxUploadBytes: deps.MaxUploadBytes}
	authn := middleware.Authenticator{Verifier: deps.Verifier, Header: deps.TokenHeader}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", deps.HealthCheck.Handle)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/user", func(r chi.Router) {
		r.With(middleware.Throttle(deps.Limiter, "register")).Post("/register", users.Register)
		r.With(middleware.Throttle(deps.Limiter, "login")).Post("/login", users.Login)
		r.Get("/nickname/{nickname}", users.Profile)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireUser)
			r.Put("/{id}", users.Update)
			r.Delete("/{id}", users.Delete)
		})
	})

	r.Route("/video", func(r chi.Router) {
		r.Get("/top-rate", videos.TopRated)
		r.Get("/nickname/{nickname}/public", videos.PublicByNickname)
		r.With(authn.OptionalUser).Get("/{id}", videos.Get)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireUser)
			r.Get("/nickname/{nickname}", videos.PrivateByNickname)
			r.Post("/create", videos.Create)
			r.Post("/like/{id}", videos.Like)
			r.Post("/comment/{id}", videos.Comment)
			r.Put("/{id}", videos.Update)
			r.Delete("/{id}", videos.Delete)
		})
	})

	return r
}
