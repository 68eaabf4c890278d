package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserService
	DB             Pinger
	Logger         *slog.Logger
	LoginLimiter   middleware.RateLimiter
	TrustProxy     bool
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	UploadDir      string
	MaxUploadBytes int64
	// MediaDir, when set, is served under /media for the local media backend.
	MediaDir string
}

// NewRouter wires HTTP handlers into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{Users: deps.Users}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(deps.Logger, deps.TrustProxy))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler)
	}

	r.NotFound(handle(func(http.ResponseWriter, *http.Request) error {
		return apierror.NotFound("Route not found")
	}))
	r.MethodNotAllowed(handle(func(http.ResponseWriter, *http.Request) error {
		return &apierror.Error{Kind: apierror.KindValidation, StatusCode: http.StatusMethodNotAllowed, Message: "Method not allowed"}
	}))

	r.Get("/healthz", health.Handle)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaDir))))
	}

	avatarUpload := middleware.Uploads(deps.UploadDir, deps.MaxUploadBytes, middleware.UploadField{Name: fieldAvatar, MaxCount: 1})
	coverUpload := middleware.Uploads(deps.UploadDir, deps.MaxUploadBytes, middleware.UploadField{Name: fieldCoverImage, MaxCount: 1})
	registerUpload := middleware.Uploads(deps.UploadDir, deps.MaxUploadBytes,
		middleware.UploadField{Name: fieldAvatar, MaxCount: 1},
		middleware.UploadField{Name: fieldCoverImage, MaxCount: 1},
	)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(registerUpload).Post("/register", handle(users.Register))
		r.With(middleware.LimitByIP(deps.LoginLimiter, "login", deps.TrustProxy)).Post("/login", handle(users.Login))
		r.Post("/refresh-token", handle(users.RefreshToken))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(deps.Users))

			r.Post("/logout", handle(users.Logout))
			r.Post("/change-password", handle(users.ChangePassword))
			r.Get("/current-user", handle(users.CurrentUser))
			r.Post("/current-user", handle(users.CurrentUser))
			r.Patch("/update-account", handle(users.UpdateAccount))
			r.With(avatarUpload).Patch("/avatar", handle(users.UpdateAvatar))
			r.With(coverUpload).Patch("/cover-image", handle(users.UpdateCoverImage))
			r.Get("/c/{username}", handle(users.ChannelProfile))
			r.Post("/c/{username}/subscription", handle(users.Subscribe))
			r.Delete("/c/{username}/subscription", handle(users.Unsubscribe))
			r.Get("/c/{username}/playlists", handle(users.ChannelPlaylists))
			r.Post("/playlists", handle(users.CreatePlaylist))
			r.Get("/history", handle(users.WatchHistory))
			r.Post("/history/{videoID}", handle(users.AddToWatchHistory))
		})
	})

	return r
}
