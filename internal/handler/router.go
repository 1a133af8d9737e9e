package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/activity"
	"github.com/Shivanand-hulikatti/eventportal/internal/identity"
)

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Events   *EventHandler
	Account  *AccountHandler
	Admin    *AdminHandler
	Sessions *identity.Sessions
	Activity activity.Emitter
	Logger   *zap.Logger

	CookieName  string
	CORSOrigins []string
	AdminToken  string
	WebDir      string
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(SessionLoader(cfg.Sessions, cfg.CookieName))

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", cfg.Events.ListEvents)
			r.Get("/{id}", cfg.Events.GetEvent)
			r.With(RequireUser).Post("/{id}/register", cfg.Events.Register)
			r.With(RequireAdmin(cfg.AdminToken)).Get("/{id}/registrations", cfg.Events.ListRegistrations)
		})

		r.Route("/auth/session", func(r chi.Router) {
			r.Post("/", cfg.Account.SignIn)
			r.Get("/", cfg.Account.Session)
			r.Delete("/", cfg.Account.SignOut)
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/", cfg.Account.Me)
			r.Patch("/preferences", cfg.Account.UpdatePreferences)
			r.Post("/skills", cfg.Account.AddSkill)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(cfg.AdminToken))
			r.Post("/sync", cfg.Admin.Sync)
			r.Post("/events/{id}/complete", cfg.Admin.Complete)
		})
	})

	if cfg.WebDir != "" {
		r.Handle("/*", pageViews(cfg.Activity, http.FileServer(http.Dir(cfg.WebDir))))
	}
	return r
}

// pageViews records a page_view activity for every page (not asset) served.
func pageViews(emitter activity.Emitter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && isPage(r.URL.Path) {
			emitter.Emit(activity.New(activity.PageView, userID(r), "", map[string]any{
				"path": r.URL.Path,
			}))
		}
		next.ServeHTTP(w, r)
	})
}

func isPage(p string) bool {
	if strings.HasSuffix(p, "/") {
		return true
	}
	ext := path.Ext(p)
	return ext == "" || ext == ".html"
}
