package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/middleware"
	"github.com/mmynk/synapso/internal/storage"
)

// RouterOptions holds everything NewRouter wires together.
type RouterOptions struct {
	Store         storage.Store
	Authenticator auth.Authenticator
	Signer        *auth.CookieSigner

	// Throttle limits login attempts per IP and name. Nil disables it.
	Throttle *middleware.LoginThrottle

	// RateLimit limits /api requests per IP. Nil disables it.
	RateLimit *middleware.RateLimitOptions

	// TrustedProxies may set the client address through forwarding
	// headers. Nil trusts nobody.
	TrustedProxies *middleware.TrustedProxies

	Location *time.Location
	Now      func() time.Time

	// StaticPath is the directory of the built frontend. Empty disables static serving.
	StaticPath  string
	CORSOrigins []string
}

// NewRouter builds the HTTP handler of the whole application.
func NewRouter(opts RouterOptions) http.Handler {
	deps := &Deps{
		Store:    opts.Store,
		Location: opts.Location,
		Now:      opts.Now,
	}

	authSvc := NewAuthService(opts.Authenticator, opts.Signer, opts.Throttle)
	userSvc := NewUserService(opts.Store, opts.Authenticator, opts.Signer)
	exerciceSvc := NewExerciceService(deps)
	journalSvc := NewJournalService(deps)
	aphasieSvc := NewAphasieService(deps)
	progressSvc := NewProgressService(deps)
	victorySvc := NewVictoryService(deps)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(opts.TrustedProxies))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthHandler(opts.Store))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(middleware.RateLimit(*opts.RateLimit))
		}
		r.Use(middleware.Session(opts.Store, opts.Signer))
		r.Use(middleware.Logging)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		r.Post("/auth/login", authSvc.Login)
		r.Post("/auth/logout", authSvc.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/auth/me", authSvc.Me)
			r.Patch("/users/me", userSvc.UpdateSettings)
			r.Put("/users/me/password", userSvc.ChangePassword)

			r.Get("/bodyparts", exerciceSvc.ListBodyparts)

			r.Route("/exercices", func(r chi.Router) {
				r.Get("/", exerciceSvc.ListExercices)
				r.Post("/", exerciceSvc.CreateExercice)
				r.Get("/{id}", exerciceSvc.GetExercice)
				r.Patch("/{id}", exerciceSvc.UpdateExercice)
				r.Delete("/{id}", exerciceSvc.DeleteExercice)
				r.Post("/{id}/complete", exerciceSvc.CompleteExercice)
				r.Patch("/{id}/pin", exerciceSvc.PinExercice)
			})

			r.Get("/history", exerciceSvc.ListHistory)
			r.Get("/history/stats", exerciceSvc.HistoryStats)

			r.Route("/journal", func(r chi.Router) {
				r.Get("/notes", journalSvc.ListNotes)
				r.Post("/notes", journalSvc.CreateNote)
				r.Get("/notes/{id}", journalSvc.GetNote)
				r.Patch("/notes/{id}", journalSvc.UpdateNote)
				r.Delete("/notes/{id}", journalSvc.DeleteNote)

				r.Get("/tasks", journalSvc.ListTasks)
				r.Post("/tasks", journalSvc.CreateTask)
				r.Patch("/tasks/{id}", journalSvc.UpdateTask)
				r.Delete("/tasks/{id}", journalSvc.DeleteTask)
			})

			r.Route("/aphasie", func(r chi.Router) {
				r.Get("/items", aphasieSvc.ListItems)
				r.Post("/items", aphasieSvc.CreateItem)
				r.Get("/items/{id}", aphasieSvc.GetItem)
				r.Patch("/items/{id}", aphasieSvc.UpdateItem)
				r.Delete("/items/{id}", aphasieSvc.DeleteItem)

				r.Get("/challenges", aphasieSvc.ListChallenges)
				r.Post("/challenges", aphasieSvc.CreateChallenge)
				r.Patch("/challenges/{id}", aphasieSvc.UpdateChallenge)
				r.Delete("/challenges/{id}", aphasieSvc.DeleteChallenge)
			})

			r.Get("/progress", progressSvc.ListProgress)
			r.Put("/progress/{date}", progressSvc.PutProgress)
			r.Delete("/progress/{date}", progressSvc.DeleteProgress)

			r.Get("/victories", victorySvc.ListVictories)
			r.Post("/victories", victorySvc.CreateVictory)
			r.Patch("/victories/{id}", victorySvc.UpdateVictory)
			r.Delete("/victories/{id}", victorySvc.DeleteVictory)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/users", userSvc.ListUsers)
				r.Post("/users", userSvc.CreateUser)
				r.Delete("/users/{id}", userSvc.DeleteUser)
				r.Put("/users/{id}/password", userSvc.SetPassword)

				r.Post("/admin/impersonate", userSvc.StartImpersonation)
				r.Delete("/admin/impersonate", userSvc.StopImpersonation)
			})
		})
	})

	if opts.StaticPath != "" {
		r.Handle("/*", NewStaticHandler(opts.StaticPath))
	}

	return r
}

func healthHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
