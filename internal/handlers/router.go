package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	mw "timemachine/internal/middleware"
	"timemachine/internal/repository"
	"timemachine/internal/services"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	DB          *sqlx.DB
	Users       repository.UserRepository
	Entries     EntryCommands
	Encryption  *services.EncryptionService
	JWTSecret   []byte
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", Health(d.DB))

	authHandler := NewAuthHandler(d.Users, d.JWTSecret, d.Logger)
	userHandler := NewUserHandler(d.Users, d.Encryption, d.Logger)
	entryHandler := NewEntryHandler(d.Entries, d.Logger)
	dashboardHandler := NewDashboardHandler(d.DB, d.Logger)
	summaryHandler := NewSummaryHandler(d.DB, d.Logger)
	adminHandler := NewAdminHandler(d.DB, d.Users, d.Logger)
	authMW := mw.NewAuthMiddleware(d.JWTSecret)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/me", userHandler.GetMe)
			pr.Put("/me", userHandler.UpdateMe)
			pr.Put("/me/credentials", userHandler.UpdateCredentials)

			pr.Route("/entries", func(er chi.Router) {
				er.Get("/", entryHandler.List)
				er.Post("/", entryHandler.Create)
				er.Get("/{id}", entryHandler.Get)
				er.Delete("/{id}", entryHandler.Delete)
				er.Post("/{id}/sync", entryHandler.Sync)
			})

			pr.Post("/jira-entries", entryHandler.CreateJiraEntry)
			pr.Put("/jira-entries/{id}", entryHandler.UpdateJiraEntry)
			pr.Delete("/jira-entries/{id}", entryHandler.DeleteJiraEntry)

			pr.Put("/rise-entries", entryHandler.SaveRiseEntry)
			pr.Delete("/rise-entries/{id}", entryHandler.DeleteRiseEntry)

			pr.Get("/rise/assignments", entryHandler.Assignments)

			pr.Get("/dashboard", dashboardHandler.Get)
			pr.Get("/summary", summaryHandler.GetSummary)
			pr.Get("/admin/overview", adminHandler.Overview)
		})
	})

	return r
}

// Health reports whether the database answers a ping.
func Health(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
