package api

import (
	"net/http"

	"pocketbook-server/src/config"
	"pocketbook-server/src/db"
	"pocketbook-server/src/handlers"
	"pocketbook-server/src/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// badRequest answers unsupported methods with an empty 400.
func badRequest(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusBadRequest)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

func NewRouter(store db.Store, cache *db.UserCache, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.DemoModeMiddleware(cfg.DemoMode))

	r.MethodNotAllowed(badRequest)
	r.NotFound(notFound)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tokens := handlers.TokenIssuer{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL}
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handlers.Register(store, tokens))
		r.Post("/login", handlers.Login(store, cache, tokens))
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(store, cache, cfg.JWTSecret))
			r.Get("/me", handlers.Me())
			r.Delete("/me", handlers.DeleteUser(store, cache))
			r.Post("/change-password", handlers.ChangePassword(store, cache))
		})
	})

	r.Group(func(r chi.Router) {
		if cfg.AuthRequired {
			r.Use(middleware.JWTAuthMiddleware(store, cache, cfg.JWTSecret))
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", handlers.CreateTransaction(store))
			r.Get("/", handlers.ListTransactions(store, cfg.PageSize))

			r.Get("/{id:[0-9]+}", handlers.GetTransaction(store))
			r.Put("/{id:[0-9]+}", handlers.UpdateTransaction(store, false))
			r.Patch("/{id:[0-9]+}", handlers.UpdateTransaction(store, true))
			r.Delete("/{id:[0-9]+}", handlers.DeleteTransaction(store))
		})

		r.Route("/summary", func(r chi.Router) {
			r.Get("/", handlers.GetSummary(store))
			r.Get("/statement", handlers.GetStatement(store))
		})
	})

	return r
}
