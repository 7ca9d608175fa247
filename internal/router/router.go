package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/generation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/rebalance"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TripHandler           *trip.HandlerImpl
	GenerationHandler     *generation.HandlerImpl
	RebalanceHandler      *rebalance.HandlerImpl
	RecommendationHandler *recommendation.HandlerImpl
	// AuthenticateMiddleware puts the caller's user id on the request context.
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request id, logging, recoverer) are applied by the caller.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", cfg.TripHandler.CreateTrip)
			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", cfg.TripHandler.GetTrip)
				r.Post("/generate", cfg.GenerationHandler.StartGeneration)
				r.Post("/regenerate", cfg.GenerationHandler.Regenerate)
				r.Post("/rebalance", cfg.RebalanceHandler.Rebalance)
				r.Patch("/activities/{activityID}", cfg.TripHandler.UpdateActivity)
				r.Delete("/activities/{activityID}", cfg.TripHandler.RemoveActivity)
			})
		})

		r.Post("/cities/{cityID}/recommendations", cfg.RecommendationHandler.GetRecommendations)
	})

	return r
}
