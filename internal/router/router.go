package router

import (
	"net/http"
	"time"

	"bistro/internal/handler"
	"bistro/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Health *handler.HealthHandler
	Menu   *handler.MenuHandler
	Order  *handler.OrderHandler
	Cart   *handler.CartHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	APIKey         string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if opts.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.APIKeyHeader, handler.SessionHeader},
		ExposedHeaders:   []string{handler.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint (no authentication required)
	r.Get("/health", h.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.Menu.ListCategories)
		r.Get("/dishes", h.Menu.ListDishes)
		r.Get("/dishes/{id}", h.Menu.GetDish)
		r.Get("/menu", h.Menu.Menu)

		r.Post("/order", h.Order.Submit)
		r.Post("/orders/{id}/photos", h.Order.AttachPhoto)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{dishId}", h.Cart.UpdateItem)
			r.Delete("/items/{dishId}", h.Cart.RemoveItem)
			r.Post("/checkout", h.Cart.Checkout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

			r.Get("/orders", h.Order.List)
			r.Get("/orders/{id}", h.Order.GetByID)

			r.Post("/categories", h.Menu.CreateCategory)
			r.Delete("/categories/{id}", h.Menu.DeleteCategory)

			r.Post("/dishes", h.Menu.CreateDish)
			r.Delete("/dishes/{id}", h.Menu.DeleteDish)

			r.Post("/images", h.Menu.UploadImage)
			r.Get("/storage", h.Menu.StorageStatus)
		})
	})

	return r
}
