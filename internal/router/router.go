package router

import (
	"agrovet-pos/internal/handler"
	"agrovet-pos/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	StatusHandler    *handler.StatusHandler
	SalesHandler     *handler.SalesHandler
	ProductsHandler  *handler.ProductsHandler
	CustomersHandler *handler.CustomersHandler
	SyncHandler      *handler.SyncHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.StatusHandler != nil {
			r.Get("/health", cfg.StatusHandler.Health)
			r.Get("/status", cfg.StatusHandler.Status)
		}

		// Per-shop resources
		r.Route("/shops/{shop_id}", func(r chi.Router) {
			if cfg.SalesHandler != nil {
				r.Post("/sales", cfg.SalesHandler.RecordSale)
				r.Get("/sales", cfg.SalesHandler.ListSales)
				r.Get("/sales/pending", cfg.SalesHandler.ListPendingSales)
			}
			if cfg.ProductsHandler != nil {
				r.Post("/products", cfg.ProductsHandler.SaveProduct)
				r.Get("/products", cfg.ProductsHandler.ListProducts)
			}
			if cfg.CustomersHandler != nil {
				r.Post("/customers", cfg.CustomersHandler.SaveCustomer)
				r.Get("/customers", cfg.CustomersHandler.ListCustomers)
			}
		})

		if cfg.ProductsHandler != nil {
			r.Get("/products/{product_id}/stock", cfg.ProductsHandler.GetStock)
		}
		if cfg.CustomersHandler != nil {
			r.Delete("/customers/{customer_id}", cfg.CustomersHandler.DeleteCustomer)
		}

		// Admin endpoints
		if cfg.SyncHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/sync", cfg.SyncHandler.RunSync)
				r.Post("/sync/{kind}/{id}", cfg.SyncHandler.Reconcile)
				r.Delete("/unsynced/{kind}", cfg.SyncHandler.DeleteUnsynced)
				r.Post("/connectivity", cfg.SyncHandler.ForceConnectivity)
				r.Delete("/connectivity", cfg.SyncHandler.ReleaseConnectivity)
			})
		}
	})

	return r
}
