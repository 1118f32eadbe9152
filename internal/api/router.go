package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/athebyme/catalog-service/internal/api/handlers"
	"github.com/athebyme/catalog-service/internal/api/middleware"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// RouterDeps - зависимости HTTP маршрутизатора
type RouterDeps struct {
	ProductHandler *handlers.ProductHandler
	ImportHandler  *handlers.ImportHandler
	WebhookHandler *handlers.WebhookHandler
	Logger         interfaces.LoggerPort
	CORSOrigins    []string
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Маршруты каталога товаров
		r.Route("/products", func(r chi.Router) {
			r.Get("/", deps.ProductHandler.ListProducts)
			r.Post("/", deps.ProductHandler.CreateProduct)
			r.Post("/bulk-delete", deps.ProductHandler.BulkDeleteProducts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.ProductHandler.GetProduct)
				r.Put("/", deps.ProductHandler.UpdateProduct)
				r.Delete("/", deps.ProductHandler.DeleteProduct)
			})

			// Пакетный импорт каталога
			r.Post("/import", deps.ImportHandler.UploadCSV)
			r.Get("/import/{task_id}/status", deps.ImportHandler.GetImportStatus)
		})

		// Маршруты подписок на события
		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", deps.WebhookHandler.ListWebhooks)
			r.Post("/", deps.WebhookHandler.CreateWebhook)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.WebhookHandler.GetWebhook)
				r.Put("/", deps.WebhookHandler.UpdateWebhook)
				r.Delete("/", deps.WebhookHandler.DeleteWebhook)
				r.Post("/test", deps.WebhookHandler.TestWebhook)
			})
		})
	})

	return r
}
