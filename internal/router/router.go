// Package router assembles the HTTP routes and middleware chain.
package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Webhook  *handler.WebhookHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Applied outermost first: RequestID -> Recovery -> Logging -> CORS
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, `{"error":"NOT_FOUND","message":"route not found"}`)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, `{"error":"METHOD_NOT_ALLOWED","message":"method not allowed"}`)
	})

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"healthy"}`)
	})

	// Gateway callbacks carry a signature instead of a user or API key
	r.Post("/api/webhooks/payment", h.Webhook.Handle)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.Product.List)
		r.Get("/{id}", h.Product.GetByID)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserIdentity(logger))

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Get("/count", h.Cart.Count)
			r.Get("/summary", h.Cart.Summary)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{lineId}", h.Cart.SetQuantity)
			r.Delete("/items/{lineId}", h.Cart.RemoveItem)
		})

		r.Post("/api/checkout", h.Checkout.Create)

		r.Route("/api/orders", func(r chi.Router) {
			r.Get("/", h.Order.ListMine)
			r.Get("/session/{sessionId}", h.Order.GetBySession)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))

		r.Get("/orders", h.Order.ListAll)
		r.Get("/orders/stats", h.Order.Stats)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
