package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/repairdesk-backend/api/controllers"
	"github.com/angelmondragon/repairdesk-backend/api/middleware"
	"github.com/angelmondragon/repairdesk-backend/internal/auth"
	"github.com/angelmondragon/repairdesk-backend/internal/categories"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	products "github.com/angelmondragon/repairdesk-backend/internal/products"
	"github.com/angelmondragon/repairdesk-backend/internal/repairjobs"
	"github.com/angelmondragon/repairdesk-backend/pkg/auth/session"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
)

// Deps bundles everything the router wires into handlers. Redis-backed
// members (RedisPinger, RateLimiter, Sessions) are optional and must be left
// nil, not typed-nil, when redis is not configured.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger
	RateLimiter middleware.RateLimitStore
	Sessions    session.AccessSessionChecker

	Auth       auth.Service
	Categories categories.Service
	Customers  customers.Service
	Products   products.Service
	RepairJobs repairjobs.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.RedisPinger))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, cfg, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.RateLimiter, logg)).Post("/register", controllers.AuthRegister(d.Auth, cfg, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, cfg, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.ListCategories(d.Categories, logg))
				r.Post("/", controllers.CreateCategory(d.Categories, logg))
				r.Get("/{categoryId}", controllers.GetCategory(d.Categories, logg))
				r.Put("/{categoryId}", controllers.UpdateCategory(d.Categories, logg))
				r.Delete("/{categoryId}", controllers.DeleteCategory(d.Categories, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.ListCustomers(d.Customers, logg))
				r.Post("/", controllers.CreateCustomer(d.Customers, logg))
				r.Get("/{customerId}", controllers.GetCustomer(d.Customers, logg))
				r.Put("/{customerId}", controllers.UpdateCustomer(d.Customers, logg))
				r.Delete("/{customerId}", controllers.DeleteCustomer(d.Customers, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(d.Products, logg))
				r.Post("/", controllers.CreateProduct(d.Products, logg))
				r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
				r.Put("/{productId}", controllers.UpdateProduct(d.Products, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(d.Products, logg))
				r.Get("/{productId}/movements", controllers.ListProductMovements(d.Products, logg))
			})

			r.Route("/repair-jobs", func(r chi.Router) {
				r.Get("/", controllers.ListRepairJobs(d.RepairJobs, logg))
				r.Post("/", controllers.CreateRepairJob(d.RepairJobs, logg))
				r.Get("/summary", controllers.RepairJobSummary(d.RepairJobs, logg))
				r.Get("/{jobId}", controllers.GetRepairJob(d.RepairJobs, logg))
				r.Put("/{jobId}", controllers.UpdateRepairJob(d.RepairJobs, logg))
				r.Patch("/{jobId}/status", controllers.UpdateRepairJobStatus(d.RepairJobs, logg))
			})
		})
	})

	return r
}
