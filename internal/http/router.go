package http

import (
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/fieldset"
	"github.com/geocoder89/eventform/internal/http/handlers"
	"github.com/geocoder89/eventform/internal/http/middlewares"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps is everything the router wires into handlers.
type Deps struct {
	Config        config.Config
	Events        *repo.EventsRepo
	Registrations *repo.RegistrationsRepo
	Drafts        *fieldset.Drafts
	Exports       handlers.ExportRequester
	Cache         *cache.Cache
	Prom          *observability.Prom
	Gatherer      prometheus.Gatherer
	Ready         map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Cache == nil {
		d.Cache = cache.New(d.Config.EventsCacheTTL)
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("eventform-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	composer := message.Composer{Location: d.Config.Location()}

	eventsHandler := handlers.NewEventsHandler(d.Events, d.Cache, d.Prom)
	registrationHandler := handlers.NewRegistrationHandler(d.Events, d.Registrations, d.Prom)
	adminHandler := handlers.NewAdminEventsHandler(d.Events, d.Registrations, d.Drafts, d.Cache, composer)
	fieldsHandler := handlers.NewFieldsHandler(d.Drafts, d.Cache)

	limit := d.Config.RegisterRateLimit
	if limit <= 0 {
		limit = 20
	}
	submitLimiter := middlewares.NewRateLimiter(limit, time.Minute)

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes), middlewares.RequireJSON())

	// public form
	public := api.Group("/events")
	public.GET("", eventsHandler.ListActive)
	public.GET("/:id", eventsHandler.GetActive)
	public.GET("/:id/form", eventsHandler.FormPlan)
	public.POST("/:id/registrations",
		submitLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		registrationHandler.Register,
	)

	// admin views carry no auth of their own; deploy behind an authenticating proxy
	admin := api.Group("/admin")
	admin.POST("/events", adminHandler.CreateEvent)
	admin.GET("/events", adminHandler.ListEvents)
	admin.GET("/events/:id", adminHandler.GetEvent)
	admin.PATCH("/events/:id", adminHandler.SetActive)
	admin.DELETE("/events/:id", adminHandler.DeleteEvent)
	admin.GET("/events/:id/registrations", adminHandler.ListRegistrations)
	admin.GET("/events/:id/message", adminHandler.Message)

	admin.GET("/events/:id/fields", fieldsHandler.Get)
	admin.POST("/events/:id/fields", fieldsHandler.Add)
	admin.PUT("/events/:id/fields/:index", fieldsHandler.Update)
	admin.DELETE("/events/:id/fields/:index", fieldsHandler.Delete)
	admin.POST("/events/:id/fields/reset", fieldsHandler.Reset)
	admin.POST("/events/:id/fields/save", fieldsHandler.Save)

	if d.Exports != nil {
		exportsHandler := handlers.NewExportsHandler(d.Exports)
		admin.POST("/events/:id/exports", exportsHandler.Enqueue)
		admin.GET("/exports/:jobId", exportsHandler.Status)
	}

	return r
}
