package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomhive/allotment-backend/api/controllers"
	"github.com/roomhive/allotment-backend/api/middleware"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/analytics"
	"github.com/roomhive/allotment-backend/internal/changelog"
	"github.com/roomhive/allotment-backend/internal/channelsync"
	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/internal/rules"
	"github.com/roomhive/allotment-backend/pkg/config"
	"github.com/roomhive/allotment-backend/pkg/db"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	allotmentService allotment.Service,
	reservationService reservation.Service,
	ruleService rules.Service,
	analyticsService analytics.Service,
	logRepo changelog.Repository,
	exporter changelog.Exporter,
	webhookService *channelsync.WebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	allocationPolicy := middleware.NewRateLimitPolicy("allocation", cfg.RateLimit.Window, cfg.RateLimit.AllocationPerIP)
	bookingPolicy := middleware.NewRateLimitPolicy("booking", cfg.RateLimit.Window, cfg.RateLimit.BookingPerIP)
	analyticsPolicy := middleware.NewRateLimitPolicy("analytics", cfg.RateLimit.Window, cfg.RateLimit.AnalyticsPerIP)
	webhookPolicy := middleware.NewSourceRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookPerSource)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, redisClient, logg)).
			Post("/channel-updates", controllers.ChannelUpdates(webhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/hotels/{hotelId}", func(r chi.Router) {
			r.Use(middleware.RequireHotelAccess(logg, func(r *http.Request) string {
				return chi.URLParam(r, "hotelId")
			}))

			r.With(middleware.RateLimit(allocationPolicy, redisClient, logg)).
				Post("/allotments", controllers.AllotmentCreate(allotmentService, logg))
			r.Get("/allotments", controllers.AllotmentList(allotmentService, logg))
			r.Get("/allotments/range", controllers.AllotmentRange(allotmentService, logg))
			r.Get("/room-types/{roomTypeId}/allotment", controllers.AllotmentByRoomType(allotmentService, logg))
			r.Get("/room-types/{roomTypeId}/availability", controllers.Availability(allotmentService, logg))
		})

		r.Route("/allotments/{configId}", func(r chi.Router) {
			r.Get("/", controllers.AllotmentGet(allotmentService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(allocationPolicy, redisClient, logg))
				r.Patch("/", controllers.AllotmentUpdate(allotmentService, logg))
				r.Delete("/", controllers.AllotmentDelete(allotmentService, logg))
				r.Put("/channels/{channelId}", controllers.ChannelAllotmentUpdate(allotmentService, logg))
				r.Post("/rules/{ruleId}/apply", controllers.RuleApply(ruleService, allotmentService, logg))
				r.Post("/optimize", controllers.RuleOptimize(ruleService, allotmentService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(bookingPolicy, redisClient, logg))
				r.Post("/reservations", controllers.Reserve(reservationService, allotmentService, logg))
				r.Post("/releases", controllers.Release(reservationService, allotmentService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(analyticsPolicy, redisClient, logg))
				r.Post("/analytics/recalculate", controllers.AnalyticsRecalculate(analyticsService, allotmentService, logg))
				r.Get("/analytics", controllers.AnalyticsFetch(analyticsService, allotmentService, logg))
				r.Get("/recommendations", controllers.RecommendationList(analyticsService, allotmentService, logg))
			})

			r.Get("/change-log", controllers.ChangeLogList(logRepo, allotmentService, logg))
			r.Get("/change-log/export", controllers.ChangeLogExport(exporter, allotmentService, logg))
			r.Get("/export", controllers.ConfigExport(exporter, allotmentService, logg))
		})
	})

	return r
}
