package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcenter/config"
	"medcenter/internal/domain"
	"medcenter/internal/service"
	"medcenter/internal/transport/websocket"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	services *service.Services
	logger   *zap.Logger
	config   *config.Config
	visitHub *websocket.VisitHub
}

func NewHandler(services *service.Services, logger *zap.Logger, config *config.Config, visitHub *websocket.VisitHub) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
		config:   config,
		visitHub: visitHub,
	}
}

func (h *Handler) InitRoutes(router *gin.Engine) {
	router.Use(h.loggerMiddleware())

	router.Use(h.errorMiddleware())

	router.Use(h.corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.config.Version})
	})

	router.NoRoute(func(c *gin.Context) {
		notFoundResponse(c, "маршрут не найден")
	})

	staff := []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleReceptionist}

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.login)
			auth.POST("/refresh", h.refreshTokens)
			auth.POST("/logout", h.logout)
		}

		users := api.Group("/users", h.authMiddleware())
		{
			users.GET("/me", h.getCurrentUser)

			admin := users.Group("", h.roleMiddleware(domain.UserRoleAdmin))
			{
				admin.POST("", h.createUser)
				admin.GET("", h.getUsers)
			}
		}

		patients := api.Group("/patients", h.authMiddleware())
		{
			patients.POST("", h.createPatient)
			patients.GET("", h.roleMiddleware(staff...), h.getPatients)
			patients.GET("/me", h.getMyPatientProfile)
			patients.GET("/:id", h.getPatientByID)
			patients.PUT("/:id", h.updatePatient)
		}

		doctors := api.Group("/doctors")
		{
			doctors.GET("", h.getDoctors)
			doctors.GET("/:id", h.getDoctorByID)
			doctors.GET("/:id/ratings", h.getDoctorRatings)
			doctors.GET("/:id/can-rate", h.authMiddleware(), h.canRateDoctor)

			admin := doctors.Group("", h.authMiddleware(), h.roleMiddleware(domain.UserRoleAdmin))
			{
				admin.POST("", h.createDoctor)
				admin.POST("/:id/photo", h.uploadDoctorPhoto)
				admin.POST("/:id/specializations/:specId", h.addDoctorSpecialization)
				admin.DELETE("/:id/specializations/:specId", h.removeDoctorSpecialization)
			}
		}

		specializations := api.Group("/specializations")
		{
			specializations.GET("", h.getSpecializations)
			specializations.GET("/:id", h.getSpecializationByID)
			specializations.GET("/:id/doctors", h.getSpecializationDoctors)

			admin := specializations.Group("", h.authMiddleware(), h.roleMiddleware(domain.UserRoleAdmin))
			{
				admin.POST("", h.createSpecialization)
				admin.DELETE("/:id", h.deleteSpecialization)
			}
		}

		visits := api.Group("/visits", h.authMiddleware())
		{
			visits.POST("", h.bookingRateLimitMiddleware(h.config.RateLimit.BookingPerMinute, h.config.RateLimit.BookingBurst), h.createVisit)
			visits.GET("", h.getVisits)
			visits.GET("/limit", h.getVisitLimit)
			visits.GET("/:id", h.getVisitByID)
			visits.POST("/:id/cancel", h.cancelVisit)

			visits.POST("/:id/summary", h.attachSummary)
			visits.PUT("/:id/summary", h.updateSummary)
			visits.GET("/:id/summary", h.getSummary)
		}

		files := api.Group("/files", h.authMiddleware())
		{
			files.GET("/:id", h.getFileURL)
		}

		ratings := api.Group("/ratings", h.authMiddleware())
		{
			ratings.PUT("", h.rateDoctor)
			ratings.DELETE("/:id", h.deleteRating)
		}

		if h.visitHub != nil {
			api.GET("/ws/visits", h.visitHub.Handler(h.services.Auth))
		}
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequestResponse(c, "неверный формат ID")
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset query parameters and returns them with
// the 1-based page number.
func pagination(c *gin.Context) (limit, offset, page int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset, offset/limit + 1
}

func optionalInt64Query(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный параметр "+name)
		return nil, false
	}
	return &v, true
}

func optionalStringQuery(c *gin.Context, name string) *string {
	if raw := c.Query(name); raw != "" {
		return &raw
	}
	return nil
}
