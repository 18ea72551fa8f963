package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "solar_controller/docs"
	"solar_controller/internal/config"
	"solar_controller/internal/logger"
	"solar_controller/internal/service"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	cfg      config.HTTPConfig
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, cfg config.HTTPConfig, log *logger.Logger) *Handler {
	return &Handler{services: services, cfg: cfg, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
//
// @title        Solar controller API
// @version      1.0
// @description  Channel reads, relay and PWM commands, link status and the event log of the solar rig bridge.
// @BasePath     /
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/status", h.status)
	router.GET("/", h.snapshot)
	router.GET("/logs", h.getLogs)
	router.GET("/ws", h.wsConnect)

	h.registerChannelRoutes(router)
	return router
}

func (h *Handler) registerChannelRoutes(r *gin.Engine) {
	r.GET("/temperature", h.getTemperatures)
	r.GET("/temperature/:name", h.getTemperatures)
	r.GET("/relay", h.getRelays)
	r.GET("/relay/:name", h.getRelays)
	r.GET("/pwm", h.getPWMs)
	r.GET("/pwm/:name", h.getPWMs)
	r.GET("/analog", h.getAnalogs)
	r.GET("/analog/:name", h.getAnalogs)

	// writes go through the access policy
	write := r.Group("/", h.postGuard)
	{
		// Body: true | false
		write.POST("/relay/:name", h.setRelay)
		// Body: a number, percent
		write.POST("/pwm/:name", h.setPWM)
	}
}
