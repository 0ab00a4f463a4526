// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/koyomart/autoorder-go/internal/api/handlers"
	"github.com/koyomart/autoorder-go/internal/api/middleware"
	"github.com/koyomart/autoorder-go/internal/service"
)

type Services struct {
	OrderService       *service.OrderService
	CalibrationService *service.CalibrationService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.OrderService != nil {
			orderHandler := handlers.NewOrderHandler(services.OrderService)
			orderGroup := apiGroup.Group("/orders")
			{
				orderGroup.GET("/stores", orderHandler.GetStores)
				orderGroup.GET("/exports", orderHandler.GetExports)
				orderGroup.GET("/stores/:store/proposals", orderHandler.GetProposals)
				orderGroup.GET("/stores/:store/report", orderHandler.GetReport)
				orderGroup.GET("/stores/:store/exclusions", orderHandler.GetExclusions)
				orderGroup.POST("/stores/:store/run", orderHandler.RunStore)
			}
		}

		if services.CalibrationService != nil {
			calHandler := handlers.NewCalibrationHandler(services.CalibrationService)
			calGroup := apiGroup.Group("/calibration")
			{
				calGroup.GET("/stores/:store", calHandler.GetCurrent)
				calGroup.GET("/stores/:store/history", calHandler.GetHistory)
				calGroup.GET("/divergence", calHandler.GetDivergence)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
