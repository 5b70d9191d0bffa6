package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/location-tracker/internal/config"
	"github.com/jengzang/location-tracker/internal/handler"
	"github.com/jengzang/location-tracker/internal/middleware"
	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/internal/provider"
	"github.com/jengzang/location-tracker/internal/service"
	"github.com/jengzang/location-tracker/internal/tracker"
	"github.com/jengzang/location-tracker/pkg/response"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Config  *config.Config
	Tracker *tracker.Tracker
	Center  *notification.Center
	Push    *provider.Push // nil unless the push provider is selected
	Tracks  *service.TrackService // nil without a database
	Limiter *middleware.RateLimiter
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	trackerHandler := handler.NewTrackerHandler(deps.Tracker, deps.Center, deps.Config.Tracking)
	notificationHandler := handler.NewNotificationHandler(deps.Center, handler.TestNotificationDelay)
	healthHandler := handler.NewHealthHandler(deps.Tracker, deps.Config.Provider)

	// 健康检查
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(deps.Config.JWTSecret)
	limit := middleware.RateLimit(deps.Limiter)

	api := r.Group("/api/v1", auth)
	{
		// 追踪器接口
		trackerGroup := api.Group("/tracker")
		{
			trackerGroup.GET("", trackerHandler.GetState)
			trackerGroup.GET("/history", trackerHandler.GetHistory)
			trackerGroup.GET("/stream", trackerHandler.Stream)
			trackerGroup.POST("/initialize", limit, trackerHandler.Initialize)
			trackerGroup.POST("/reinitialize", limit, trackerHandler.Reinitialize)
			trackerGroup.POST("/start", limit, trackerHandler.Start)
			trackerGroup.POST("/stop", limit, trackerHandler.Stop)
		}

		// 设备推送接口
		providerGroup := api.Group("/provider")
		if deps.Push != nil {
			var recorder handler.TrackRecorder
			if deps.Tracks != nil {
				recorder = deps.Tracks
			}
			providerHandler := handler.NewProviderHandler(deps.Push, recorder)
			providerGroup.POST("/samples", providerHandler.PostSamples)
			providerGroup.GET("/stream", providerHandler.Stream)
			providerGroup.POST("/permission", providerHandler.SetPermission)
		} else {
			providerGroup.Any("/*path", func(c *gin.Context) {
				response.NotFound(c, "Push provider is not enabled")
			})
		}

		// 轨迹相关接口
		if deps.Tracks != nil {
			trackHandler := handler.NewTrackHandler(deps.Tracks)
			api.GET("/tracks", trackHandler.GetTrackPoints)
		}

		// 通知接口
		notifications := api.Group("/notifications")
		{
			notifications.POST("/register", notificationHandler.Register)
			notifications.POST("/test", limit, notificationHandler.SendTest)
		}
	}

	return r
}
