package routes

import (
	"net/http"
	"time"

	"servicefinder/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the conversation endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chat")
	{
		api.POST("/message", hb.ChatMessageHandler)
		api.POST("/quick-reply", hb.ChatQuickReplyHandler)
		api.POST("/location", hb.ChatLocationHandler)
		api.POST("/load-more", hb.ChatLoadMoreHandler)
		api.POST("/voice", hb.ChatVoiceHandler)
		api.DELETE("/:conversationID", hb.ChatResetHandler)
		api.GET("/:conversationID/turns", hb.ChatTranscriptHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	h := hb.HealthHandler
	if h == nil {
		h = func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	}
	r.GET("/health", h)
}

// RegisterMetricsRoute exposes Prometheus metrics when a handler is configured.
func RegisterMetricsRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.MetricsHandler != nil {
		r.GET("/metrics", hb.MetricsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterHealthRoute(r, hb)
	RegisterMetricsRoute(r, hb)
}
