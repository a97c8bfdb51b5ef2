package handler

import (
	"time"

	"quotedesk/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the quoting API onto a gin engine. The caller picks the
// gin mode.
func NewRouter(cfg *config.Config, h *QuoteHandler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	router.POST("/chat", h.Chat)
	router.POST("/pricing", h.Pricing)
	router.POST("/create-order", h.CreateOrder)

	conversations := router.Group("/conversations")
	{
		conversations.GET("", h.ListConversations)
		conversations.GET("/:conversation_id", h.GetConversation)
		conversations.DELETE("/:conversation_id", h.DeleteConversation)
	}

	router.GET("/orders/:order_id", h.GetOrder)

	router.GET("/products", h.ListProducts)
	router.GET("/products/:feature_id", h.GetProduct)

	return router
}
