package api

import (
	"net/http"

	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/pkg/models"

	"github.com/gin-gonic/gin"
)

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Store     *store.FlowStore
	Events    Broadcaster
	UploadDir string
	// WebSocket serves /ws when set.
	WebSocket http.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(cors())

	flowHandler := NewFlowHandler(cfg.Store, cfg.Events)
	referenceHandler := NewReferenceHandler(cfg.Store)
	uploadHandler := NewUploadHandler(cfg.Store, cfg.UploadDir)

	if cfg.WebSocket != nil {
		r.GET("/ws", gin.WrapF(cfg.WebSocket))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/flows", flowHandler.GetFlows)
		apiGroup.POST("/flows", flowHandler.SaveFlow)
		apiGroup.GET("/flows/:id", flowHandler.GetFlow)
		apiGroup.DELETE("/flows/:id", flowHandler.DeleteFlow)
		apiGroup.POST("/flows/:id/toggle", flowHandler.ToggleFlow)

		// Reference lists
		for entity, path := range models.ReferencePaths {
			apiGroup.GET("/"+path, referenceHandler.List(entity))
		}
		apiGroup.POST("/references", referenceHandler.Create)
		apiGroup.DELETE("/references/:id", referenceHandler.Delete)

		apiGroup.POST("/uploads", uploadHandler.Upload)
		apiGroup.GET("/uploads/:token", uploadHandler.Download)
	}
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
