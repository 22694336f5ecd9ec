package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/eventpix/internal/api/handlers"
	"github.com/your-org/eventpix/internal/api/ws"
	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/queue"
	"github.com/your-org/eventpix/internal/recognition"
	"github.com/your-org/eventpix/internal/storage"
)

type RouterConfig struct {
	AdminKey      string
	DB            *storage.PostgresStore
	MinIO         *storage.MinIOStore
	Producer      *queue.Producer
	Hub           *ws.Hub
	Recognizer    *recognition.Orchestrator
	MaxUploadSize int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	eventH := handlers.NewEventHandler(cfg.DB)
	photoH := handlers.NewPhotoHandler(cfg.DB, cfg.MinIO, cfg.Producer, cfg.MaxUploadSize)
	recognitionH := handlers.NewRecognitionHandler(cfg.Recognizer, cfg.MaxUploadSize)

	v1 := r.Group("/v1")

	// WebSocket for organizer dashboards
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Admin: event management and photo uploads
	admin := v1.Group("")
	admin.Use(auth.AdminKeyMiddleware(cfg.AdminKey))
	admin.POST("/events", eventH.Create)
	admin.GET("/events", eventH.List)
	admin.POST("/events/:id/photos", photoH.Upload)
	admin.DELETE("/photos/:id", photoH.Delete)

	// Attendees: PIN-gated access to a single event
	event := v1.Group("")
	event.Use(auth.EventPINMiddleware(cfg.DB))
	event.GET("/events/:id", eventH.Get)
	event.GET("/events/:id/photos", photoH.List)
	event.POST("/events/:id/face-recognition", recognitionH.Recognize)
	event.GET("/events/:id/history", handlers.NewHistoryHandler(cfg.DB).List)

	// Photo routes check the PIN themselves (no event id in the path)
	v1.GET("/photos/:id", photoH.Get)
	v1.GET("/photos/:id/content", photoH.Content)

	return r
}
