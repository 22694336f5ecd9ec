package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/eventpix/internal/api"
	"github.com/your-org/eventpix/internal/api/ws"
	"github.com/your-org/eventpix/internal/config"
	"github.com/your-org/eventpix/internal/match"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/observability"
	"github.com/your-org/eventpix/internal/queue"
	"github.com/your-org/eventpix/internal/recognition"
	"github.com/your-org/eventpix/internal/storage"
	"github.com/your-org/eventpix/internal/vision"
	"github.com/your-org/eventpix/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting eventpix API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub for organizer dashboards
	hub := ws.NewHub()
	go hub.Run()

	// Broadcast worker results to connected dashboards
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeProcessed(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var evt models.PhotoProcessed
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return err
		}

		hub.BroadcastMessage(&dto.WSMessage{
			Type:      "photo_processed",
			EventID:   evt.EventID,
			PhotoID:   evt.PhotoID,
			FaceCount: evt.FaceCount,
			Error:     evt.Error,
		})
		return nil
	})
	if err != nil {
		slog.Warn("start processed-event consumer", "error", err)
	}

	// ONNX Runtime powers the synchronous selfie endpoint. Models load
	// lazily on the first recognition request.
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	extractor := vision.NewExtractor(cfg.Vision)
	defer extractor.Close()

	engine, err := match.New(cfg.Match)
	if err != nil {
		slog.Error("create match engine", "error", err)
		os.Exit(1)
	}

	orchestrator := recognition.NewOrchestrator(extractor, db, db, engine, cfg.Match.HistoryConcurrency)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		AdminKey:      cfg.Server.AdminAPIKey,
		DB:            db,
		MinIO:         minioStore,
		Producer:      producer,
		Hub:           hub,
		Recognizer:    orchestrator,
		MaxUploadSize: cfg.Upload.MaxSizeBytes,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
