package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	announcementsapp "callboard/internal/announcements/application"
	announcementsevents "callboard/internal/announcements/application/events"
	announcements "callboard/internal/announcements/domain"
	announcementsmemory "callboard/internal/announcements/infrastructure/memory"
	announcementspostgres "callboard/internal/announcements/infrastructure/postgres"
	announcementshttp "callboard/internal/announcements/interfaces/http"
	apihttp "callboard/internal/api/http"
	"callboard/internal/audit"
	"callboard/internal/auth"
	callstateapp "callboard/internal/callstate/application"
	callevents "callboard/internal/callstate/application/events"
	callstate "callboard/internal/callstate/domain"
	callstatememory "callboard/internal/callstate/infrastructure/memory"
	callstatepostgres "callboard/internal/callstate/infrastructure/postgres"
	callstatehttp "callboard/internal/callstate/interfaces/http"
	"callboard/internal/config"
	devicesapp "callboard/internal/devices/application"
	devicesevents "callboard/internal/devices/application/events"
	devices "callboard/internal/devices/domain"
	devicesmemory "callboard/internal/devices/infrastructure/memory"
	devicespostgres "callboard/internal/devices/infrastructure/postgres"
	deviceshttp "callboard/internal/devices/interfaces/http"
	"callboard/internal/eventing"
	"callboard/internal/observability/metrics"
	"callboard/internal/stream"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		logger.Fatalf("tuning config error: %v", err)
	}

	metrics.Init()
	bus := eventing.NewInMemoryBus()

	var (
		db               *sql.DB
		callRepo         callstate.Repository
		deviceRepo       devices.Repository
		announcementRepo announcements.Repository
		auditLogger      audit.Logger
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}

		callPG := callstatepostgres.NewRepository(db, callstatepostgres.WithCapacity(tuning.HistoryCapacity))
		devicePG := devicespostgres.NewRepository(db)
		announcementPG := announcementspostgres.NewRepository(db)
		auditRepo := audit.NewRepository(db)
		ctx := context.Background()
		for _, migrate := range []func(context.Context) error{
			callPG.Migrate, devicePG.Migrate, announcementPG.Migrate, auditRepo.Migrate,
		} {
			if err := migrate(ctx); err != nil {
				logger.Fatalf("migrate error: %v", err)
			}
		}
		callRepo = callPG
		deviceRepo = devicePG
		announcementRepo = announcementPG
		auditLogger = auditRepo
		logger.Printf("storage: postgres")
	} else {
		callRepo = callstatememory.NewRepository(tuning.HistoryCapacity)
		deviceRepo = devicesmemory.NewRepository()
		announcementRepo = announcementsmemory.NewRepository()
		logger.Printf("storage: in-memory")
	}

	callService, err := callstateapp.NewService(callRepo, bus, systemClock{}, logger)
	if err != nil {
		logger.Fatalf("callstate service error: %v", err)
	}
	registry, err := devicesapp.NewRegistry(deviceRepo, bus, systemClock{}, logger)
	if err != nil {
		logger.Fatalf("device registry error: %v", err)
	}
	announcementService, err := announcementsapp.NewService(announcementRepo, bus, systemClock{}, logger)
	if err != nil {
		logger.Fatalf("announcements service error: %v", err)
	}

	broker := stream.NewBroker(registry, logger, stream.WithBufferSize(tuning.StreamBuffer))

	eventing.Subscribe(bus, func(ctx context.Context, event callevents.CallChanged) error {
		broker.Publish(ctx, "nouveau-message", event.State)
		return nil
	})
	eventing.Subscribe(bus, func(ctx context.Context, event announcementsevents.AnnouncementsChanged) error {
		broker.Publish(ctx, "annonces", event.Announcements)
		return nil
	})
	eventing.Subscribe(bus, func(ctx context.Context, event devicesevents.DeviceConnected) error {
		logger.Printf("device connected: id=%s name=%s", event.DeviceID, event.Name)
		broker.Publish(ctx, "devices", map[string]string{"device_id": event.DeviceID, "name": event.Name, "status": "connected"})
		return nil
	})
	eventing.Subscribe(bus, func(ctx context.Context, event devicesevents.DeviceDisconnected) error {
		logger.Printf("device disconnected: id=%s name=%s", event.DeviceID, event.Name)
		broker.Publish(ctx, "devices", map[string]string{"device_id": event.DeviceID, "name": event.Name, "status": "disconnected"})
		return nil
	})
	eventing.Subscribe(bus, func(ctx context.Context, event devicesevents.DeviceDeleted) error {
		broker.DropDevice(ctx, event.DeviceID)
		return nil
	})

	streamHandler := stream.NewHandler(broker, registry, logger, stream.WithHeartbeatInterval(tuning.Heartbeat.Std()))
	nextHandler, err := callstatehttp.NewNextHandler(callService, registry)
	if err != nil {
		logger.Fatalf("next handler error: %v", err)
	}
	callHandler, err := callstatehttp.NewHandler(callService, auditLogger,
		callstatehttp.WithDefaultHistoryLimit(tuning.DefaultHistoryLimit))
	if err != nil {
		logger.Fatalf("callstate handler error: %v", err)
	}
	exportHandler, err := callstatehttp.NewExportHandler(callService)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	deviceHandler, err := deviceshttp.NewHandler(registry, auditLogger)
	if err != nil {
		logger.Fatalf("devices handler error: %v", err)
	}
	announcementHandler, err := announcementshttp.NewHandler(announcementService, auditLogger)
	if err != nil {
		logger.Fatalf("announcements handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/events", "/next"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/events", streamHandler)
	mux.Handle("/next", nextHandler)
	mux.Handle("/api/v1/state", callHandler)
	mux.Handle("/api/v1/state/call", callHandler)
	mux.Handle("/api/v1/state/reset", callHandler)
	mux.Handle("/api/v1/history", callHandler)
	mux.Handle("/api/v1/stats", callHandler)
	mux.Handle("/api/v1/desks/close", callHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	mux.Handle("/api/v1/devices", deviceHandler)
	mux.Handle("/api/v1/devices/", deviceHandler)
	mux.Handle("/api/v1/annonces", announcementHandler)
	mux.Handle("/api/v1/annonces/", announcementHandler)
	mux.Handle("/api/v1/machine-ip", apihttp.NewMachineIPHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type mainConfig struct {
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	TuningFile  string
}

func loadConfig() mainConfig {
	cfg := mainConfig{
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TuningFile:  getenvDefault("TUNING_FILE", ""),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		elapsed := time.Since(start)
		metrics.ObserveHTTP(r.Method, strconv.Itoa(resp.status), elapsed)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, elapsed)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped writer so SSE streaming works through
// the logging middleware.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
