package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/picplace/internal/adapters/http"
	"github.com/samirrijal/picplace/internal/adapters/location"
	mqttadapter "github.com/samirrijal/picplace/internal/adapters/mqtt"
	natsadapter "github.com/samirrijal/picplace/internal/adapters/nats"
	"github.com/samirrijal/picplace/internal/adapters/postgres"
	"github.com/samirrijal/picplace/internal/adapters/valkey"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/core/usecases"
	"github.com/samirrijal/picplace/internal/pkg/config"
	"github.com/samirrijal/picplace/internal/pkg/logging"
	"github.com/samirrijal/picplace/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("picplace-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer telemetry.ShutdownWithTimeout(shutdown, 5*time.Second)
		}
	}

	// Database holds the place catalog.
	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.PoolOptions{
		MaxConns:         cfg.Database.MaxConns,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache backs the notification surface and the last known location.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// NATS carries events, and device fixes for the nats provider.
	nc, err := natsadapter.Connect(cfg.NATS.URL, "picplace-tracker")
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
	}

	var events *natsadapter.Publisher
	if nc != nil {
		events, err = natsadapter.NewPublisher(nc, natsadapter.Subjects{
			Fix:    cfg.NATS.FixSubject,
			Nearby: cfg.NATS.NearbySubject,
		})
		if err != nil {
			slog.Warn("nats event publisher unavailable", "error", err)
		}
	}

	provider, simulator, closeProvider, err := buildProvider(cfg, nc)
	if err != nil {
		log.Fatalf("location provider: %v", err)
	}
	defer closeProvider()

	gate := location.NewGate(cfg.Tracking.PermissionGranted)
	source := location.NewSource(provider, gate, slog.Default())

	locations := valkey.NewLocationStore(cache)
	var nearby ports.NotificationPublisher
	if events != nil {
		nearby = events
	}
	surface := valkey.NewNotificationSurface(cache, cfg.Valkey.NotificationTTL, nearby, slog.Default())

	tracking := usecases.NewTrackingService(source, cfg.Tracking.Interval, slog.Default())
	tracking.AddPublisher("valkey", locations)
	if events != nil {
		tracking.AddPublisher("nats", events)
	}

	proximity := usecases.NewProximityService(source, postgres.NewPlaceRepo(db), surface, usecases.ProximityConfig{
		Period:          cfg.Proximity.Period,
		ThresholdMeters: cfg.Proximity.ThresholdMeters,
		DedupeKey:       cfg.Proximity.DedupeKey,
	}, slog.Default())

	control := usecases.NewControlService(tracking, proximity, gate, slog.Default())
	defer control.DisableAll()

	if cfg.Tracking.Autostart {
		if err := control.EnableAll(ctx); err != nil {
			slog.Error("autostart failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Control:       control,
		Permissions:   gate,
		Notifications: surface,
		Locations:     locations,
		Simulator:     simulator,
		NearbySubject: cfg.NATS.NearbySubject,
		NATS:          nc,
		DB:            db,
		Cache:         cache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "picplace tracker",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("tracker starting", "addr", addr, "provider", cfg.Tracking.Provider)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, stopping processes...", "signal", sig.String())
	control.DisableAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("tracker stopped")
}

// buildProvider selects the fix provider named by tracking.provider. The
// simulator is returned only for the simulated provider.
func buildProvider(cfg *config.Config, nc *nats.Conn) (location.Provider, *location.SimulatedProvider, func(), error) {
	switch cfg.Tracking.Provider {
	case config.ProviderSimulated:
		sim := location.NewSimulatedProvider(cfg.Simulation.DeviceID, domain.GeoPoint{
			Lat: cfg.Simulation.Lat,
			Lon: cfg.Simulation.Lon,
		})
		return sim, sim, func() {}, nil

	case config.ProviderMQTT:
		// The provider needs the client and the client hooks need the
		// provider, so the hooks read it through an atomic pointer.
		var current atomic.Pointer[mqttadapter.Provider]
		client, err := mqttadapter.Connect(mqttadapter.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			OnConnect: func() {
				if p := current.Load(); p != nil {
					if err := p.Subscribe(); err != nil {
						slog.Error("mqtt resubscribe failed", "error", err)
					}
				}
			},
			OnLost: func(err error) {
				if p := current.Load(); p != nil {
					p.ConnectionLost(err)
				}
			},
		})
		if err != nil {
			return nil, nil, nil, err
		}
		p := mqttadapter.NewProvider(client, cfg.MQTT.Topic, cfg.MQTT.QoS, slog.Default())
		current.Store(p)
		if err := p.Subscribe(); err != nil {
			client.Disconnect(250)
			return nil, nil, nil, err
		}
		return p, nil, func() {
			p.Close()
			client.Disconnect(250)
		}, nil

	default:
		if nc == nil {
			return nil, nil, nil, fmt.Errorf("nats provider requires a NATS connection")
		}
		p, err := natsadapter.NewProvider(nc, cfg.NATS.DeviceSubject, slog.Default())
		if err != nil {
			return nil, nil, nil, err
		}
		return p, nil, p.Close, nil
	}
}
