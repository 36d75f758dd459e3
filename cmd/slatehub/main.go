// SlateHub - e-ink dashboard hub.
//
// Entry point wiring configuration, storage, messaging, the provider
// scheduler and the HTTP API together. Individual subsystems live under
// internal/ and are composed here only.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/slatehub/slate-core/migrations"

	"github.com/slatehub/slate-core/internal/api"
	"github.com/slatehub/slate-core/internal/display"
	"github.com/slatehub/slate-core/internal/framelog"
	"github.com/slatehub/slate-core/internal/hub"
	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/infrastructure/database"
	"github.com/slatehub/slate-core/internal/infrastructure/influxdb"
	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/infrastructure/mqtt"
	"github.com/slatehub/slate-core/internal/scheduler"
	"github.com/slatehub/slate-core/internal/sensor"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", getConfigPath(), "path to config file")
	flag.Parse()

	log := logging.Default()
	log.Info("starting SlateHub", "version", version, "commit", commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", *configPath)

	// Database and migrations.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	frames := framelog.NewSQLiteRepository(db.DB)
	store := sensor.NewStore(db.DB)

	// InfluxDB export is optional.
	var influx *influxdb.Client
	influx, err = influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB export disabled")
		influx = nil
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// MQTT is optional; without it sensor readings arrive over HTTP only.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))

		ingestor := sensor.NewIngestor(store, log)
		if influx != nil {
			ingestor.SetOnReading(func(r *sensor.Reading) {
				influx.WriteSensorReading(r.SensorID, r.TemperatureC, r.Humidity)
			})
		}
		if err := ingestor.Start(mqttClient); err != nil {
			return fmt.Errorf("starting sensor ingest: %w", err)
		}
		log.Info("sensor ingest subscribed")
	} else {
		log.Info("MQTT disabled")
	}

	// Scheduler drives provider refreshes and display rotation.
	sched := scheduler.New(log)
	go sched.Run(ctx)

	transport, err := display.NewFileTransport(cfg.Display.PreviewDir, cfg.Display.Width, cfg.Display.Height)
	if err != nil {
		return fmt.Errorf("creating display transport: %w", err)
	}

	h, err := hub.New(cfg, sched, transport, store, log)
	if err != nil {
		return fmt.Errorf("building hub: %w", err)
	}
	h.Controller().SetFrameLog(frames)
	if influx != nil {
		h.Controller().SetExporter(influx)
		h.SetFetchExporter(influx)
	}

	server := api.New(api.Deps{
		Config:     cfg,
		Hub:        h,
		FrameLog:   frames,
		Logger:     log,
		ConfigPath: *configPath,
	})
	h.SetBroadcaster(newBroadcaster(server.WSHub(), mqttClient, log))

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Live config reload on file change; a broken file is rejected and
	// the running configuration stays active.
	go func() {
		watchErr := config.Watch(ctx, *configPath, func() {
			if reloadErr := h.ReloadFromFile(*configPath); reloadErr != nil {
				log.Warn("config reload rejected", "error", reloadErr)
				return
			}
			log.Info("configuration reloaded", "path", *configPath)
		})
		if watchErr != nil && ctx.Err() == nil {
			log.Warn("config watcher stopped", "error", watchErr)
		}
	}()

	log.Info("initialisation complete")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("shutting down HTTP server", "error", err)
	}

	log.Info("SlateHub stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("SLATEHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// fanoutBroadcaster delivers display events to WebSocket clients and,
// when MQTT is up, mirrors them onto the broker for other consumers.
type fanoutBroadcaster struct {
	ws   *api.WSHub
	mq   *mqtt.Client
	log  *logging.Logger
	qos  byte
	tops mqtt.Topics
}

func newBroadcaster(ws *api.WSHub, mq *mqtt.Client, log *logging.Logger) display.Broadcaster {
	return &fanoutBroadcaster{ws: ws, mq: mq, log: log, qos: 0}
}

func (b *fanoutBroadcaster) Broadcast(channel string, payload any) {
	b.ws.Broadcast(channel, payload)

	if b.mq == nil || channel != "display.updated" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := b.mq.Publish(b.tops.DisplayUpdated(), data, b.qos, false); err != nil {
		b.log.Warn("publishing display event", "error", err)
	}
}
