package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/notice-client/internal/api"
	"github.com/nerrad567/notice-client/internal/app"
	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
	"github.com/nerrad567/notice-client/internal/infrastructure/database"
	"github.com/nerrad567/notice-client/internal/infrastructure/influxdb"
	"github.com/nerrad567/notice-client/internal/infrastructure/logging"
	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
	"github.com/nerrad567/notice-client/internal/notice"
	"github.com/nerrad567/notice-client/internal/notify"
	"github.com/nerrad567/notice-client/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notification daemon",
	Long: `Run the notification daemon.

The daemon loads the saved client record, optionally connects to the broker
straight away, and serves the HTTP command API with its WebSocket event
stream until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), configPath)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// run assembles the daemon and blocks until ctx is cancelled.
//
// Components are started in dependency order and the deferred closes run in
// reverse: API, connection manager, exec hooks, InfluxDB, history.
func run(ctx context.Context, path string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting noticed",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	history, err := openHistory(ctx, cfg, log.With("component", "history"))
	if err != nil {
		return fmt.Errorf("opening message history: %w", err)
	}
	defer func() {
		log.Info("closing message history")
		if closeErr := history.Close(); closeErr != nil {
			log.Error("error closing message history", "error", closeErr)
		}
	}()
	log.Info("message history ready", "backend", cfg.Storage.HistoryBackend)

	configs := store.NewConfigStore(cfg.Storage.Dir, log.With("component", "store"))
	log.Info("client record location", "path", configs.Path())

	// WebSocket hub: the primary event sink.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	sinks := []notice.Emitter{hub}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, log.With("component", "influxdb"))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			stats := influxClient.Stats()
			log.Info("closing InfluxDB connection",
				"points", stats.Points,
				"write_errors", stats.WriteErrors,
			)
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		settings := influxClient.Settings()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
			"source", settings.Source,
			"batch_size", settings.BatchSize,
			"flush_interval", settings.FlushInterval,
		)
		sinks = append(sinks, influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	emitter := notice.Emitters(sinks...)

	dispatcher, hook, err := buildDispatcher(cfg, emitter, history, influxClient, log)
	if err != nil {
		return err
	}
	if hook != nil {
		defer func() {
			log.Info("waiting for exec hooks")
			hook.Wait()
		}()
	}

	tlsCfg, err := mqtt.LoadTLSConfig(cfg.MQTT.TLS.CAFile, cfg.MQTT.TLS.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("loading MQTT TLS settings: %w", err)
	}

	manager := connection.New(configs.Load(),
		connection.WithEmitter(emitter),
		connection.WithDispatcher(dispatcher),
		connection.WithTLSConfig(tlsCfg),
		connection.WithLogger(log.With("component", "connection")),
	)
	defer func() {
		log.Info("closing broker connection")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing broker connection", "error", closeErr)
		}
	}()

	svc := app.New(configs, history, manager, log.With("component", "service"))
	defer svc.Wait()

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.With("component", "api"),
			Service:  svc,
			Hub:      hub,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "address", server.Addr())
	} else {
		log.Info("API server disabled")
	}

	if cfg.MQTT.AutoConnect {
		// A bad address is not fatal: the user fixes it through the API.
		if err := svc.Connect(ctx); err != nil {
			log.Warn("auto-connect failed", "error", err)
		}
	}

	if err := healthCheck(ctx, history, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// openHistory opens the configured message history backend.
func openHistory(ctx context.Context, cfg *config.Config, log *logging.Logger) (store.History, error) {
	if cfg.Storage.HistoryBackend != "sqlite" {
		return store.NewJSONHistory(cfg.Storage.Dir, log), nil
	}

	h, err := store.OpenSQLiteHistory(ctx, database.Config{
		Path:        cfg.Storage.Database.Path,
		WALMode:     cfg.Storage.Database.WALMode,
		BusyTimeout: cfg.Storage.Database.BusyTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// buildDispatcher wires the notifier and observers selected in the
// notifications section. The returned hook is nil when no exec command is set.
func buildDispatcher(
	cfg *config.Config,
	emitter notice.Emitter,
	history store.History,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*notice.Dispatcher, *notify.Command, error) {
	opts := []notice.DispatcherOption{
		notice.WithDefaultTitle(cfg.Notifications.DefaultTitle),
		notice.WithLogger(log.With("component", "dispatcher")),
	}

	if cfg.Notifications.Desktop {
		opts = append(opts, notice.WithNotifier(notify.NewRateLimited(
			notify.NewDesktop(""),
			cfg.Notifications.MaxPerMinute,
			cfg.Notifications.Burst,
			log.With("component", "notify"),
		)))
	}

	if cfg.Notifications.RecordHistory {
		opts = append(opts, notice.WithObservers(store.NewRecorder(history, log.With("component", "recorder"))))
	}

	var hook *notify.Command
	if cfg.Notifications.Exec != "" {
		var err error
		hook, err = notify.NewCommand(cfg.Notifications.Exec, cfg.GetExecTimeout(), log.With("component", "exec"))
		if err != nil {
			return nil, nil, fmt.Errorf("notifications.exec: %w", err)
		}
		opts = append(opts, notice.WithObservers(hook))
		log.Info("exec hook enabled", "command", hook.Args()[0])
	}

	if influxClient != nil {
		opts = append(opts, notice.WithObservers(influxClient))
	}

	return notice.NewDispatcher(emitter, opts...), hook, nil
}

// healthCheck verifies the storage and telemetry connections.
func healthCheck(ctx context.Context, history store.History, influxClient *influxdb.Client) error {
	if h, ok := history.(*store.SQLiteHistory); ok {
		if err := h.DB().HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
