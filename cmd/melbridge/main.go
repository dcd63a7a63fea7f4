// MELCloud Bridge
//
// This is the main entry point of the bridge. It logs in to one or more
// MELCloud accounts, polls every discovered air conditioner, heat pump and
// ventilation unit on a shared cadence, translates the vendor state into
// home-hub zones and relays it over MQTT, a REST/WebSocket API and an
// optional InfluxDB sink.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/peterbourgon/ff/v3"

	"github.com/nerrad567/melcloud-bridge/internal/api"
	"github.com/nerrad567/melcloud-bridge/internal/bridge"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/config"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/database"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/metrics"
	"github.com/nerrad567/melcloud-bridge/internal/mqttrelay"
	"github.com/nerrad567/melcloud-bridge/internal/snapshot"
	"github.com/nerrad567/melcloud-bridge/internal/telemetry"
	"github.com/nerrad567/melcloud-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "MELBRIDGE"
)

// options are the command line flags. Each can also be set through the
// environment, e.g. MELBRIDGE_CONFIG.
type options struct {
	configPath  string
	printToken  string
	showVersion bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("melbridge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "path to the YAML configuration file")
	fs.StringVar(&opts.printToken, "print-token", "", "print an API bearer token for the given subject and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		return options{}, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "melbridge %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()
	log.Debug("loading configuration", "path", opts.configPath)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.printToken != "" {
		token, tokenErr := api.IssueToken(cfg.API.Auth.JWTSecret, opts.printToken, cfg.GetTokenTTL())
		if tokenErr != nil {
			return fmt.Errorf("issuing token: %w", tokenErr)
		}
		fmt.Fprintln(stdout, token)
		return nil
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Best-effort flush on exit
	log.Info("starting MELCloud bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
		"accounts", len(cfg.Accounts),
	)
	log.Debug("configuration loaded", "path", opts.configPath, "config", cfg.Redacted())

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	m := metrics.New()

	store, err := buildStore(cfg.Snapshots, db, log, m)
	if err != nil {
		return fmt.Errorf("creating snapshot store: %w", err)
	}

	bus := events.NewBus()
	defer bus.Close()

	br, err := bridge.New(bridge.Options{
		Accounts: cfg.Accounts,
		BaseURL:  cfg.MELCloud.BaseURL,
		Client:   melcloud.NewClient(cfg.MELCloud.BaseURL, cfg.MELCloud.AppVersion),
		Store:    store,
		Events:   bus,
		Observer: m,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if gaugeErr := registerGauges(m, br, bus); gaugeErr != nil {
		return fmt.Errorf("registering gauges: %w", gaugeErr)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	var wg sync.WaitGroup

	mqttClient, err := startMQTT(runCtx, &wg, cfg, br, bus, m, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient, err := startTelemetry(runCtx, &wg, cfg, bus, m, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Bridge:   br,
			Devices:  br.Registry(),
			Commands: br.Encoder(),
			Bus:      bus,
			Observer: m,
			Version:  version,
		}
		if cfg.Metrics.Enabled {
			deps.Metrics = m.Handler()
			deps.MetricsPath = cfg.Metrics.Path
		}
		srv, srvErr := api.New(deps)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(runCtx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	}

	// Relays and sinks stop before the clients they write to are closed.
	defer func() {
		stop()
		wg.Wait()
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete")

	if err := br.Run(runCtx); err != nil && runCtx.Err() == nil {
		return fmt.Errorf("running bridge: %w", err)
	}

	log.Info("MELCloud bridge stopped")
	return nil
}

// registerGauges exposes registry and bus sizes read at scrape time.
func registerGauges(m *metrics.Metrics, br *bridge.Bridge, bus *events.Bus) error {
	if err := m.RegisterGaugeFunc("registry_devices", "Devices currently held in the registry.", func() float64 {
		return float64(br.Registry().Count())
	}); err != nil {
		return err
	}
	if err := m.RegisterGaugeFunc("bus_subscribers", "Active event bus subscriptions.", func() float64 {
		return float64(bus.SubscriberCount())
	}); err != nil {
		return err
	}
	return m.RegisterGaugeFunc("bus_dropped_events", "Events dropped because a subscriber buffer was full.", func() float64 {
		return float64(bus.Dropped())
	})
}

// buildStore returns the SQLite snapshot store, mirrored to S3 when
// configured.
func buildStore(cfg config.SnapshotConfig, db *database.DB, log *logging.Logger, m *metrics.Metrics) (snapshot.Store, error) {
	primary := snapshot.NewSQLiteStore(db)
	if !cfg.S3.Enabled {
		return primary, nil
	}

	mirror, err := snapshot.NewS3Store(snapshot.S3Config{
		Endpoint:      cfg.S3.Endpoint,
		Bucket:        cfg.S3.Bucket,
		Prefix:        cfg.S3.Prefix,
		Region:        cfg.S3.Region,
		AccessKeyFile: cfg.S3.AccessKeyFile,
		SecretKeyFile: cfg.S3.SecretKeyFile,
	})
	if err != nil {
		return nil, err
	}
	log.Info("snapshot mirror enabled", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)

	store := snapshot.NewMirrored(primary, mirror, log)
	store.OnMirrorError = m.ObserveMirrorError
	return store, nil
}

// startMQTT connects to the broker and runs the relay. It returns a nil
// client when MQTT is disabled.
func startMQTT(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, br *bridge.Bridge, bus *events.Bus, m *metrics.Metrics, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", client.ClientID(),
		"prefix", cfg.MQTT.Prefix,
	)

	relay := mqttrelay.New(mqttrelay.Config{
		Broker:   client,
		Bus:      bus,
		Devices:  br.Registry(),
		Commands: br.Encoder(),
		Observer: m,
		Logger:   log,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if runErr := relay.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("MQTT relay stopped", "error", runErr)
		}
	}()
	return client, nil
}

// startTelemetry connects to InfluxDB and runs the sink. It returns a nil
// client when InfluxDB is disabled.
func startTelemetry(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, bus *events.Bus, m *metrics.Metrics, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)

	sink := telemetry.NewSink(bus, client, m)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sink.Run(ctx)
	}()
	return client, nil
}

// healthCheck verifies the infrastructure connections. Nil clients are
// disabled and skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
