package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/schema-locations/internal/audit"
	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/infrastructure/influxdb"
	"github.com/nerrad567/schema-locations/internal/infrastructure/logging"
	"github.com/nerrad567/schema-locations/internal/infrastructure/mqtt"
	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
	"github.com/nerrad567/schema-locations/internal/locations"
	"github.com/nerrad567/schema-locations/migrations"
)

// Configuration store source names.
const (
	// ApplicationSource holds the loaded configuration.
	ApplicationSource = "application"

	// DefaultsSource holds the built-in defaults, consulted last.
	DefaultsSource = "defaults"
)

// UnitRegistrar registers extra configuration units before the container
// is refreshed. Units that declare additional migration locations use
// locations.Unit.
type UnitRegistrar func(c *container.Container, classpath *database.Classpath) error

// Options tunes Bootstrap.
type Options struct {
	// Version is reported in logs and events.
	Version string

	// Classpath resolves classpath: locations. DefaultClasspath when nil.
	Classpath *database.Classpath

	// Units are registered after the built-in audit unit.
	Units []UnitRegistrar

	// SkipAudit leaves the audit unit out of the container.
	SkipAudit bool
}

// Bootstrap builds a Runtime from cfg.
//
// It performs the following steps:
//  1. Registers the application scripts on the classpath
//  2. Builds the configuration store (application, then defaults)
//  3. Registers the migration auto-configuration, the audit unit, extra units
//     and the additional-location injector
//  4. Refreshes the container, which resolves the migration settings and
//     merges every declared location into them
//  5. Opens the database and, when enabled, the MQTT and InfluxDB clients
//
// MQTT and InfluxDB failures are logged and leave that sink off.
//
// Returns:
//   - *Runtime: Ready runtime; call Close when done
//   - error: If the container cannot be refreshed or the database cannot be opened
func Bootstrap(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: configuration is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	classpath := opts.Classpath
	if classpath == nil {
		classpath = database.DefaultClasspath
	}

	migrations.Register(classpath)

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	c := container.New()
	c.SetLogger(logger)

	if err := database.AutoConfigure(c, cfg.Migrations, classpath); err != nil {
		return nil, err
	}
	if !opts.SkipAudit {
		if err := audit.Register(c, classpath); err != nil {
			return nil, err
		}
	}
	for _, register := range opts.Units {
		if err := register(c, classpath); err != nil {
			return nil, fmt.Errorf("registering unit: %w", err)
		}
	}

	activation, err := locations.Register(c, store, logger)
	if err != nil {
		return nil, err
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refreshing container: %w", err)
	}

	rt := &Runtime{
		cfg:        cfg,
		logger:     logger,
		version:    opts.Version,
		container:  c,
		store:      store,
		activation: activation,
	}

	if settings, err := database.Settings(c); err == nil {
		rt.settings = settings
		logger.Info("migration locations resolved",
			"locations", settings.Locations(),
			"injected", activation.Applied(),
		)
	} else {
		logger.Info("migrations disabled")
	}

	db, err := database.Open(database.Config{
		Driver:      cfg.Database.Driver,
		Path:        cfg.Database.Path,
		DSN:         cfg.Database.DSN,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetLogger(logger)
	rt.db = db
	if !opts.SkipAudit {
		rt.audit = audit.NewSQLRepository(db)
	}
	logger.Info("database connected", "vendor", db.Vendor())

	rt.connectMQTT()
	rt.connectInfluxDB()

	return rt, nil
}

// newStore builds the configuration store: the loaded configuration first,
// the built-in defaults last.
func newStore(cfg *config.Config) (*propstore.Store, error) {
	application, err := propstore.ConfigSource(ApplicationSource, cfg)
	if err != nil {
		return nil, fmt.Errorf("building %s source: %w", ApplicationSource, err)
	}
	defaults, err := propstore.ConfigSource(DefaultsSource, config.Default())
	if err != nil {
		return nil, fmt.Errorf("building %s source: %w", DefaultsSource, err)
	}
	return propstore.New(application, defaults), nil
}

// connectMQTT connects the optional MQTT client.
func (rt *Runtime) connectMQTT() {
	if !rt.cfg.MQTT.Enabled {
		rt.logger.Info("MQTT disabled")
		return
	}

	client, err := mqtt.Connect(rt.cfg.MQTT)
	if err != nil {
		rt.logger.Warn("MQTT unavailable, migration events will not be published", "error", err)
		return
	}
	client.SetLogger(rt.logger)
	client.SetOnConnect(func() {
		rt.logger.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		rt.logger.Warn("MQTT disconnected", "error", err)
	})
	rt.mqtt = client

	rt.logger.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", rt.cfg.MQTT.Broker.Host, rt.cfg.MQTT.Broker.Port),
		"client_id", rt.cfg.MQTT.Broker.ClientID,
	)
}

// connectInfluxDB connects the optional InfluxDB client.
func (rt *Runtime) connectInfluxDB() {
	if !rt.cfg.InfluxDB.Enabled {
		rt.logger.Info("InfluxDB disabled")
		return
	}

	client, err := influxdb.Connect(rt.cfg.InfluxDB)
	if err != nil {
		rt.logger.Warn("InfluxDB unavailable, run metrics will not be written", "error", err)
		return
	}
	client.SetOnError(func(err error) {
		rt.logger.Error("InfluxDB write error", "error", err)
	})
	rt.influx = client

	rt.logger.Info("InfluxDB connected",
		"url", rt.cfg.InfluxDB.URL,
		"org", rt.cfg.InfluxDB.Org,
		"bucket", rt.cfg.InfluxDB.Bucket,
	)
}
