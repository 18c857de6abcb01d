package database

import (
	"context"
	"fmt"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
)

// Container names owned by the migration auto-configuration.
const (
	// AutoConfigurationUnit is the unit registered when migrations are enabled.
	AutoConfigurationUnit = "migrations.autoconfiguration"

	// SettingsBean is the bean holding the *MigrationSettings.
	SettingsBean = "migrations.settings"

	// SettingsProcessor is the post-processor that provides SettingsBean.
	// Processors that adjust the settings declare it in their After list.
	SettingsProcessor = "migrations.settings"
)

// AutoConfiguration is the value of the AutoConfigurationUnit.
type AutoConfiguration struct {
	Config    config.MigrationsConfig
	Classpath *Classpath
}

// AutoConfigure wires the migration settings into c.
//
// When cfg.Enabled is false nothing is registered, so no settings bean
// exists and processors conditional on it stay dormant. Otherwise the
// AutoConfigurationUnit is registered, and the SettingsProcessor builds a
// *MigrationSettings from cfg during refresh and provides it as SettingsBean.
//
// Parameters:
//   - c: Container to register into
//   - cfg: Migrations section of the configuration
//   - classpath: Registry for classpath: locations (DefaultClasspath when nil)
//
// Returns:
//   - error: If registration fails
func AutoConfigure(c *container.Container, cfg config.MigrationsConfig, classpath *Classpath) error {
	if !cfg.Enabled {
		return nil
	}
	if classpath == nil {
		classpath = DefaultClasspath
	}

	unit := &AutoConfiguration{Config: cfg, Classpath: classpath}
	if err := c.Register(AutoConfigurationUnit, container.Declare(unit)); err != nil {
		return fmt.Errorf("registering migration auto-configuration: %w", err)
	}

	return c.AddPostProcessor(container.NewPostProcessor(SettingsProcessor, nil,
		func(_ context.Context, c *container.Container) error {
			settings, err := NewMigrationSettings(cfg.Table, cfg.Locations, classpath)
			if err != nil {
				return err
			}
			return c.Provide(SettingsBean, settings)
		},
	))
}

// Settings returns the migration settings held by c.
//
// Returns:
//   - *MigrationSettings: The settings bean
//   - error: ErrNoSettings when migrations are disabled or c has not been refreshed
func Settings(c *container.Container) (*MigrationSettings, error) {
	settings, err := container.Lookup[*MigrationSettings](c, SettingsBean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSettings, err)
	}
	return settings, nil
}
