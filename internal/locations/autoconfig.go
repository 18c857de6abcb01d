package locations

import (
	"context"
	"fmt"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
)

// ProcessorName is the container post-processor that runs the injector.
const ProcessorName = "migrations.additional-locations"

// Activation is the container post-processor that applies an Injector.
//
// It runs after database.SettingsProcessor and only when the container
// holds both the migration settings bean and the migration
// auto-configuration unit. Otherwise it stays dormant: no merge happens and
// nothing is added to the store.
type Activation struct {
	store    Store
	logger   Logger
	injector *Injector
}

// Register adds the injector's Activation to c.
//
// Parameters:
//   - c: Container to register with, before Refresh
//   - store: Configuration store the merged list is published to
//   - logger: Receives merge and skip diagnostics (may be nil)
//
// Returns:
//   - *Activation: Handle for inspecting the injector after refresh
//   - error: If the post-processor cannot be added
func Register(c *container.Container, store Store, logger Logger) (*Activation, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	a := &Activation{store: store, logger: logger}
	if err := c.AddPostProcessor(a); err != nil {
		return nil, fmt.Errorf("registering %s: %w", ProcessorName, err)
	}
	return a, nil
}

// Name implements container.PostProcessor.
func (a *Activation) Name() string { return ProcessorName }

// After implements container.PostProcessor.
func (a *Activation) After() []string { return []string{database.SettingsProcessor} }

// Enabled implements container.Conditional.
func (a *Activation) Enabled(c *container.Container) bool {
	return c.Has(database.SettingsBean) && c.Has(database.AutoConfigurationUnit)
}

// PostProcess implements container.PostProcessor.
func (a *Activation) PostProcess(_ context.Context, c *container.Container) error {
	settings, err := database.Settings(c)
	if err != nil {
		return err
	}

	a.injector = NewInjector(settings, a.store, a.logger)
	merged, err := a.injector.Apply(c)
	if err != nil {
		return err
	}

	a.logger.Debug("migration locations resolved", "locations", merged)
	return nil
}

// Injector returns the injector that ran, or nil while dormant.
func (a *Activation) Injector() *Injector {
	return a.injector
}

// Applied reports whether the injector ran.
func (a *Activation) Applied() bool {
	return a.injector != nil && a.injector.Applied()
}
