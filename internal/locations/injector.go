package locations

import (
	"errors"
	"slices"

	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
)

// PropertyKey is the configuration key the merged list is published under.
const PropertyKey = "migrations.locations"

// SourceName names the configuration source the injector adds to the store.
const SourceName = "additional-migration-locations"

// ErrMissingCollaborator is returned by Apply when the injector was built
// without a settings object or a store.
var ErrMissingCollaborator = errors.New("locations: injector needs settings and a store")

// Settings is the migration settings surface the injector reads and
// overwrites. *database.MigrationSettings satisfies it.
type Settings interface {
	Locations() []string
	SetLocations(locs []string)
}

// Store is the configuration store surface the injector publishes to.
// *propstore.Store satisfies it.
type Store interface {
	AddFirst(src propstore.Source)
}

// Merge returns base followed by every declared location not already in
// the list built so far, in the order given. Base entries are kept as they
// are. Comparison is exact string equality, so "{vendor}" placeholders are
// compared unexpanded. None of the inputs are modified.
func Merge(base []string, declared ...[]string) []string {
	merged := slices.Clone(base)
	if merged == nil {
		merged = []string{}
	}
	seen := make(map[string]struct{}, len(base))
	for _, loc := range base {
		seen[loc] = struct{}{}
	}

	for _, locs := range declared {
		for _, loc := range locs {
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			merged = append(merged, loc)
		}
	}
	return merged
}

// Injector merges declared additional locations into the migration
// settings and publishes the result to the configuration store.
//
// An Injector performs no locking. It is meant to be applied once, during
// container refresh, before anything reads the settings.
type Injector struct {
	settings Settings
	store    Store
	logger   Logger

	applied bool
	merged  []string
}

// NewInjector creates an injector over settings and store.
func NewInjector(settings Settings, store Store, logger Logger) *Injector {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Injector{settings: settings, store: store, logger: logger}
}

// Apply performs the merge.
//
// It:
//  1. Scans registry for declared additional locations
//  2. Copies the current settings locations into a working list
//  3. Appends each declared location not already in the working list
//  4. Replaces the settings locations with the working list
//  5. Adds a source named SourceName holding PropertyKey at the front of the store
//
// Afterwards the settings and the store report the same ordered list.
// Applying again replaces the earlier store entry rather than adding one.
//
// Parameters:
//   - registry: Container to scan for declarations
//
// Returns:
//   - []string: The merged locations
//   - error: Only for wiring failures (missing collaborators, unresolvable units)
func (i *Injector) Apply(registry Registry) ([]string, error) {
	if i.settings == nil || i.store == nil {
		return nil, ErrMissingCollaborator
	}

	declarations, err := Scan(registry, i.logger)
	if err != nil {
		return nil, err
	}

	working := Merge(i.settings.Locations())
	for _, decl := range declarations {
		before := len(working)
		working = Merge(working, decl.Locations)
		for _, loc := range working[before:] {
			i.logger.Info("adding additional migration location", "location", loc, "unit", decl.Unit)
		}
	}

	i.settings.SetLocations(working)
	i.store.AddFirst(propstore.NewMapSource(SourceName, map[string]any{
		PropertyKey: slices.Clone(working),
	}))

	i.applied = true
	i.merged = slices.Clone(working)
	return slices.Clone(working), nil
}

// Applied reports whether Apply has completed.
func (i *Injector) Applied() bool {
	return i.applied
}

// Merged returns the list produced by the last Apply, or nil before it.
func (i *Injector) Merged() []string {
	return slices.Clone(i.merged)
}
