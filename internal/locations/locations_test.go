package locations

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
)

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// memSettings is an in-memory Settings.
type memSettings struct {
	locations []string
}

func (s *memSettings) Locations() []string        { return slices.Clone(s.locations) }
func (s *memSettings) SetLocations(locs []string) { s.locations = slices.Clone(locs) }

// brokenRegistry lists a unit it cannot resolve.
type brokenRegistry struct{}

func (brokenRegistry) NamesForMarker(string) []string { return []string{"ghost"} }

func (brokenRegistry) Definition(name string) (container.Definition, error) {
	return nil, container.ErrUnitNotFound
}

type otherMarker struct{}

func (otherMarker) MarkerName() string { return MarkerName }

func register(t *testing.T, c *container.Container, name string, def container.Definition, markers ...string) {
	t.Helper()
	if err := c.Register(name, def, markers...); err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
}

func storeLocations(t *testing.T, store *propstore.Store) []string {
	t.Helper()
	locs, ok := store.Strings(PropertyKey)
	if !ok {
		t.Fatalf("store has no %s", PropertyKey)
	}
	return locs
}

func TestScan(t *testing.T) {
	c := container.New()
	logger := &recordingLogger{}

	register(t, c, "first", Unit("first", "b", "c"))
	register(t, c, "plain", container.Declare("plain"))
	register(t, c, "empty", Unit("empty"))
	register(t, c, "opaque", container.Factory(func(context.Context) (any, error) { return "x", nil }), MarkerName)
	register(t, c, "indexed-without-marker", container.Declare("y"), MarkerName)
	register(t, c, "second", Unit("second", "c", "d"))

	decls, err := Scan(c, logger)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []Declaration{
		{Unit: "first", Locations: []string{"b", "c"}},
		{Unit: "empty", Locations: []string{}},
		{Unit: "indexed-without-marker", Locations: []string{}},
		{Unit: "second", Locations: []string{"c", "d"}},
	}
	if len(decls) != len(want) {
		t.Fatalf("Scan() = %+v, want %+v", decls, want)
	}
	for i := range want {
		if decls[i].Unit != want[i].Unit || !slices.Equal(decls[i].Locations, want[i].Locations) {
			t.Errorf("decls[%d] = %+v, want %+v", i, decls[i], want[i])
		}
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want one skip for the opaque unit", logger.warns)
	}
}

func TestScan_UnrecognisedMarkerSkipped(t *testing.T) {
	c := container.New()
	logger := &recordingLogger{}

	register(t, c, "odd", container.Declare("odd", otherMarker{}))
	register(t, c, "good", Unit("good", "x"))

	decls, err := Scan(c, logger)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(decls) != 1 || decls[0].Unit != "good" {
		t.Errorf("Scan() = %+v, want only good", decls)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %d, want 1", len(logger.warns))
	}
}

func TestScan_UnresolvableUnitIsFatal(t *testing.T) {
	_, err := Scan(brokenRegistry{}, nil)
	if !errors.Is(err, container.ErrUnitNotFound) {
		t.Errorf("Scan() error = %v, want ErrUnitNotFound", err)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     []string
		declared [][]string
		want     []string
	}{
		{
			name:     "overlapping units",
			base:     []string{"a", "b"},
			declared: [][]string{{"b", "c"}, {"c", "d"}},
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name: "nothing declared",
			base: []string{"a"},
			want: []string{"a"},
		},
		{
			name:     "empty base",
			declared: [][]string{{"x", "x", "y"}},
			want:     []string{"x", "y"},
		},
		{
			name:     "placeholders compared raw",
			base:     []string{"classpath:db/sqlite"},
			declared: [][]string{{"classpath:db/{vendor}"}},
			want:     []string{"classpath:db/sqlite", "classpath:db/{vendor}"},
		},
		{
			name:     "base kept verbatim",
			base:     []string{"a", "a"},
			declared: [][]string{{"a", "b"}},
			want:     []string{"a", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.base, tt.declared...); !slices.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := make([]string, 1, 8)
	base[0] = "a"
	declared := []string{"b"}

	merged := Merge(base, declared)
	merged[0] = "changed"

	if base[0] != "a" || declared[0] != "b" {
		t.Errorf("inputs mutated: base=%v declared=%v", base, declared)
	}
	if got := base[:2]; got[1] != "" {
		t.Errorf("Merge wrote into base's spare capacity: %v", got)
	}
}

func TestInjector_AdditionalLocation(t *testing.T) {
	c := container.New()
	register(t, c, "extra", Unit(struct{}{}, "classpath:db/additional-location"))

	settings := &memSettings{locations: []string{"classpath:db/migration"}}
	store := propstore.New(propstore.NewMapSource("application", map[string]any{
		PropertyKey: []string{"classpath:db/migration"},
	}))
	logger := &recordingLogger{}

	injector := NewInjector(settings, store, logger)
	if injector.Applied() {
		t.Fatal("Applied() = true before Apply")
	}

	merged, err := injector.Apply(c)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []string{"classpath:db/migration", "classpath:db/additional-location"}
	if !slices.Equal(merged, want) {
		t.Errorf("Apply() = %v, want %v", merged, want)
	}
	if !slices.Equal(settings.Locations(), want) {
		t.Errorf("settings = %v, want %v", settings.Locations(), want)
	}
	if got := storeLocations(t, store); !slices.Equal(got, want) {
		t.Errorf("store = %v, want %v", got, want)
	}
	if names := store.Names(); names[0] != SourceName {
		t.Errorf("front source = %q, want %q", names[0], SourceName)
	}
	if !injector.Applied() || !slices.Equal(injector.Merged(), want) {
		t.Errorf("Applied() = %v, Merged() = %v", injector.Applied(), injector.Merged())
	}
	if len(logger.infos) != 1 {
		t.Errorf("info logs = %d, want 1 per added location", len(logger.infos))
	}
}

func TestInjector_OverlappingUnits(t *testing.T) {
	c := container.New()
	register(t, c, "unit1", Unit(1, "b", "c"))
	register(t, c, "unit2", Unit(2, "c", "d"))

	settings := &memSettings{locations: []string{"a", "b"}}
	store := propstore.New()

	merged, err := NewInjector(settings, store, nil).Apply(c)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []string{"a", "b", "c", "d"}
	if !slices.Equal(merged, want) {
		t.Errorf("Apply() = %v, want %v", merged, want)
	}
	if got := storeLocations(t, store); !slices.Equal(got, settings.Locations()) {
		t.Errorf("store %v and settings %v disagree", got, settings.Locations())
	}
}

func TestInjector_SkipsOpaqueUnitOnly(t *testing.T) {
	c := container.New()
	register(t, c, "before", Unit(nil, "x"))
	register(t, c, "opaque", container.Factory(func(context.Context) (any, error) { return nil, nil }), MarkerName)
	register(t, c, "after", Unit(nil, "y"))

	settings := &memSettings{}
	logger := &recordingLogger{}

	merged, err := NewInjector(settings, propstore.New(), logger).Apply(c)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if want := []string{"x", "y"}; !slices.Equal(merged, want) {
		t.Errorf("Apply() = %v, want %v", merged, want)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %d, want 1", len(logger.warns))
	}
}

func TestInjector_NoDeclarations(t *testing.T) {
	c := container.New()
	register(t, c, "plain", container.Declare(nil))

	settings := &memSettings{locations: []string{"a"}}
	store := propstore.New()

	merged, err := NewInjector(settings, store, nil).Apply(c)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !slices.Equal(merged, []string{"a"}) {
		t.Errorf("Apply() = %v, want [a]", merged)
	}
	if got := storeLocations(t, store); !slices.Equal(got, []string{"a"}) {
		t.Errorf("store = %v, want [a]", got)
	}
}

func TestInjector_SecondApplyReplacesSource(t *testing.T) {
	c := container.New()
	register(t, c, "u", Unit(nil, "b"))

	settings := &memSettings{locations: []string{"a"}}
	store := propstore.New(propstore.NewMapSource("application", nil))
	injector := NewInjector(settings, store, nil)

	first, err := injector.Apply(c)
	if err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	second, err := injector.Apply(c)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	if !slices.Equal(first, second) {
		t.Errorf("second Apply() = %v, want %v", second, first)
	}
	if names := store.Names(); !slices.Equal(names, []string{SourceName, "application"}) {
		t.Errorf("Names() = %v, want a single injector source at the front", names)
	}
}

func TestInjector_Errors(t *testing.T) {
	if _, err := NewInjector(nil, propstore.New(), nil).Apply(container.New()); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("Apply() without settings error = %v, want ErrMissingCollaborator", err)
	}
	if _, err := NewInjector(&memSettings{}, nil, nil).Apply(container.New()); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("Apply() without store error = %v, want ErrMissingCollaborator", err)
	}

	settings := &memSettings{locations: []string{"a"}}
	store := propstore.New()
	injector := NewInjector(settings, store, nil)
	if _, err := injector.Apply(brokenRegistry{}); !errors.Is(err, container.ErrUnitNotFound) {
		t.Errorf("Apply() error = %v, want ErrUnitNotFound", err)
	}
	if injector.Applied() {
		t.Error("Applied() = true after a failed Apply")
	}
	if _, ok := store.Source(SourceName); ok {
		t.Error("failed Apply published a source")
	}
}

func newRuntime(t *testing.T, enabled bool) (*container.Container, *propstore.Store, *Activation) {
	t.Helper()

	c := container.New()
	store := propstore.New()

	// Registered before the settings processor to prove ordering comes from After.
	activation, err := Register(c, store, nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cfg := config.MigrationsConfig{
		Enabled:   enabled,
		Table:     database.DefaultTable,
		Locations: []string{"classpath:db/migration"},
	}
	if err := database.AutoConfigure(c, cfg, database.NewClasspath()); err != nil {
		t.Fatalf("AutoConfigure() error = %v", err)
	}
	return c, store, activation
}

func TestActivation_RunsAfterSettings(t *testing.T) {
	c, store, activation := newRuntime(t, true)
	register(t, c, "extra", Unit(nil, "classpath:db/additional-location"))

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	want := []string{"classpath:db/migration", "classpath:db/additional-location"}
	settings, err := database.Settings(c)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if !slices.Equal(settings.Locations(), want) {
		t.Errorf("settings = %v, want %v", settings.Locations(), want)
	}
	if got := storeLocations(t, store); !slices.Equal(got, want) {
		t.Errorf("store = %v, want %v", got, want)
	}
	if !activation.Applied() {
		t.Error("Applied() = false")
	}
	if got := c.Processed(); !slices.Equal(got, []string{database.SettingsProcessor, ProcessorName}) {
		t.Errorf("Processed() = %v", got)
	}
}

func TestActivation_DormantWithoutSettings(t *testing.T) {
	c, store, activation := newRuntime(t, false)
	register(t, c, "extra", Unit(nil, "classpath:db/additional-location"))

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, err := database.Settings(c); !errors.Is(err, database.ErrNoSettings) {
		t.Errorf("Settings() error = %v, want ErrNoSettings", err)
	}
	if _, ok := store.Source(SourceName); ok {
		t.Error("dormant injector added a store source")
	}
	if _, ok := store.Lookup(PropertyKey); ok {
		t.Error("store holds migration locations while dormant")
	}
	if activation.Applied() || activation.Injector() != nil {
		t.Error("dormant activation ran")
	}
}

func TestActivation_DormantWithoutAutoConfiguration(t *testing.T) {
	c := container.New()
	store := propstore.New()
	activation, err := Register(c, store, nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	settings, err := database.NewMigrationSettings("", []string{"a"}, nil)
	if err != nil {
		t.Fatalf("NewMigrationSettings() error = %v", err)
	}
	if err := c.Provide(database.SettingsBean, settings); err != nil {
		t.Fatalf("Provide() error = %v", err)
	}
	register(t, c, "extra", Unit(nil, "b"))

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if activation.Applied() {
		t.Error("activation ran without the auto-configuration unit")
	}
	if !slices.Equal(settings.Locations(), []string{"a"}) {
		t.Errorf("settings changed while dormant: %v", settings.Locations())
	}
}
