package propstore

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
)

func TestStore_LookupPrecedence(t *testing.T) {
	store := New(
		NewMapSource("first", map[string]any{"a": "1"}),
		NewMapSource("second", map[string]any{"a": "2", "b": "2"}),
	)

	if v, ok := store.String("a"); !ok || v != "1" {
		t.Errorf("String(a) = %q, %v; want \"1\", true", v, ok)
	}
	if v, ok := store.String("b"); !ok || v != "2" {
		t.Errorf("String(b) = %q, %v; want \"2\", true", v, ok)
	}
	if _, ok := store.Lookup("missing"); ok {
		t.Error("Lookup(missing) found a value")
	}
}

func TestStore_AddFirstReplacesByName(t *testing.T) {
	store := New(NewMapSource("app", map[string]any{"k": "app"}))

	store.AddFirst(NewMapSource("override", map[string]any{"k": "v1"}))
	store.AddFirst(NewMapSource("override", map[string]any{"k": "v2"}))

	if got, want := store.Names(), []string{"override", "app"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if v, _ := store.String("k"); v != "v2" {
		t.Errorf("String(k) = %q, want %q", v, "v2")
	}
}

func TestStore_AddFirstMovesExistingToFront(t *testing.T) {
	store := New(
		NewMapSource("a", nil),
		NewMapSource("b", nil),
		NewMapSource("c", nil),
	)
	store.AddFirst(NewMapSource("c", nil))

	if got, want := store.Names(), []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestStore_AddLastAndRemove(t *testing.T) {
	store := New(NewMapSource("a", map[string]any{"k": "a"}))
	store.AddLast(NewMapSource("defaults", map[string]any{"k": "d", "only": "d"}))

	if v, _ := store.String("k"); v != "a" {
		t.Errorf("String(k) = %q, want %q", v, "a")
	}
	if !store.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if store.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if v, _ := store.String("k"); v != "d" {
		t.Errorf("String(k) after remove = %q, want %q", v, "d")
	}
	if _, ok := store.Source("defaults"); !ok {
		t.Error("Source(defaults) not found")
	}
}

func TestStore_Strings(t *testing.T) {
	store := New(NewMapSource("s", map[string]any{
		"typed":  []string{"a", "b"},
		"loose":  []any{"a", "b"},
		"joined": "a, b ,",
		"number": 7,
	}))

	want := []string{"a", "b"}
	for _, key := range []string{"typed", "loose", "joined"} {
		got, ok := store.Strings(key)
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("Strings(%s) = %v, %v; want %v", key, got, ok, want)
		}
	}
	if _, ok := store.Strings("number"); ok {
		t.Error("Strings(number) should not convert a scalar")
	}
	if v, _ := store.String("typed"); v != "a,b" {
		t.Errorf("String(typed) = %q, want %q", v, "a,b")
	}
}

func TestMapSource_CopiesInput(t *testing.T) {
	locs := []string{"a"}
	props := map[string]any{"k": locs}
	src := NewMapSource("s", props)

	locs[0] = "mutated"
	props["extra"] = "x"

	v, _ := src.Property("k")
	if got := v.([]string); got[0] != "a" {
		t.Errorf("Property(k) = %v, source observed caller mutation", got)
	}
	if _, ok := src.Property("extra"); ok {
		t.Error("source observed a key added after construction")
	}

	v.([]string)[0] = "changed"
	again, _ := src.Property("k")
	if again.([]string)[0] != "a" {
		t.Error("Property returned a shared slice")
	}
}

func TestConfigSource_Flattens(t *testing.T) {
	type migrations struct {
		Enabled   bool     `yaml:"enabled"`
		Locations []string `yaml:"locations"`
	}
	type cfg struct {
		Name       string     `yaml:"name"`
		Migrations migrations `yaml:"migrations"`
	}

	src, err := ConfigSource("application", cfg{
		Name:       "x",
		Migrations: migrations{Enabled: true, Locations: []string{"classpath:db/migration"}},
	})
	if err != nil {
		t.Fatalf("ConfigSource() error = %v", err)
	}

	wantKeys := []string{"migrations.enabled", "migrations.locations", "name"}
	if got := src.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("Keys() = %v, want %v", got, wantKeys)
	}

	store := New(src)
	locs, ok := store.Strings("migrations.locations")
	if !ok || !reflect.DeepEqual(locs, []string{"classpath:db/migration"}) {
		t.Errorf("Strings(migrations.locations) = %v, %v", locs, ok)
	}
	if v, _ := store.String("migrations.enabled"); v != "true" {
		t.Errorf("String(migrations.enabled) = %q, want %q", v, "true")
	}
}

func TestStore_Trace(t *testing.T) {
	store := New(
		NewMapSource("injected", map[string]any{"k": "front"}),
		NewMapSource("application", map[string]any{"k": "back", "other": 1}),
		NewMapSource("defaults", map[string]any{}),
	)

	trace := store.Trace("k")
	if !trace.Resolved() {
		t.Fatal("Resolved() = false, want true")
	}
	if len(trace.Sources) != 3 {
		t.Fatalf("len(Sources) = %d, want 3", len(trace.Sources))
	}
	if !trace.Sources[0].Effective || trace.Sources[0].Value != "front" {
		t.Errorf("Sources[0] = %+v, want effective front value", trace.Sources[0])
	}
	if trace.Sources[1].Effective || !trace.Sources[1].Found {
		t.Errorf("Sources[1] = %+v, want found but shadowed", trace.Sources[1])
	}
	if trace.Sources[2].Found {
		t.Errorf("Sources[2] = %+v, want not found", trace.Sources[2])
	}

	data, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	var decoded Trace
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding trace: %v", err)
	}
	if decoded.Key != "k" || len(decoded.Sources) != 3 {
		t.Errorf("decoded trace = %+v", decoded)
	}

	if store.Trace("missing").Resolved() {
		t.Error("Trace(missing).Resolved() = true, want false")
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := New(NewMapSource("app", map[string]any{"k": "v"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Lookup("k")
				store.Trace("k")
			}
		}()
	}
	store.AddFirst(NewMapSource("front", map[string]any{"k": "f"}))
	wg.Wait()

	if v, _ := store.String("k"); v != "f" {
		t.Errorf("String(k) = %q, want %q", v, "f")
	}
}

func TestStore_Snapshot(t *testing.T) {
	store := New(
		NewMapSource("a", map[string]any{"x": 1}),
		NewMapSource("b", map[string]any{"x": 2, "y": 3}),
	)
	got := store.Snapshot()
	want := map[string]any{"x": 1, "y": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}
