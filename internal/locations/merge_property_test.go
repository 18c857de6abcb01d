package locations

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
)

// locationGen draws from a small alphabet so overlaps are common.
func locationGen() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		"a", "b", "c", "d", "e",
		"classpath:db/migration",
		"classpath:db/{vendor}",
		"filesystem:/srv/sql",
	})
}

func uniqueBaseGen() *rapid.Generator[[]string] {
	return rapid.SliceOfDistinct(locationGen(), func(s string) string { return s })
}

func declaredGen() *rapid.Generator[[][]string] {
	return rapid.SliceOfN(rapid.SliceOfN(locationGen(), 0, 5), 0, 4)
}

// referenceMerge is the stable-deduplicated concatenation written out longhand.
func referenceMerge(base []string, declared [][]string) []string {
	out := append([]string{}, base...)
	for _, locs := range declared {
		for _, loc := range locs {
			if !slices.Contains(out, loc) {
				out = append(out, loc)
			}
		}
	}
	return out
}

// TestMerge_StableDedupConcatenation checks Merge against the longhand definition.
func TestMerge_StableDedupConcatenation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := uniqueBaseGen().Draw(t, "base")
		declared := declaredGen().Draw(t, "declared")

		merged := Merge(base, declared...)

		assert.Equal(t, referenceMerge(base, declared), merged)
		assert.True(t, slices.Equal(base, merged[:len(base)]), "base %v must prefix %v", base, merged)

		seen := make(map[string]bool)
		for _, loc := range merged {
			assert.False(t, seen[loc], "duplicate %q in %v", loc, merged)
			seen[loc] = true
		}
	})
}

// TestMerge_Idempotent checks that merging the same declarations into an
// already merged list changes nothing.
func TestMerge_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := uniqueBaseGen().Draw(t, "base")
		declared := declaredGen().Draw(t, "declared")

		once := Merge(base, declared...)
		twice := Merge(once, declared...)

		assert.Equal(t, once, twice)
	})
}

// TestInjector_SettingsAndStoreAgree checks the postcondition of Apply for
// arbitrary units.
func TestInjector_SettingsAndStoreAgree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := uniqueBaseGen().Draw(t, "base")
		declared := declaredGen().Draw(t, "declared")

		c := container.New()
		for i, locs := range declared {
			name := rapid.StringMatching(`unit[a-z]{4}`).Draw(t, "name") + string(rune('0'+i))
			require.NoError(t, c.Register(name, Unit(nil, locs...)))
		}

		settings := &memSettings{locations: base}
		store := propstore.New(propstore.NewMapSource("application", map[string]any{PropertyKey: base}))

		merged, err := NewInjector(settings, store, nil).Apply(c)
		require.NoError(t, err)

		fromStore, ok := store.Strings(PropertyKey)
		require.True(t, ok)

		assert.Equal(t, merged, settings.Locations())
		assert.Equal(t, settings.Locations(), fromStore)
		assert.Equal(t, referenceMerge(base, declared), merged)
	})
}
