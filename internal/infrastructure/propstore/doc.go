// Package propstore holds the application's prioritized configuration
// store: an ordered list of named property sources where the first source
// holding a key supplies its effective value.
//
// Sources are added at the front (highest precedence) or the back. Adding a
// source whose name is already present replaces the old entry, which lets a
// component republish its contribution without growing the store.
//
//	store := propstore.New(appSource)
//	store.AddFirst(propstore.NewMapSource("overrides", map[string]any{
//	    "migrations.locations": []string{"classpath:db/migration"},
//	}))
//	locs, _ := store.Strings("migrations.locations")
package propstore
