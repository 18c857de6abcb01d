// Package migrations embeds the application's SQL migration scripts.
//
// The scripts live under db/migration so that, once registered on a
// classpath, they answer the default location classpath:db/migration.
package migrations

import (
	"embed"
	"io/fs"

	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
)

// ResourceName is the classpath entry holding the application scripts.
const ResourceName = "app"

//go:embed db
var resources embed.FS

// FS returns the embedded scripts.
func FS() fs.FS {
	return resources
}

// Register adds the application scripts to classpath, replacing any
// earlier registration under ResourceName.
func Register(classpath *database.Classpath) {
	if classpath == nil {
		classpath = database.DefaultClasspath
	}
	classpath.Register(ResourceName, resources)
}
