package locations

import (
	"fmt"

	"github.com/nerrad567/schema-locations/internal/container"
)

// Logger defines the logging interface used by the injector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the part of the container the scan reads.
// *container.Container satisfies it.
type Registry interface {
	// NamesForMarker lists units indexed under marker, in registration order.
	NamesForMarker(marker string) []string

	// Definition returns a unit's definition.
	Definition(name string) (container.Definition, error)
}

// Declaration is one unit's contribution: the locations its marker declares,
// in declaration order.
type Declaration struct {
	Unit      string
	Locations []string
}

// Scan collects the additional locations declared by every unit indexed
// under MarkerName.
//
// A unit whose definition does not expose metadata (a container.Factory
// indexed under the marker by name) cannot be read and is skipped with a
// warning; the remaining units are still scanned. A unit that is indexed but
// carries no AdditionalLocations marker in its metadata yields an empty
// Declaration.
//
// Parameters:
//   - registry: Container to scan
//   - logger: Receives skip warnings (may be nil)
//
// Returns:
//   - []Declaration: One entry per readable unit, in discovery order
//   - error: Only when the registry lists a unit it cannot resolve
func Scan(registry Registry, logger Logger) ([]Declaration, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	names := registry.NamesForMarker(MarkerName)
	declarations := make([]Declaration, 0, len(names))

	for _, name := range names {
		def, err := registry.Definition(name)
		if err != nil {
			return nil, fmt.Errorf("resolving unit %s: %w", name, err)
		}

		annotated, ok := def.(container.AnnotatedDefinition)
		if !ok {
			logger.Warn("unit definition does not expose metadata, skipping additional locations",
				"unit", name,
				"definition", fmt.Sprintf("%T", def),
			)
			continue
		}

		decl := Declaration{Unit: name, Locations: []string{}}
		if marker, found := annotated.Metadata().Marker(MarkerName); found {
			typed, ok := marker.(AdditionalLocations)
			if !ok {
				logger.Warn("unit carries an unrecognised additional locations marker, skipping",
					"unit", name,
					"marker", fmt.Sprintf("%T", marker),
				)
				continue
			}
			decl.Locations = typed.Values()
		}
		declarations = append(declarations, decl)
	}

	return declarations, nil
}
