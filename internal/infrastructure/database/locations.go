package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

// Location schemes understood by the engine. A location without a scheme
// is treated as a classpath location.
const (
	SchemeClasspath  = "classpath"
	SchemeFilesystem = "filesystem"
)

// VendorPlaceholder is replaced with the database vendor when a location
// is resolved, e.g. "classpath:db/audit/{vendor}" on SQLite reads
// "db/audit/sqlite".
const VendorPlaceholder = "{vendor}"

// Classpath is an ordered registry of read-only resource filesystems,
// typically embed.FS values compiled into the binary. A classpath location
// reads the same directory from every registered filesystem.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Classpath struct {
	mu      sync.RWMutex
	entries []classpathEntry
}

type classpathEntry struct {
	name string
	fsys fs.FS
}

// NewClasspath creates an empty classpath.
func NewClasspath() *Classpath {
	return &Classpath{}
}

// DefaultClasspath is the process-wide classpath, used when callers pass a
// nil *Classpath. Packages that ship migration scripts register their
// embedded files explicitly:
//
//	//go:embed db
//	var resources embed.FS
//
//	func Register(classpath *database.Classpath) {
//	    classpath.Register("audit", resources)
//	}
var DefaultClasspath = NewClasspath()

// Register adds fsys under name. Registering a name again replaces its
// filesystem but keeps its original position.
func (c *Classpath) Register(name string, fsys fs.FS) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.name == name {
			c.entries[i].fsys = fsys
			return
		}
	}
	c.entries = append(c.entries, classpathEntry{name: name, fsys: fsys})
}

// Names lists registered resource names in registration order.
func (c *Classpath) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

func (c *Classpath) snapshot() []classpathEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]classpathEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Location is a parsed migration location.
type Location struct {
	// Raw is the location as configured, placeholders included.
	Raw string

	// Scheme is SchemeClasspath or SchemeFilesystem.
	Scheme string

	// Path is the directory with placeholders expanded.
	Path string
}

// String renders the resolved location, e.g. "classpath:db/audit/sqlite".
func (l Location) String() string {
	return l.Scheme + ":" + l.Path
}

// ParseLocation splits raw into scheme and path and expands the vendor
// placeholder.
//
// Returns:
//   - Location: Parsed location
//   - error: ErrUnsupportedLocation for an unknown scheme or empty path
func ParseLocation(raw, vendor string) (Location, error) {
	scheme, p := SchemeClasspath, raw
	if i := strings.Index(raw, ":"); i > 0 && !strings.ContainsAny(raw[:i], `/\`) {
		scheme, p = raw[:i], raw[i+1:]
	}

	switch scheme {
	case SchemeClasspath:
		p = strings.Trim(path.Clean("/"+p), "/")
		if p == "" {
			p = "."
		}
	case SchemeFilesystem:
		if p == "" {
			return Location{}, fmt.Errorf("%w: %q has no path", ErrUnsupportedLocation, raw)
		}
	default:
		return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedLocation, raw)
	}

	return Location{
		Raw:    raw,
		Scheme: scheme,
		Path:   strings.ReplaceAll(p, VendorPlaceholder, vendor),
	}, nil
}

// scriptDir is one directory that may contain migration scripts.
type scriptDir struct {
	fsys   fs.FS
	dir    string
	origin string
}

// dirs lists the directories a location reads from. For a classpath
// location that is the same directory in every registered filesystem.
func (l Location) dirs(classpath *Classpath) []scriptDir {
	if l.Scheme == SchemeFilesystem {
		return []scriptDir{{fsys: os.DirFS(l.Path), dir: ".", origin: l.Path}}
	}

	entries := classpath.snapshot()
	dirs := make([]scriptDir, 0, len(entries))
	for _, e := range entries {
		dirs = append(dirs, scriptDir{fsys: e.fsys, dir: l.Path, origin: e.name})
	}
	return dirs
}

// readDir lists d's entries. A missing directory yields no entries.
func (d scriptDir) readDir() ([]fs.DirEntry, bool, error) {
	entries, err := fs.ReadDir(d.fsys, d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", d.origin, err)
	}
	return entries, true, nil
}
