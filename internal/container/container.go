package container

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Logger defines the logging interface used by the container.
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

// PostProcessor runs once during Refresh, after every unit has been
// registered and before the application starts using them.
type PostProcessor interface {
	// Name identifies the processor for ordering and logging.
	Name() string

	// After lists processors that must run before this one. Names that are
	// not registered are ignored.
	After() []string

	// PostProcess does the work. An error aborts the refresh.
	PostProcess(ctx context.Context, c *Container) error
}

// Conditional is implemented by post-processors that only run when the
// container satisfies some condition. Enabled is evaluated immediately
// before the processor would run, so it sees the effects of earlier ones.
type Conditional interface {
	Enabled(c *Container) bool
}

// Container holds named unit definitions, singleton beans, and the
// post-processors that run over them at refresh.
//
// Thread Safety:
//   - Registration and lookup are safe for concurrent use.
//   - Refresh runs post-processors sequentially on the calling goroutine.
type Container struct {
	mu         sync.RWMutex
	units      map[string]Definition
	unitOrder  []string
	index      map[string][]string
	beans      map[string]any
	processors []PostProcessor
	processed  []string
	refreshed  bool
	logger     Logger
}

// New creates an empty container.
func New() *Container {
	return &Container{
		units:  make(map[string]Definition),
		index:  make(map[string][]string),
		beans:  make(map[string]any),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the container.
func (c *Container) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Register adds a unit definition under name.
//
// The unit is indexed under every marker in its metadata (when def is an
// AnnotatedDefinition) and under each of markerNames. The latter lets a
// programmatic factory be indexed without exposing metadata.
//
// Parameters:
//   - name: Unique unit identifier
//   - def: How to obtain the unit's value
//   - markerNames: Extra marker names to index the unit under
//
// Returns:
//   - error: ErrInvalidUnit or ErrDuplicateUnit
func (c *Container) Register(name string, def Definition, markerNames ...string) error {
	if name == "" || def == nil {
		return ErrInvalidUnit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.units[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, name)
	}
	c.units[name] = def
	c.unitOrder = append(c.unitOrder, name)

	var markers []string
	if ad, ok := def.(AnnotatedDefinition); ok {
		for _, m := range ad.Metadata().Markers() {
			markers = append(markers, m.MarkerName())
		}
	}
	markers = append(markers, markerNames...)

	seen := make(map[string]bool, len(markers))
	for _, m := range markers {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		c.index[m] = append(c.index[m], name)
	}

	return nil
}

// NamesForMarker lists the units indexed under marker, in registration order.
func (c *Container) NamesForMarker(marker string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.index[marker])
}

// Definition returns the definition registered under name.
func (c *Container) Definition(name string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, name)
	}
	return def, nil
}

// Names lists registered unit names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.unitOrder)
}

// Provide stores a singleton bean under name.
func (c *Container) Provide(name string, bean any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.beans[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBean, name)
	}
	c.beans[name] = bean
	return nil
}

// Bean returns the bean stored under name.
func (c *Container) Bean(name string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bean, ok := c.beans[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBeanNotFound, name)
	}
	return bean, nil
}

// Has reports whether name is a registered unit or a stored bean.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.units[name]; ok {
		return true
	}
	_, ok := c.beans[name]
	return ok
}

// Lookup returns the bean stored under name as a T.
func Lookup[T any](c *Container, name string) (T, error) {
	var zero T
	bean, err := c.Bean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := bean.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrBeanType, name, bean, zero)
	}
	return typed, nil
}

// Instantiate builds the value of the unit registered under name and
// caches it as a bean of the same name. Later calls return the cached value.
func (c *Container) Instantiate(ctx context.Context, name string) (any, error) {
	if bean, err := c.Bean(name); err == nil {
		return bean, nil
	}

	def, err := c.Definition(name)
	if err != nil {
		return nil, err
	}

	value, err := def.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiating %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.beans[name]; ok {
		return existing, nil
	}
	c.beans[name] = value
	return value, nil
}

// AddPostProcessor registers p to run on Refresh.
func (c *Container) AddPostProcessor(p PostProcessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshed {
		return ErrAlreadyRefreshed
	}
	for _, existing := range c.processors {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateProcessor, p.Name())
		}
	}
	c.processors = append(c.processors, p)
	return nil
}

// Refresh runs every registered post-processor once.
//
// Processors are ordered so that each runs after the processors named by its
// After list; otherwise registration order is kept. A Conditional processor
// whose Enabled returns false is skipped. The first processor error aborts
// the refresh and is returned.
//
// Returns:
//   - error: *CycleError for contradictory ordering, ErrAlreadyRefreshed on
//     a second call, or the failing processor's error
func (c *Container) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.refreshed {
		c.mu.Unlock()
		return ErrAlreadyRefreshed
	}
	c.refreshed = true
	processors := slices.Clone(c.processors)
	logger := c.logger
	c.mu.Unlock()

	order, err := orderProcessors(processors)
	if err != nil {
		return err
	}

	for _, p := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cond, ok := p.(Conditional); ok && !cond.Enabled(c) {
			logger.Debug("skipping post-processor, condition not met", "processor", p.Name())
			continue
		}

		logger.Debug("running post-processor", "processor", p.Name())
		if err := p.PostProcess(ctx, c); err != nil {
			return fmt.Errorf("post-processor %s: %w", p.Name(), err)
		}

		c.mu.Lock()
		c.processed = append(c.processed, p.Name())
		c.mu.Unlock()
	}

	return nil
}

// Processed lists the post-processors that ran during Refresh, in run order.
func (c *Container) Processed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.processed)
}

func orderProcessors(processors []PostProcessor) ([]PostProcessor, error) {
	byName := make(map[string]PostProcessor, len(processors))
	g := newGraph()
	for _, p := range processors {
		byName[p.Name()] = p
		g.addNode(p.Name())
	}
	for _, p := range processors {
		for _, before := range p.After() {
			if _, ok := byName[before]; ok {
				g.addEdge(before, p.Name())
			}
		}
	}

	names, err := g.sort()
	if err != nil {
		return nil, err
	}

	ordered := make([]PostProcessor, len(names))
	for i, name := range names {
		ordered[i] = byName[name]
	}
	return ordered, nil
}

type funcProcessor struct {
	name  string
	after []string
	fn    func(ctx context.Context, c *Container) error
}

// NewPostProcessor wraps fn as a PostProcessor named name that runs after
// the processors listed in after.
func NewPostProcessor(name string, after []string, fn func(ctx context.Context, c *Container) error) PostProcessor {
	return &funcProcessor{name: name, after: slices.Clone(after), fn: fn}
}

func (p *funcProcessor) Name() string    { return p.name }
func (p *funcProcessor) After() []string { return slices.Clone(p.after) }

func (p *funcProcessor) PostProcess(ctx context.Context, c *Container) error {
	return p.fn(ctx, c)
}
