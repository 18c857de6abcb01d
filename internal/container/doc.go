// Package container is the application's unit registry.
//
// Configuration units are registered by name with a Definition. Units
// declared with Declare carry Metadata (a list of Markers) and are indexed
// under each marker's name, so other components can find every unit that
// carries a given marker without instantiating anything. Units built with
// Factory are opaque: they can be indexed under a marker name explicitly,
// but their metadata cannot be read.
//
// Post-processors run once during Refresh, ordered by their After
// declarations. Processors implementing Conditional are skipped when their
// condition does not hold at the moment they would run.
//
//	c := container.New()
//	_ = c.Register("audit", container.Declare(auditUnit, someMarker))
//	_ = c.AddPostProcessor(container.NewPostProcessor("settings", nil, buildSettings))
//	if err := c.Refresh(ctx); err != nil {
//	    return err
//	}
package container
