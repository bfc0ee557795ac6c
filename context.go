package container

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/vsamtuc/container/internal/telemetry"
)

// Context is the backing store of a Scope: a map from ResourceId to Asset.
// It owns every Asset it holds; destroying a Context disposes every asset
// it holds.
type Context struct {
	assets *resourceMap[*Asset]
}

func newContext() *Context {
	return &Context{assets: newResourceMap[*Asset]()}
}

// GetOrAllocate returns the asset for rid, allocating an empty one (in the
// Allocated phase) if none exists yet. The second return value reports
// whether the asset was newly allocated.
func (c *Context) GetOrAllocate(rid ResourceId) (*Asset, bool) {
	if a, ok := c.assets.Get(rid); ok {
		return a, false
	}

	a := newAsset()
	c.assets.Set(rid, a)

	return a, true
}

// Drop removes rid's entry without running its disposer. It is used to
// unwind failed provisioning (spec.md §4.6 step 3b).
func (c *Context) Drop(rid ResourceId) {
	c.assets.Delete(rid)
}

// Clear disposes every asset in the context via its manager's disposer,
// then empties the context. container must still have every disposed
// resource's manager declared, and must still be able to resolve the
// live values a disposer's own deps need (spec.md §4.6: a disposer
// resolves its deps at Created) — so callers must not reset their
// registries until after Clear returns. Disposal order is unspecified;
// every asset is disposed exactly once. A disposer failure is logged and
// does not stop the remaining disposals — all failures are aggregated
// into the returned error with multierr so a caller can inspect every
// one of them, not just the first.
func (c *Context) Clear(container Container, log telemetry.Sink) error {
	var errs error

	c.assets.Range(func(rid ResourceId, asset *Asset) bool {
		if asset.Phase() == Disposed {
			return true
		}

		manager := container.GetDeclared(rid)
		if manager == nil {
			log.Warn("container: disposing asset with no declared manager", "resource", rid.String())

			return true
		}

		if err := manager.Dispose(container, asset); err != nil {
			log.Warn("container: disposer failed", "resource", rid.String(), "error", err.Error())
			errs = multierr.Append(errs, ErrDisposal(rid, err))

			return true
		}

		asset.setPhase(Disposed)

		return true
	})

	c.assets = newResourceMap[*Asset]()

	if errs != nil {
		return fmt.Errorf("container: context clear: %w", errs)
	}

	return nil
}

// Len reports the number of assets currently held.
func (c *Context) Len() int { return c.assets.Len() }
