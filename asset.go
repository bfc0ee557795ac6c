package container

import "fmt"

// Phase is a point in the lifecycle of an Asset. Phases are totally
// ordered and monotonically non-decreasing over an asset's lifetime;
// Disposed terminates it.
type Phase int

const (
	// Allocated is the phase of a freshly created, empty asset slot.
	Allocated Phase = iota
	// Provided means the provider has run and the value exists.
	Provided
	// Injected means every registered injector has run.
	Injected
	// Created means the initializer (if any) has run; the asset is
	// ready to hand back to client code.
	Created
	// Disposed means the disposer (if any) has run and the value should
	// no longer be used.
	Disposed
)

// String renders the phase name, used in consistency reports.
func (p Phase) String() string {
	switch p {
	case Allocated:
		return "Allocated"
	case Provided:
		return "Provided"
	case Injected:
		return "Injected"
	case Created:
		return "Created"
	case Disposed:
		return "Disposed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Asset is a mutable cell holding one type-erased instance plus its
// current lifecycle Phase. It is created in the Allocated phase with an
// empty value.
type Asset struct {
	value any
	phase Phase
}

func newAsset() *Asset {
	return &Asset{phase: Allocated}
}

// Value returns the type-erased value currently stored, or nil before the
// provider has run.
func (a *Asset) Value() any { return a.value }

// Phase returns the asset's current lifecycle phase.
func (a *Asset) Phase() Phase { return a.phase }

func (a *Asset) setValue(v any) { a.value = v }

func (a *Asset) setPhase(p Phase) {
	if p < a.phase {
		panic(fmt.Sprintf("container: asset phase must be monotonically non-decreasing, got %s after %s", p, a.phase))
	}

	a.phase = p
}
