package container

// Middleware provides hooks around every outermost Get call. Middleware
// never sees the recursive dependency-resolution calls the engine makes
// while satisfying a resource's own dependencies — only the call a client
// made directly.
type Middleware interface {
	// BeforeGet is called before resolving rid. Returning an error aborts
	// resolution with that error.
	BeforeGet(rid ResourceId) error

	// AfterGet is called after resolving rid, whether or not it
	// succeeded; value and err carry the outcome.
	AfterGet(rid ResourceId, value any, err error)
}

// middlewareChain runs an ordered list of Middleware.
type middlewareChain struct {
	chain []Middleware
}

func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{}
}

func (m *middlewareChain) add(mw Middleware) {
	m.chain = append(m.chain, mw)
}

func (m *middlewareChain) beforeGet(rid ResourceId) error {
	for _, mw := range m.chain {
		if err := mw.BeforeGet(rid); err != nil {
			return err
		}
	}

	return nil
}

func (m *middlewareChain) afterGet(rid ResourceId, value any, err error) {
	for _, mw := range m.chain {
		mw.AfterGet(rid, value, err)
	}
}

// FuncMiddleware adapts two functions into a Middleware; either may be
// nil, in which case that hook is a no-op.
type FuncMiddleware struct {
	BeforeGetFunc func(rid ResourceId) error
	AfterGetFunc  func(rid ResourceId, value any, err error)
}

// BeforeGet implements Middleware.
func (f *FuncMiddleware) BeforeGet(rid ResourceId) error {
	if f.BeforeGetFunc != nil {
		return f.BeforeGetFunc(rid)
	}

	return nil
}

// AfterGet implements Middleware.
func (f *FuncMiddleware) AfterGet(rid ResourceId, value any, err error) {
	if f.AfterGetFunc != nil {
		f.AfterGetFunc(rid, value, err)
	}
}
