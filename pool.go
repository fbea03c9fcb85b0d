package elfi

import (
	"fmt"

	"github.com/alxsoares/elfi/npy"
	"github.com/alxsoares/elfi/store"
)

// OutputPool stores batches of node outputs to named batch stores.
//
// Outputs are declared up front; their stores are realized lazily on the
// first batch written to them. The default store is an in-memory mapping
// (store.MemoryStore). Stores registered through AddStore are borrowed:
// the pool never assumes responsibility for any cleanup they need.
//
// Some inference algorithms can reuse stored values after model changes,
// e.g. recomputing summaries and distances without rerunning the
// simulator, which is why pools keep whole batches addressable by index.
type OutputPool struct {
	stores  map[string]store.BatchStore // nil value = declared, unrealized
	outputs []string                    // declaration order
	context *ComputationContext
	logger  *Logger

	// makeStore realizes the default store for a declared output.
	// ArrayPool overrides it with a file-backed factory.
	makeStore func(name string) (store.BatchStore, error)
}

// NewOutputPool creates a pool for the given output names.
func NewOutputPool(outputs []string, opts ...Option) *OutputPool {
	o := options{logger: NoopLogger()}
	for _, fn := range opts {
		fn(&o)
	}

	p := &OutputPool{
		stores:  make(map[string]store.BatchStore, len(outputs)),
		outputs: append([]string(nil), outputs...),
		logger:  o.logger,
	}
	for _, name := range outputs {
		p.stores[name] = nil
	}
	p.makeStore = func(string) (store.BatchStore, error) {
		return store.NewMemoryStore(), nil
	}
	return p
}

// SetContext records the execution context the pool's batches are
// computed with. The context is immutable once set.
func (p *OutputPool) SetContext(ctx ComputationContext) error {
	if p.context != nil {
		return ErrContextAlreadySet
	}
	if ctx.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidContext, ctx.BatchSize)
	}
	c := ctx
	p.context = &c
	return nil
}

// Context returns the pool's context and whether it has been set.
func (p *OutputPool) Context() (ComputationContext, bool) {
	if p.context == nil {
		return ComputationContext{}, false
	}
	return *p.context, true
}

// ContextSet reports whether the context has been set.
func (p *OutputPool) ContextSet() bool {
	return p.context != nil
}

// Outputs returns the declared output names in declaration order.
func (p *OutputPool) Outputs() []string {
	return append([]string(nil), p.outputs...)
}

// GetBatch collects the batch at batchIndex from the requested outputs
// (default: all declared outputs). Outputs without a realized store or
// without that index are omitted, not an error.
func (p *OutputPool) GetBatch(batchIndex int, outputs ...string) map[string]npy.Array {
	if len(outputs) == 0 {
		outputs = p.outputs
	}
	batch := make(map[string]npy.Array)
	for _, name := range outputs {
		st, ok := p.stores[name]
		if !ok || st == nil || !st.Has(batchIndex) {
			continue
		}
		a, err := st.Get(batchIndex)
		if err != nil {
			continue
		}
		batch[name] = a
	}
	return batch
}

// AddBatch stores the outputs from batch under batchIndex. Names not
// declared in the pool are ignored. Indices already present in a store
// are skipped: the output of a batch is assumed to be reproducible, so
// re-adding it is a no-op rather than an overwrite.
func (p *OutputPool) AddBatch(batch map[string]npy.Array, batchIndex int) error {
	for _, name := range p.outputs {
		values, ok := batch[name]
		if !ok {
			continue
		}
		st, err := p.storeFor(name)
		if err != nil {
			return err
		}
		if st.Has(batchIndex) {
			continue
		}
		if err := st.Set(batchIndex, values); err != nil {
			return fmt.Errorf("elfi: adding batch %d for output %q: %w", batchIndex, name, err)
		}
		p.logger.Debug("batch stored", "output", name, "batch_index", batchIndex)
	}
	return nil
}

// RemoveBatch removes the batch at batchIndex from every realized store.
// Stores without that index are skipped.
func (p *OutputPool) RemoveBatch(batchIndex int) error {
	for _, name := range p.outputs {
		st := p.stores[name]
		if st == nil || !st.Has(batchIndex) {
			continue
		}
		if err := st.Delete(batchIndex); err != nil {
			return fmt.Errorf("elfi: removing batch %d for output %q: %w", batchIndex, name, err)
		}
		p.logger.Debug("batch removed", "output", name, "batch_index", batchIndex)
	}
	return nil
}

// HasStore reports whether name is declared in the pool.
func (p *OutputPool) HasStore(name string) bool {
	_, ok := p.stores[name]
	return ok
}

// GetStore returns the store for name. The store is nil when declared
// but not yet realized.
func (p *OutputPool) GetStore(name string) (store.BatchStore, error) {
	st, ok := p.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoStore, name)
	}
	return st, nil
}

// AddStore registers a store for name, declaring the output if needed.
// Passing a nil store declares the output for lazy realization. A
// non-nil store already registered for name is an error.
func (p *OutputPool) AddStore(name string, st store.BatchStore) error {
	if existing, ok := p.stores[name]; ok && existing != nil {
		return fmt.Errorf("%w: %q", ErrStoreExists, name)
	}
	if !p.HasStore(name) {
		p.outputs = append(p.outputs, name)
	}
	p.stores[name] = st
	return nil
}

// RemoveStore detaches and returns the store for name. The caller owns
// any cleanup the returned store needs.
func (p *OutputPool) RemoveStore(name string) (store.BatchStore, error) {
	st, ok := p.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoStore, name)
	}
	delete(p.stores, name)
	for i, n := range p.outputs {
		if n == name {
			p.outputs = append(p.outputs[:i], p.outputs[i+1:]...)
			break
		}
	}
	return st, nil
}

// Len returns the largest number of stored batches across all stores.
func (p *OutputPool) Len() int {
	n := 0
	for _, st := range p.stores {
		if st == nil {
			continue
		}
		if l := st.Len(); l > n {
			n = l
		}
	}
	return n
}

// Has reports whether batchIndex falls within the stored range.
func (p *OutputPool) Has(batchIndex int) bool {
	return batchIndex >= 0 && batchIndex < p.Len()
}

// Clear removes all batches from every realized store.
func (p *OutputPool) Clear() error {
	var firstErr error
	for _, name := range p.outputs {
		st := p.stores[name]
		if st == nil {
			continue
		}
		if err := st.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *OutputPool) storeFor(name string) (store.BatchStore, error) {
	st, ok := p.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoStore, name)
	}
	if st == nil {
		var err error
		st, err = p.makeStore(name)
		if err != nil {
			return nil, err
		}
		p.stores[name] = st
	}
	return st, nil
}
