package elfi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/alxsoares/elfi/npy"
	"github.com/alxsoares/elfi/store"
)

const (
	// DescriptorName is the sidecar file describing a pool directory.
	DescriptorName = "pool.json"

	descriptorVersion = 1

	// DefaultPoolPath is the directory under which pool folders are
	// created when WithPath is not given.
	DefaultPoolPath = "pools"
)

// ArrayPool is an OutputPool whose default stores persist batches to
// appendable .npy files, one file per output, under <path>/<name>/.
//
// The pool owns the arrays it creates and closes them uniformly through
// Close, Flush and Delete. Closing also writes a descriptor file so the
// pool can be reconstructed later with OpenArrayPool.
type ArrayPool struct {
	*OutputPool

	name          string
	path          string
	leadingDigits int
}

// NewArrayPool creates a file-backed pool for the given output names.
// The pool directory itself is created lazily, on the first store
// realization, because the default name depends on the context seed.
func NewArrayPool(outputs []string, opts ...Option) (*ArrayPool, error) {
	o := options{logger: NoopLogger(), path: DefaultPoolPath}
	for _, fn := range opts {
		fn(&o)
	}

	if err := os.MkdirAll(o.path, 0o755); err != nil {
		return nil, fmt.Errorf("elfi: creating pool path: %w", err)
	}

	ap := &ArrayPool{
		OutputPool:    NewOutputPool(outputs, WithLogger(o.logger)),
		name:          o.name,
		path:          o.path,
		leadingDigits: o.leadingDigits,
	}
	ap.OutputPool.makeStore = ap.makeArrayStore
	return ap, nil
}

// Name returns the pool name, or "" when it has not been fixed yet.
func (ap *ArrayPool) Name() string { return ap.name }

// Path returns the directory under which the pool folder lives.
func (ap *ArrayPool) Path() string { return ap.path }

// ArrayPath returns the directory holding the pool's array files, or ""
// when the pool name has not been fixed yet.
func (ap *ArrayPool) ArrayPath() string {
	if ap.name == "" {
		return ""
	}
	return filepath.Join(ap.path, ap.name)
}

// makeArrayStore realizes the default file-backed store for an output.
func (ap *ArrayPool) makeArrayStore(name string) (store.BatchStore, error) {
	ctx, ok := ap.Context()
	if !ok {
		return nil, fmt.Errorf("%w: needed to create the store for %q", ErrContextRequired, name)
	}
	if ap.name == "" {
		ap.name = fmt.Sprintf("arraypool_%d", ctx.Seed)
	}
	if err := os.MkdirAll(ap.ArrayPath(), 0o755); err != nil {
		return nil, err
	}

	var npyOpts []npy.OpenOption
	if ap.leadingDigits > 0 {
		npyOpts = append(npyOpts, npy.WithLeadingDigits(ap.leadingDigits))
	}
	arr, err := npy.Open(filepath.Join(ap.ArrayPath(), name), npyOpts...)
	if err != nil {
		return nil, err
	}

	st, err := store.NewBatchArrayStore(arr, ctx.BatchSize)
	if err != nil {
		arr.Close()
		return nil, err
	}

	ap.logger.Info("array store created", "output", name, "file", arr.Path())
	return st, nil
}

// Flush flushes every realized array file without closing anything.
func (ap *ArrayPool) Flush() error {
	var g errgroup.Group
	for _, arr := range ap.arrays() {
		g.Go(arr.Flush)
	}
	return g.Wait()
}

// Close flushes and closes every realized array file, then writes the
// pool descriptor. When the arrays persist fine but the descriptor write
// fails, Close returns a *DescriptorError so the caller can tell the
// data is safe and only the reopening metadata is missing.
func (ap *ArrayPool) Close() error {
	var firstErr error
	for name, arr := range ap.arrays() {
		if err := arr.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("elfi: closing array for output %q: %w", name, err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	if ap.ArrayPath() == "" {
		// No store was ever realized; there is nothing to describe.
		return nil
	}
	if err := ap.writeDescriptor(); err != nil {
		return err
	}

	ap.logger.Info("pool closed", "name", ap.name, "path", ap.ArrayPath())
	return nil
}

// Delete closes the pool's arrays and removes the pool folder and all
// data in it from disk.
func (ap *ArrayPool) Delete() error {
	if ap.ArrayPath() == "" {
		return nil
	}
	for _, arr := range ap.arrays() {
		_ = arr.Close()
	}
	if err := os.RemoveAll(ap.ArrayPath()); err != nil {
		return err
	}
	ap.logger.Info("pool deleted", "name", ap.name, "path", ap.ArrayPath())
	return nil
}

// arrays returns the persisted array behind every realized file-backed
// store, keyed by output name.
func (ap *ArrayPool) arrays() map[string]*npy.PersistedArray {
	arrays := make(map[string]*npy.PersistedArray)
	for name, st := range ap.stores {
		bas, ok := st.(*store.BatchArrayStore)
		if !ok {
			continue
		}
		if arr, ok := bas.Backing().(*npy.PersistedArray); ok {
			arrays[name] = arr
		}
	}
	return arrays
}

// poolDescriptor is the JSON sidecar enabling OpenArrayPool.
type poolDescriptor struct {
	Version   int                `json:"version"`
	Name      string             `json:"name"`
	BatchSize int                `json:"batch_size"`
	Seed      int64              `json:"seed"`
	Outputs   []outputDescriptor `json:"outputs"`
}

type outputDescriptor struct {
	Name    string `json:"name"`
	File    string `json:"file,omitempty"` // relative to the pool folder
	Batches int    `json:"n_batches,omitempty"`
}

func (ap *ArrayPool) writeDescriptor() error {
	ctx, _ := ap.Context()
	d := poolDescriptor{
		Version:   descriptorVersion,
		Name:      ap.name,
		BatchSize: ctx.BatchSize,
		Seed:      ctx.Seed,
	}
	arrays := ap.arrays()
	for _, name := range ap.outputs {
		od := outputDescriptor{Name: name}
		if arr, ok := arrays[name]; ok {
			od.File = filepath.Base(arr.Path())
			if bas, ok := ap.stores[name].(*store.BatchArrayStore); ok {
				od.Batches = bas.BatchCount()
			}
		}
		d.Outputs = append(d.Outputs, od)
	}

	path := filepath.Join(ap.ArrayPath(), DescriptorName)
	if err := writeDescriptorFile(path, &d); err != nil {
		return &DescriptorError{Path: path, cause: err}
	}
	return nil
}

// writeDescriptorFile writes the descriptor atomically via rename so a
// crash mid-write cannot leave a truncated descriptor behind.
func writeDescriptorFile(path string, d *poolDescriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// OpenArrayPool reopens a pool previously persisted with Close, loading
// its output list, context and per-output array bindings from the
// descriptor in <path>/<name>/.
func OpenArrayPool(name string, opts ...Option) (*ArrayPool, error) {
	o := options{logger: NoopLogger(), path: DefaultPoolPath}
	for _, fn := range opts {
		fn(&o)
	}

	descPath := filepath.Join(o.path, name, DescriptorName)
	data, err := os.ReadFile(descPath)
	if err != nil {
		return nil, fmt.Errorf("elfi: reading pool descriptor: %w", err)
	}
	var d poolDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("elfi: parsing pool descriptor %s: %w", descPath, err)
	}
	if d.Version != descriptorVersion {
		return nil, fmt.Errorf("elfi: unsupported pool descriptor version %d", d.Version)
	}

	outputs := make([]string, 0, len(d.Outputs))
	for _, od := range d.Outputs {
		outputs = append(outputs, od.Name)
	}

	ap, err := NewArrayPool(outputs,
		WithName(name),
		WithPath(o.path),
		WithLogger(o.logger),
		WithLeadingDigits(o.leadingDigits),
	)
	if err != nil {
		return nil, err
	}
	if err := ap.SetContext(ComputationContext{BatchSize: d.BatchSize, Seed: d.Seed}); err != nil {
		return nil, err
	}

	for _, od := range d.Outputs {
		if od.File == "" {
			continue
		}
		arr, err := npy.Open(filepath.Join(ap.ArrayPath(), od.File))
		if err != nil {
			for _, open := range ap.arrays() {
				_ = open.Close()
			}
			return nil, err
		}
		st, err := store.NewBatchArrayStore(arr, d.BatchSize, store.WithBatchCount(od.Batches))
		if err != nil {
			arr.Close()
			return nil, err
		}
		ap.stores[od.Name] = st
	}

	ap.logger.Info("pool opened", "name", name, "outputs", len(outputs))
	return ap, nil
}
