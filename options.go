package elfi

type options struct {
	logger        *Logger
	name          string
	path          string
	leadingDigits int
}

// Option configures pool construction.
type Option func(*options)

// WithLogger configures the structured logger used by the pool.
//
// If nil is passed, logging stays disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName sets the pool name, which becomes the directory under the
// pool path where array files live. When unset, an ArrayPool names
// itself arraypool_<seed> on first use.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithPath sets the directory under which pool folders are created.
// Default is ./pools relative to the working directory.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithLeadingDigits sets the header digit budget for array files the
// pool creates. See npy.WithLeadingDigits.
func WithLeadingDigits(n int) Option {
	return func(o *options) {
		o.leadingDigits = n
	}
}
