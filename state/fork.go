package state

// Separator joins fork prefixes and local keys into fully-qualified keys.
// Composition is plain concatenation, so distinct prefix paths always
// produce distinct keys regardless of nesting depth.
const Separator = "__"

// Fork is a namespacing handle over a Table, bound to a key prefix. Forks
// hold no data themselves: every read and write resolves to a table entry
// under the fork's prefix. Many forks may share a prefix; they all see the
// same entries. Forks provide namespacing, not access control.
type Fork struct {
	table    *Table
	registry *Registry
	prefix   string
	persist  bool
}

// ForkOption configures a fork at creation.
type ForkOption func(*Fork)

// WithDefaultPersist sets the fork's default persist flag, applied to every
// Set that does not override it. Child forks inherit the parent's default
// unless they override it themselves.
func WithDefaultPersist(persist bool) ForkOption {
	return func(f *Fork) { f.persist = persist }
}

// Prefix returns the fork's fully-qualified prefix.
func (f *Fork) Prefix() string {
	return f.prefix
}

// Key returns the fully-qualified table key for a local key.
func (f *Fork) Key(localKey string) string {
	return f.prefix + Separator + localKey
}

// Fork creates and registers a child fork whose prefix is this fork's
// prefix joined with local. The child inherits this fork's default persist
// flag unless an option overrides it.
func (f *Fork) Fork(local string, opts ...ForkOption) *Fork {
	child := &Fork{
		table:    f.table,
		registry: f.registry,
		prefix:   f.prefix + Separator + local,
		persist:  f.persist,
	}
	for _, opt := range opts {
		opt(child)
	}

	f.registry.register(child.prefix)
	f.table.emit(EventFork, map[string]any{"prefix": child.prefix})

	return child
}

// Get reads the table entry for a local key.
func (f *Fork) Get(localKey string) (any, bool) {
	return f.table.Get(f.Key(localKey))
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	persist *bool
}

// WithPersist overrides the fork's default persist flag for one write.
func WithPersist(persist bool) SetOption {
	return func(o *setOptions) { o.persist = &persist }
}

// Set writes a local key through to the table. The effective persist flag
// is the explicit WithPersist option if given, else the fork's default.
func (f *Fork) Set(localKey string, val any, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	persist := f.persist
	if o.persist != nil {
		persist = *o.persist
	}

	f.table.Set(f.Key(localKey), val, persist)
}
