package cppdbc

import (
	"context"
	"sync"

	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// DriverRegistry is a process-wide, concurrency-safe map from URL scheme to
// Driver. The zero value is not usable; construct with NewDriverRegistry.
// A package-level Default registry covers the common case of registering
// drivers via their own init-time Register call.
type DriverRegistry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewDriverRegistry returns an empty registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{drivers: make(map[string]Driver)}
}

// Default is the registry consulted by package-level Register/Connect.
// Drivers typically call cppdbc.Register from their own package's init or
// from an explicit setup call in main.
var Default = NewDriverRegistry()

// Register is a convenience wrapper around Default.Register.
func Register(d Driver) { Default.Register(d) }

// Lookup is a convenience wrapper around Default.Lookup.
func Lookup(scheme string) (Driver, bool) { return Default.Lookup(scheme) }

// Connect is a convenience wrapper around Default.Connect.
func Connect(ctx context.Context, url, user, password string, opts Options) (Connection, error) {
	return Default.Connect(ctx, url, user, password, opts)
}

// Register adds d under its Scheme(). The first registration for a scheme
// wins; later registrations for the same scheme are silently ignored
// (unlike database/sql.Register, which panics on a duplicate name).
func (r *DriverRegistry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scheme := d.Scheme()
	if _, exists := r.drivers[scheme]; exists {
		return
	}
	r.drivers[scheme] = d
}

// Unregister removes the driver registered under scheme, if any.
func (r *DriverRegistry) Unregister(scheme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drivers, scheme)
}

// Clear removes every registered driver. Intended for test isolation.
func (r *DriverRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = make(map[string]Driver)
}

// Lookup returns the driver registered for scheme, if any.
func (r *DriverRegistry) Lookup(scheme string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[scheme]
	return d, ok
}

// Schemes lists every currently registered scheme.
func (r *DriverRegistry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.drivers))
	for s := range r.drivers {
		out = append(out, s)
	}
	return out
}

// Connect parses url, resolves its scheme to a registered Driver, and opens
// a Connection through it. It fails with CodeInvalidUrl if url is malformed
// and CodeNoDriver if no driver answers the scheme.
func (r *DriverRegistry) Connect(ctx context.Context, url, user, password string, opts Options) (Connection, error) {
	parsed, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	d, ok := r.Lookup(parsed.Scheme)
	if !ok {
		return nil, cerrors.Newf(cerrors.CodeNoDriver, "no driver registered for scheme %q", parsed.Scheme)
	}

	return d.Connect(ctx, url, user, password, opts)
}

// RequireFamily resolves url's driver and fails with CodeWrongDriverFamily
// if it does not match want. Callers that operate exclusively on relational
// or columnar backends (the connection pool, for instance) use this to
// reject a mismatched URL before attempting to connect.
func (r *DriverRegistry) RequireFamily(url string, want Family) (Driver, error) {
	parsed, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	d, ok := r.Lookup(parsed.Scheme)
	if !ok {
		return nil, cerrors.Newf(cerrors.CodeNoDriver, "no driver registered for scheme %q", parsed.Scheme)
	}

	if d.Family() != want {
		return nil, cerrors.Newf(cerrors.CodeWrongDriverFamily,
			"driver %q is %s, want %s", parsed.Scheme, d.Family(), want)
	}

	return d, nil
}
