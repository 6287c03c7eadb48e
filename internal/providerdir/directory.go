package providerdir

import (
	"fmt"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// Factory constructs a Provider instance. Concrete provider packages
// register a Factory under their provider_id at init time via
// Register; cmd/prefetch and other hosts blank-import those packages
// without ever referencing the concrete type.
type Factory func() (Provider, error)

// factories is the process-wide registration table, guarded the same
// way the teacher's registries guard theirs: an RWMutex protecting a
// plain map, locked only for the brief registration/lookup critical
// section. Directory.Build snapshots it into an immutable radix tree.
var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// AlreadyRegisteredError reports a duplicate Register call for the
// same provider_id.
type AlreadyRegisteredError struct {
	ProviderID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("providerdir: provider %q already registered", e.ProviderID)
}

// Register associates a Factory with a provider_id. Intended to be
// called from a concrete provider package's init() function, mirroring
// database/sql driver registration. Panics on a duplicate id, the same
// fail-fast-at-init-time contract database/sql.Register uses.
func Register(providerID string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[providerID]; exists {
		panic(&AlreadyRegisteredError{ProviderID: providerID})
	}
	factories[providerID] = factory
}

// NotFoundError reports a lookup for a provider_id with no registered
// factory.
type NotFoundError struct {
	ProviderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("providerdir: no provider registered for %q", e.ProviderID)
}

// Directory is the immutable-after-build provider_id -> Provider
// mapping (§3). Build constructs provider instances from every
// registered Factory; lookups afterward are lock-free reads against an
// immutable radix tree snapshot.
type Directory struct {
	tree *iradix.Tree
}

// Build invokes every registered Factory and snapshots the results
// into an immutable directory. A Factory error aborts the build.
func Build() (*Directory, error) {
	factoriesMu.RLock()
	snapshot := make(map[string]Factory, len(factories))
	for id, f := range factories {
		snapshot[id] = f
	}
	factoriesMu.RUnlock()

	tree := iradix.New()
	for id, factory := range snapshot {
		provider, err := factory()
		if err != nil {
			return nil, fmt.Errorf("providerdir: factory for %q failed: %w", id, err)
		}
		tree, _, _ = tree.Insert([]byte(id), provider)
	}

	return &Directory{tree: tree}, nil
}

// Get looks up a provider by id. Returns NotFoundError if no provider
// was built under that id.
func (d *Directory) Get(providerID string) (Provider, error) {
	v, ok := d.tree.Get([]byte(providerID))
	if !ok {
		return nil, &NotFoundError{ProviderID: providerID}
	}
	return v.(Provider), nil
}

// Contains reports whether providerID has a built entry.
func (d *Directory) Contains(providerID string) bool {
	_, ok := d.tree.Get([]byte(providerID))
	return ok
}

// Len returns the number of built providers.
func (d *Directory) Len() int {
	return d.tree.Len()
}

// Each iterates every built provider in ascending provider_id order,
// stopping early if fn returns false. internal/runtime uses this for
// global provider warmup and cmd/prefetch for locality partitioning.
func (d *Directory) Each(fn func(providerID string, p Provider) bool) {
	it := d.tree.Root().Iterator()
	for {
		k, v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(string(k), v.(Provider)) {
			return
		}
	}
}

// ResetForTest clears the process-wide registration table. It exists
// solely so package tests can register fixture factories without
// colliding across test binaries; production code never calls it.
func ResetForTest() {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories = map[string]Factory{}
}
