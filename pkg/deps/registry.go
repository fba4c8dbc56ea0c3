package deps

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/noscripts/pkg/errors"
)

// Registry maps resolution paths to resolved packages. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.RWMutex
	pkgs map[string]*Package
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pkgs: make(map[string]*Package)}
}

// Claim inserts p if no package is registered at p.Path yet and reports
// whether it did. The check and the insert happen under one lock.
func (r *Registry) Claim(p *Package) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pkgs[p.Path]; ok {
		return false
	}
	r.pkgs[p.Path] = p
	return true
}

// Has reports whether a package is registered at path.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pkgs[path]
	return ok
}

// Get returns the package registered at path.
func (r *Registry) Get(path string) (*Package, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pkgs[path]
	return p, ok
}

// Len returns the number of registered packages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pkgs)
}

// Packages returns all packages sorted by resolution path.
func (r *Registry) Packages() []*Package {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Package, 0, len(r.pkgs))
	for _, path := range slices.Sorted(maps.Keys(r.pkgs)) {
		out = append(out, r.pkgs[path])
	}
	return out
}

// Names returns the distinct manifest names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.pkgs))
	for _, p := range r.pkgs {
		seen[p.Name()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Merge copies every package of other whose path is not yet registered.
// Existing entries are never overwritten. It returns the number added.
func (r *Registry) Merge(other *Registry) int {
	added := 0
	for _, p := range other.Packages() {
		if r.Claim(p) {
			added++
		}
	}
	return added
}

// RemoveIgnored removes every package whose manifest name is in names and
// returns how many distinct names matched. Once the whole registry has been
// filtered, any name that matched nothing is reported as
// IGNORE_LIST_MISMATCH; the registry is still filtered in that case but
// callers must treat it as unusable.
func (r *Registry) RemoveIgnored(names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	ignore := make(map[string]bool, len(names))
	for _, n := range names {
		ignore[n] = false
	}

	r.mu.Lock()
	for path, p := range r.pkgs {
		if _, ok := ignore[p.Name()]; ok {
			delete(r.pkgs, path)
			ignore[p.Name()] = true
		}
	}
	r.mu.Unlock()

	var missing []string
	matched := 0
	for name, found := range ignore {
		if found {
			matched++
		} else {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return matched, errors.New(errors.ErrCodeIgnoreListMismatch,
			"failed to find ignored package: %s", strings.Join(missing, ", "))
	}
	return matched, nil
}
