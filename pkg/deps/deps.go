package deps

import (
	"context"
	"maps"
	"slices"

	"github.com/matzehuels/noscripts/pkg/manifest"
)

// Resolver builds a package registry starting from a root manifest.
type Resolver interface {
	// Resolve discovers every package reachable from root. The returned
	// registry is complete; on error it is nil.
	Resolve(ctx context.Context, root *manifest.Manifest) (*Registry, error)
	// Name returns the strategy identifier ("local", "lockfile").
	Name() string
}

// Package is a resolved package copy: its manifest and the resolution path
// identifying where it is (or would be) installed.
type Package struct {
	Manifest *manifest.Manifest
	Path     string // canonical directory, or "<lockfile>/<location>"
}

// Name returns the manifest name.
func (p *Package) Name() string { return p.Manifest.Name }

// Kind is the dependency section an edge was declared in.
type Kind uint8

const (
	KindRuntime Kind = iota
	KindBundled
	KindPeer
	KindDev
	KindOptional
)

var kindNames = [...]string{
	KindRuntime:  "dependencies",
	KindBundled:  "bundledDependencies",
	KindPeer:     "peerDependencies",
	KindDev:      "devDependencies",
	KindOptional: "optionalDependencies",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Edge is a declared dependency of one package. It only drives traversal
// and is never stored in a registry.
type Edge struct {
	Name     string
	Kind     Kind
	Required bool
}

// Edges returns the dependency edges of m sorted by name, one per name.
// Dev dependencies are included only when root is true. A name declared in
// optionalDependencies is optional even if it is also listed elsewhere; a
// peer is optional only when peerDependenciesMeta marks it so.
func Edges(m *manifest.Manifest, root bool) []Edge {
	edges := make(map[string]Edge)
	add := func(name string, kind Kind, required bool) {
		if e, ok := edges[name]; ok && (e.Kind == KindOptional || (e.Required && !required)) {
			return
		}
		edges[name] = Edge{Name: name, Kind: kind, Required: required}
	}

	for name := range m.Dependencies {
		add(name, KindRuntime, true)
	}
	for _, name := range m.BundledDependencies {
		add(name, KindBundled, true)
	}
	for name := range m.PeerDependencies {
		add(name, KindPeer, !m.PeerDependenciesMeta[name].Optional)
	}
	if root {
		for name := range m.DevDependencies {
			add(name, KindDev, true)
		}
	}
	for name := range m.OptionalDependencies {
		edges[name] = Edge{Name: name, Kind: KindOptional, Required: false}
	}

	out := make([]Edge, 0, len(edges))
	for _, name := range slices.Sorted(maps.Keys(edges)) {
		out = append(out, edges[name])
	}
	return out
}
