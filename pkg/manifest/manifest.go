package manifest

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/noscripts/pkg/errors"
)

// FileName is the manifest file npm reads in every package directory.
const FileName = "package.json"

// Section flags record which optional sections were present in the raw file.
type Section uint16

const (
	SectionScripts Section = 1 << iota
	SectionDependencies
	SectionOptionalDependencies
	SectionPeerDependencies
	SectionBundledDependencies
	SectionDevDependencies
	SectionWorkspaces
)

// Manifest is a normalized package.json. It is never mutated after loading.
type Manifest struct {
	Name    string
	Version string

	Scripts              map[string]string // script name -> shell command
	Dependencies         map[string]string
	OptionalDependencies map[string]string
	PeerDependencies     map[string]string
	PeerDependenciesMeta map[string]PeerMeta
	DevDependencies      map[string]string
	BundledDependencies  []string
	Workspaces           []string // member globs, relative to Dir

	Dir      string  // directory the manifest was read from ("" when parsed from memory)
	Sections Section // optional sections present in the raw file
}

// PeerMeta is the per-peer entry of "peerDependenciesMeta".
type PeerMeta struct {
	Optional bool `json:"optional"`
}

// Has reports whether the raw manifest declared the given section.
func (m *Manifest) Has(s Section) bool { return m.Sections&s != 0 }

// Ref returns the "name@version" form used in log lines and reports.
func (m *Manifest) Ref() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// Read loads and normalizes dir/package.json.
func Read(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeManifestNotFound, err, "no %s in %s", FileName, dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "failed to read %s", path)
	}
	return Parse(data, dir)
}

// ReadUp loads the nearest package.json at or above dir.
func ReadUp(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid directory %s", dir)
	}
	for cur := abs; ; {
		m, err := Read(cur)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, errors.ErrCodeManifestNotFound) {
			return nil, err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, errors.New(errors.ErrCodeManifestNotFound, "failed to find %s for module at %s", FileName, abs)
		}
		cur = parent
	}
}

// Parse decodes raw package.json content. dir is used to probe for files
// that imply scripts (binding.gyp, server.js); pass "" to skip the probes.
func Parse(data []byte, dir string) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "failed to parse %s at %s", FileName, dir)
	}

	m := &Manifest{
		Name:                 strings.TrimSpace(raw.Name),
		Version:              strings.TrimSpace(raw.Version),
		Dependencies:         raw.Dependencies,
		OptionalDependencies: raw.OptionalDependencies,
		PeerDependencies:     raw.PeerDependencies,
		PeerDependenciesMeta: raw.PeerDependenciesMeta,
		DevDependencies:      raw.DevDependencies,
		Dir:                  dir,
	}

	m.Scripts = stringScripts(raw.Scripts)
	m.setSection(SectionScripts, raw.Scripts != nil)
	m.setSection(SectionDependencies, raw.Dependencies != nil)
	m.setSection(SectionOptionalDependencies, raw.OptionalDependencies != nil)
	m.setSection(SectionPeerDependencies, raw.PeerDependencies != nil)
	m.setSection(SectionDevDependencies, raw.DevDependencies != nil)

	bundled := raw.BundledDependencies
	if bundled == nil {
		bundled = raw.BundleDependencies
	}
	names, err := bundledNames(bundled, m.Dependencies)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid bundledDependencies in %s at %s", FileName, dir)
	}
	m.BundledDependencies = names
	m.setSection(SectionBundledDependencies, bundled != nil)

	ws, err := workspaceGlobs(raw.Workspaces)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid workspaces in %s at %s", FileName, dir)
	}
	m.Workspaces = ws
	m.setSection(SectionWorkspaces, raw.Workspaces != nil)

	if dir != "" {
		m.applyImpliedScripts(raw.Gypfile)
	}
	return m, nil
}

func (m *Manifest) setSection(s Section, present bool) {
	if present {
		m.Sections |= s
	}
}

// applyImpliedScripts adds the scripts npm runs for a package even though
// its package.json does not declare them.
func (m *Manifest) applyImpliedScripts(gypfile *bool) {
	_, hasInstall := m.Scripts["install"]
	_, hasPreinstall := m.Scripts["preinstall"]
	if !hasInstall && !hasPreinstall && (gypfile == nil || *gypfile) && fileExists(filepath.Join(m.Dir, "binding.gyp")) {
		m.addScript("install", "node-gyp rebuild")
	}
	if _, ok := m.Scripts["start"]; !ok && fileExists(filepath.Join(m.Dir, "server.js")) {
		m.addScript("start", "node server.js")
	}
}

func (m *Manifest) addScript(name, cmd string) {
	if m.Scripts == nil {
		m.Scripts = make(map[string]string)
	}
	m.Scripts[name] = cmd
}

func stringScripts(in map[string]any) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for name, v := range in {
		if s, ok := v.(string); ok {
			out[name] = s
		}
	}
	return out
}

func bundledNames(raw json.RawMessage, deps map[string]string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var all bool
	if err := json.Unmarshal(raw, &all); err == nil {
		if !all {
			return nil, nil
		}
		return slices.Sorted(maps.Keys(deps)), nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func workspaceGlobs(raw json.RawMessage) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var globs []string
	if err := json.Unmarshal(raw, &globs); err == nil {
		return globs, nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj.Packages, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type rawManifest struct {
	Name                 string              `json:"name"`
	Version              string              `json:"version"`
	Scripts              map[string]any      `json:"scripts"`
	Dependencies         map[string]string   `json:"dependencies"`
	OptionalDependencies map[string]string   `json:"optionalDependencies"`
	PeerDependencies     map[string]string   `json:"peerDependencies"`
	PeerDependenciesMeta map[string]PeerMeta `json:"peerDependenciesMeta"`
	DevDependencies      map[string]string   `json:"devDependencies"`
	BundledDependencies  json.RawMessage     `json:"bundledDependencies"`
	BundleDependencies   json.RawMessage     `json:"bundleDependencies"`
	Workspaces           json.RawMessage     `json:"workspaces"`
	Gypfile              *bool               `json:"gypfile"`
}
