package lockfile

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/noscripts/pkg/errors"
)

const (
	// FileName is the regular npm lockfile.
	FileName = "package-lock.json"
	// ShrinkwrapFileName is the publishable lockfile variant.
	ShrinkwrapFileName = "npm-shrinkwrap.json"
)

// Lockfile is a parsed package-lock.json or npm-shrinkwrap.json.
type Lockfile struct {
	Name            string           `json:"name"`
	Version         string           `json:"version"`
	LockfileVersion int              `json:"lockfileVersion"`
	Packages        map[string]Entry `json:"packages"` // install location -> entry

	Path string `json:"-"` // file the lockfile was read from
}

// Entry is one install location in a lockfile.
type Entry struct {
	Version          string `json:"version"`
	Resolved         string `json:"resolved"`
	Integrity        string `json:"integrity"`
	Link             bool   `json:"link"`
	Dev              bool   `json:"dev"`
	Optional         bool   `json:"optional"`
	DevOptional      bool   `json:"devOptional"`
	InBundle         bool   `json:"inBundle"`
	HasInstallScript bool   `json:"hasInstallScript"`
	HasShrinkwrap    bool   `json:"hasShrinkwrap"`
}

// FileName returns the base name of the file the lockfile was read from.
func (l *Lockfile) FileName() string { return filepath.Base(l.Path) }

// Load reads the lockfile in dir: package-lock.json if present, otherwise
// npm-shrinkwrap.json. If neither exists it fails with MISSING_LOCKFILE.
func Load(dir string) (*Lockfile, error) {
	for _, name := range []string{FileName, ShrinkwrapFileName} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "failed to read %s", path)
		}
		return Parse(data, path)
	}
	return nil, errors.New(errors.ErrCodeMissingLockfile,
		"the lockfile based analysis requires a lockfile to be present; "+
			"neither a %s nor an %s file could be found at %s", FileName, ShrinkwrapFileName, dir)
}

// Parse decodes lockfile content read from path.
func Parse(data []byte, path string) (*Lockfile, error) {
	var l Lockfile
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "failed to parse %s", path)
	}
	l.Path = path
	return &l, nil
}

// Validate rejects every lockfileVersion other than 2 and 3.
func (l *Lockfile) Validate() error {
	if l.LockfileVersion != 2 && l.LockfileVersion != 3 {
		return errors.New(errors.ErrCodeUnsupportedLockfileVersion,
			"this tool requires lockfile version '2' or '3', found '%d' in %s; "+
				"for details, see https://docs.npmjs.com/cli/configuring-npm/package-lock-json#lockfileversion",
			l.LockfileVersion, l.Path)
	}
	return nil
}

// Request is one tarball download shared by every location that resolved
// to the same URL.
type Request struct {
	URL       string
	Integrity string
	Locations []string // sorted
}

// localHint points at the strategies that need no registry download.
const localHint = "install the project and rerun with --offline to analyze node_modules instead"

// Requests groups the fetchable entries by resolved URL. The root entry,
// links, and entries without a resolved URL are skipped. Locations that could
// escape the scratch directory, non-http sources, and entries without an
// integrity string are rejected. The result is sorted by URL.
func (l *Lockfile) Requests() ([]Request, error) {
	byURL := make(map[string]*Request)
	for _, loc := range slices.Sorted(maps.Keys(l.Packages)) {
		e := l.Packages[loc]
		if loc == "" || e.Link || e.Resolved == "" {
			continue
		}
		if err := errors.ValidateLocation(loc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "invalid location %q in %s", loc, l.Path)
		}
		if err := errors.ValidateURL(e.Resolved); err != nil {
			return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeUnsupportedSource), err,
				"cannot fetch %s from the registry; %s", loc, localHint)
		}
		if strings.TrimSpace(e.Integrity) == "" {
			return nil, errors.New(errors.ErrCodeInvalidLockfile,
				"missing integrity for %s in %s; %s", loc, l.Path, localHint)
		}

		if req, ok := byURL[e.Resolved]; ok {
			req.Locations = append(req.Locations, loc)
			continue
		}
		byURL[e.Resolved] = &Request{URL: e.Resolved, Integrity: e.Integrity, Locations: []string{loc}}
	}

	out := make([]Request, 0, len(byURL))
	for _, url := range slices.Sorted(maps.Keys(byURL)) {
		out = append(out, *byURL[url])
	}
	return out, nil
}
