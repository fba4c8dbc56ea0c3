// Package report records the outcome of a scan.
//
// A Report holds one Strategy per resolver that ran ("lockfile", "local"),
// each listing the packages that declare install scripts. Reports carry a
// UUID so they can be saved to a store and looked up later.
//
// The text writers reproduce the console format of a scan:
//
//	# Findings for package esbuild:
//	  * Contains "postinstall" script executing: node install.js
//
//	Findings: 1
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/noscripts/pkg/analyzer"
	"github.com/matzehuels/noscripts/pkg/buildinfo"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

// Report is the result of one scan.
type Report struct {
	ID         string      `json:"id" bson:"_id"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
	Tool       string      `json:"tool" bson:"tool"`
	Root       Root        `json:"root" bson:"root"`
	Strategies []Strategy  `json:"strategies" bson:"strategies"`
	Comparison *Comparison `json:"comparison,omitempty" bson:"comparison,omitempty"`
	Findings   int         `json:"findings" bson:"findings"`
	Error      string      `json:"error,omitempty" bson:"error,omitempty"` // set when the scan failed
}

// Root identifies the scanned project.
type Root struct {
	Name    string `json:"name" bson:"name"`
	Version string `json:"version,omitempty" bson:"version,omitempty"`
	Dir     string `json:"dir" bson:"dir"`
}

// Strategy is the outcome of one resolver.
type Strategy struct {
	Name     string        `json:"name" bson:"name"`
	Source   string        `json:"source" bson:"source"` // file the graph was read from
	Packages int           `json:"packages" bson:"packages"`
	Ignored  int           `json:"ignored" bson:"ignored"`
	Duration time.Duration `json:"duration_ns" bson:"duration_ns"`
	Findings []Finding     `json:"findings" bson:"findings"`
}

// Finding is one package that declares install scripts.
type Finding struct {
	Package  string   `json:"package" bson:"package"`
	Version  string   `json:"version,omitempty" bson:"version,omitempty"`
	Path     string   `json:"path" bson:"path"`
	Messages []string `json:"messages" bson:"messages"`
}

// Comparison lists the package names seen by only one of the two strategies.
type Comparison struct {
	LockfileOnly []string `json:"lockfile_only" bson:"lockfile_only"`
	LocalOnly    []string `json:"local_only" bson:"local_only"`
}

// Summary is the listing view of a stored report.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Root      string    `json:"root"`
	Findings  int       `json:"findings"`
	Failed    bool      `json:"failed"`
}

// New starts a report for root.
func New(root *manifest.Manifest) *Report {
	return &Report{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Tool:      buildinfo.Version,
		Root:      Root{Name: root.Name, Version: root.Version, Dir: root.Dir},
	}
}

// ParseID validates a report ID.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid report id %q", id)
	}
	return u.String(), nil
}

// NewStrategy converts analyzer results into a Strategy.
func NewStrategy(name, source string, res *analyzer.Results, ignored int, d time.Duration) Strategy {
	s := Strategy{
		Name:     name,
		Source:   source,
		Packages: len(res.Packages),
		Ignored:  ignored,
		Duration: d,
		Findings: []Finding{},
	}
	for _, r := range res.Flagged() {
		s.Findings = append(s.Findings, Finding{
			Package:  r.Package.Name(),
			Version:  r.Package.Manifest.Version,
			Path:     r.Package.Path,
			Messages: slices.Clone(r.Messages),
		})
	}
	return s
}

// Add appends s and updates the finding total.
func (r *Report) Add(s Strategy) {
	r.Strategies = append(r.Strategies, s)
	r.Findings += len(s.Findings)
}

// Strategy returns the strategy with the given name.
func (r *Report) Strategy(name string) (Strategy, bool) {
	for _, s := range r.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// Fail records err as the reason the scan stopped.
func (r *Report) Fail(err error) {
	r.Error = err.Error()
}

// Failed reports whether the scan failed or any strategy produced findings.
func (r *Report) Failed() bool { return r.Findings > 0 || r.Error != "" }

// ExitCode is 1 when the report failed, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Summarize returns the listing view of r.
func (r *Report) Summarize() Summary {
	root := r.Root.Name
	if r.Root.Version != "" {
		root += "@" + r.Root.Version
	}
	return Summary{ID: r.ID, CreatedAt: r.CreatedAt, Root: root, Findings: r.Findings, Failed: r.Failed()}
}

// Compare returns the names present in only one of the two lists. Both
// results are sorted and deduplicated.
func Compare(lockfile, local []string) *Comparison {
	inLock := make(map[string]bool, len(lockfile))
	for _, n := range lockfile {
		inLock[n] = true
	}
	inLocal := make(map[string]bool, len(local))
	for _, n := range local {
		inLocal[n] = true
	}

	c := &Comparison{LockfileOnly: []string{}, LocalOnly: []string{}}
	for n := range inLock {
		if !inLocal[n] {
			c.LockfileOnly = append(c.LockfileOnly, n)
		}
	}
	for n := range inLocal {
		if !inLock[n] {
			c.LocalOnly = append(c.LocalOnly, n)
		}
	}
	slices.Sort(c.LockfileOnly)
	slices.Sort(c.LocalOnly)
	return c
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteStrategy writes the findings of s in console form.
func WriteStrategy(w io.Writer, s Strategy) error {
	ew := &errWriter{w: w}
	ew.println("")
	for _, f := range s.Findings {
		ew.printf("# Findings for package %s:\n", f.Package)
		for _, msg := range f.Messages {
			ew.printf("  * %s\n", msg)
		}
		ew.println("")
	}
	ew.printf("Findings: %d\n", len(s.Findings))
	ew.println("")
	return ew.err
}

// WriteComparison writes c in console form.
func WriteComparison(w io.Writer, c *Comparison) error {
	ew := &errWriter{w: w}
	ew.println("Comparing analyzed package sets...")
	if len(c.LockfileOnly) > 0 {
		ew.printf("Packages listed in lockfile but not found locally (%d):\n", len(c.LockfileOnly))
		for _, n := range c.LockfileOnly {
			ew.printf("  * %s\n", n)
		}
		ew.println("")
	} else {
		ew.println("All packages listed in the lockfile were analyzed locally too")
	}
	if len(c.LocalOnly) > 0 {
		ew.printf("Packages found locally but not listed in lockfile (%d):\n", len(c.LocalOnly))
		for _, n := range c.LocalOnly {
			ew.printf("  * %s\n", n)
		}
		ew.println("(this might indicate an outdated lockfile)")
	} else {
		ew.println("All packages analyzed locally are also listed in the lockfile")
	}
	ew.println("")
	return ew.err
}

// WriteText writes every strategy, the comparison when present, the failure
// reason when present, and the final status line.
func WriteText(w io.Writer, r *Report) error {
	for _, s := range r.Strategies {
		if err := WriteStrategy(w, s); err != nil {
			return err
		}
	}
	if r.Comparison != nil {
		if err := WriteComparison(w, r.Comparison); err != nil {
			return err
		}
	}
	if r.Error != "" {
		if _, err := fmt.Fprintf(w, "Analysis Failed:\n%s\n\n", r.Error); err != nil {
			return err
		}
	}
	return WriteStatus(w, r.ExitCode())
}

// WriteStatus writes the exit status line.
func WriteStatus(w io.Writer, code int) error {
	status := "SUCCESS"
	if code != 0 {
		status = "FAILED"
	}
	_, err := fmt.Fprintf(w, "Exiting with status %s(%d)\n", status, code)
	return err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) println(s string) {
	e.printf("%s\n", s)
}
