// Package analyzer flags packages whose manifests declare lifecycle scripts
// that npm runs automatically on install or uninstall.
package analyzer

import (
	"fmt"

	"github.com/matzehuels/noscripts/pkg/deps"
)

// InstallScripts are the lifecycle scripts npm executes without being asked.
var InstallScripts = []string{"preinstall", "install", "postinstall", "preuninstall", "postuninstall"}

// Result is the analysis of one package.
type Result struct {
	Package  *deps.Package
	Messages []string
}

// HasFindings reports whether the package declares any install script.
func (r Result) HasFindings() bool { return len(r.Messages) > 0 }

// Results is the analysis of a whole registry.
type Results struct {
	Packages []Result
	Findings int // number of packages with at least one message
}

// Flagged returns the results with findings.
func (rs *Results) Flagged() []Result {
	var out []Result
	for _, r := range rs.Packages {
		if r.HasFindings() {
			out = append(out, r)
		}
	}
	return out
}

// Analyze checks every package in reg, in resolution path order.
func Analyze(reg *deps.Registry) *Results {
	pkgs := reg.Packages()
	res := &Results{Packages: make([]Result, 0, len(pkgs))}
	for _, p := range pkgs {
		r := AnalyzePackage(p)
		if r.HasFindings() {
			res.Findings++
		}
		res.Packages = append(res.Packages, r)
	}
	return res
}

// AnalyzePackage checks a single package. Messages follow the order of
// InstallScripts.
func AnalyzePackage(p *deps.Package) Result {
	var msgs []string
	for _, name := range InstallScripts {
		if cmd, ok := p.Manifest.Scripts[name]; ok {
			msgs = append(msgs, fmt.Sprintf("Contains %q script executing: %s", name, cmd))
		}
	}
	return Result{Package: p, Messages: msgs}
}
