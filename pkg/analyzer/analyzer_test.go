package analyzer

import (
	"slices"
	"testing"

	"github.com/matzehuels/noscripts/pkg/deps"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

func pkg(path string, scripts map[string]string) *deps.Package {
	return &deps.Package{
		Manifest: &manifest.Manifest{Name: path, Version: "1.0.0", Scripts: scripts},
		Path:     path,
	}
}

func TestAnalyzePackage(t *testing.T) {
	tests := []struct {
		name    string
		scripts map[string]string
		want    []string
	}{
		{"no scripts", nil, nil},
		{"build only", map[string]string{"build": "tsc", "test": "jest", "prepare": "husky"}, nil},
		{
			"postinstall",
			map[string]string{"postinstall": "node setup.js"},
			[]string{`Contains "postinstall" script executing: node setup.js`},
		},
		{
			"all lifecycle scripts in order",
			map[string]string{
				"postuninstall": "e",
				"install":       "b",
				"preinstall":    "a",
				"preuninstall":  "d",
				"postinstall":   "c",
				"start":         "node server.js",
			},
			[]string{
				`Contains "preinstall" script executing: a`,
				`Contains "install" script executing: b`,
				`Contains "postinstall" script executing: c`,
				`Contains "preuninstall" script executing: d`,
				`Contains "postuninstall" script executing: e`,
			},
		},
		{
			"implied node-gyp install",
			map[string]string{"install": "node-gyp rebuild"},
			[]string{`Contains "install" script executing: node-gyp rebuild`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzePackage(pkg("x", tt.scripts))
			if !slices.Equal(got.Messages, tt.want) {
				t.Errorf("Messages = %q, want %q", got.Messages, tt.want)
			}
			if got.HasFindings() != (len(tt.want) > 0) {
				t.Errorf("HasFindings() = %v", got.HasFindings())
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	reg := deps.NewRegistry()
	reg.Claim(pkg("/b", map[string]string{"preinstall": "x", "postinstall": "y"}))
	reg.Claim(pkg("/a", map[string]string{"build": "tsc"}))
	reg.Claim(pkg("/c", map[string]string{"install": "z"}))

	res := Analyze(reg)
	if len(res.Packages) != 3 {
		t.Fatalf("Packages = %d, want 3", len(res.Packages))
	}
	if res.Findings != 2 {
		t.Errorf("Findings = %d, want 2 (packages, not messages)", res.Findings)
	}
	if res.Packages[0].Package.Path != "/a" {
		t.Errorf("results not in path order: first = %s", res.Packages[0].Package.Path)
	}

	flagged := res.Flagged()
	if len(flagged) != 2 || flagged[0].Package.Path != "/b" || flagged[1].Package.Path != "/c" {
		t.Errorf("Flagged() = %+v", flagged)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	res := Analyze(deps.NewRegistry())
	if res.Findings != 0 || len(res.Packages) != 0 {
		t.Errorf("Analyze(empty) = %+v", res)
	}
}
