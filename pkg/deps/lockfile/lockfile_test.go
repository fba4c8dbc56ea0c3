package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/noscripts/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		wantFile string
		wantCode errors.Code
	}{
		{
			name:     "package-lock",
			files:    map[string]string{FileName: `{"name":"app","lockfileVersion":3,"packages":{}}`},
			wantFile: FileName,
		},
		{
			name:     "shrinkwrap fallback",
			files:    map[string]string{ShrinkwrapFileName: `{"name":"app","lockfileVersion":2,"packages":{}}`},
			wantFile: ShrinkwrapFileName,
		},
		{
			name: "package-lock preferred",
			files: map[string]string{
				FileName:           `{"name":"app","lockfileVersion":3}`,
				ShrinkwrapFileName: `{"name":"app","lockfileVersion":2}`,
			},
			wantFile: FileName,
		},
		{
			name:     "missing",
			files:    map[string]string{},
			wantCode: errors.ErrCodeMissingLockfile,
		},
		{
			name:     "malformed",
			files:    map[string]string{FileName: `{"lockfileVersion":`},
			wantCode: errors.ErrCodeInvalidLockfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, name), content)
			}

			lf, err := Load(dir)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Load() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if lf.FileName() != tt.wantFile {
				t.Errorf("FileName() = %q, want %q", lf.FileName(), tt.wantFile)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, v := range []int{0, 1, 4} {
		if err := (&Lockfile{LockfileVersion: v}).Validate(); !errors.Is(err, errors.ErrCodeUnsupportedLockfileVersion) {
			t.Errorf("Validate(v%d) = %v, want UNSUPPORTED_LOCKFILE_VERSION", v, err)
		}
	}
	for _, v := range []int{2, 3} {
		if err := (&Lockfile{LockfileVersion: v}).Validate(); err != nil {
			t.Errorf("Validate(v%d) = %v, want nil", v, err)
		}
	}
}

func TestRequests(t *testing.T) {
	lf := &Lockfile{
		LockfileVersion: 3,
		Packages: map[string]Entry{
			"":                              {Version: "1.0.0"},
			"node_modules/a":                {Resolved: "https://r/a-1.tgz", Integrity: "sha512-a"},
			"node_modules/b":                {Resolved: "https://r/b-1.tgz", Integrity: "sha512-b"},
			"node_modules/c/node_modules/a": {Resolved: "https://r/a-1.tgz", Integrity: "sha512-a"},
			"node_modules/linked":           {Link: true, Resolved: "packages/linked"},
			"node_modules/local":            {Version: "1.0.0"},
			"packages/linked":               {Version: "0.0.1"},
			"node_modules/d/node_modules/b": {Resolved: "https://r/b-2.tgz", Integrity: "sha512-b2"},
		},
	}

	reqs, err := lf.Requests()
	if err != nil {
		t.Fatalf("Requests() error: %v", err)
	}

	want := []Request{
		{URL: "https://r/a-1.tgz", Integrity: "sha512-a", Locations: []string{"node_modules/a", "node_modules/c/node_modules/a"}},
		{URL: "https://r/b-1.tgz", Integrity: "sha512-b", Locations: []string{"node_modules/b"}},
		{URL: "https://r/b-2.tgz", Integrity: "sha512-b2", Locations: []string{"node_modules/d/node_modules/b"}},
	}
	if len(reqs) != len(want) {
		t.Fatalf("Requests() = %+v, want %+v", reqs, want)
	}
	for i := range want {
		if reqs[i].URL != want[i].URL || reqs[i].Integrity != want[i].Integrity {
			t.Errorf("request[%d] = %+v, want %+v", i, reqs[i], want[i])
		}
		if len(reqs[i].Locations) != len(want[i].Locations) {
			t.Errorf("request[%d].Locations = %v, want %v", i, reqs[i].Locations, want[i].Locations)
			continue
		}
		for j := range want[i].Locations {
			if reqs[i].Locations[j] != want[i].Locations[j] {
				t.Errorf("request[%d].Locations = %v, want %v", i, reqs[i].Locations, want[i].Locations)
			}
		}
	}
}

func TestRequestsRejected(t *testing.T) {
	tests := []struct {
		name     string
		loc      string
		entry    Entry
		wantCode errors.Code
		wantHint bool
	}{
		{"traversal", "node_modules/../../etc", Entry{Resolved: "https://r/x.tgz", Integrity: "sha512-x"}, errors.ErrCodeInvalidLockfile, false},
		{"absolute", "/etc/passwd", Entry{Resolved: "https://r/x.tgz", Integrity: "sha512-x"}, errors.ErrCodeInvalidLockfile, false},
		{"git source", "node_modules/x", Entry{Resolved: "git+ssh://git@github.com/x/x.git#abc", Integrity: "sha512-x"}, errors.ErrCodeUnsupportedSource, true},
		{"missing integrity", "node_modules/x", Entry{Resolved: "https://r/x.tgz"}, errors.ErrCodeInvalidLockfile, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := &Lockfile{LockfileVersion: 3, Packages: map[string]Entry{tt.loc: tt.entry}}
			_, err := lf.Requests()
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Requests() error = %v, want %s", err, tt.wantCode)
			}
			if tt.wantHint && !strings.Contains(err.Error(), "--offline") {
				t.Errorf("Requests() error %q does not suggest --offline", err)
			}
		})
	}
}

func TestScratch(t *testing.T) {
	tmp := t.TempDir()
	leftover := filepath.Join(tmp, "noscripts", "test-scope-app", "packages", "stale")
	if err := os.MkdirAll(leftover, 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := NewScratch(tmp, "@scope/app")
	if err != nil {
		t.Fatalf("NewScratch() error: %v", err)
	}
	if s.Root != filepath.Join(tmp, "noscripts", "test-scope-app") {
		t.Errorf("Root = %s", s.Root)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("leftovers from an earlier run were not removed")
	}

	if got, want := s.PackageDir("node_modules/a/node_modules/b"), filepath.Join(s.Root, "packages", "a", "node_modules", "b"); got != want {
		t.Errorf("PackageDir() = %s, want %s", got, want)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Root); !os.IsNotExist(err) {
		t.Error("Close() did not remove the scratch tree")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"app":          "app",
		"@scope/app":   "scope-app",
		"":             "unnamed",
		"..":           "unnamed",
		"weird name!":  "weird-name-",
		"under_score.": "under_score.",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
