package deps

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

func pkg(name, path string) *Package {
	return &Package{Manifest: &manifest.Manifest{Name: name, Version: "1.0.0"}, Path: path}
}

func TestRegistryClaim(t *testing.T) {
	r := NewRegistry()

	if !r.Claim(pkg("a", "/nm/a")) {
		t.Fatal("first Claim() = false, want true")
	}
	if r.Claim(pkg("a-again", "/nm/a")) {
		t.Error("second Claim() for same path = true, want false")
	}
	if got, _ := r.Get("/nm/a"); got.Name() != "a" {
		t.Errorf("Get() name = %q, want first writer %q", got.Name(), "a")
	}

	// Same name and version at another path is a distinct entry.
	if !r.Claim(pkg("a", "/nm/b/nm/a")) {
		t.Error("Claim() at a different path = false, want true")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistryClaimConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if r.Claim(pkg(fmt.Sprintf("p%d", i), "/shared")) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("concurrent claims won = %d, want exactly 1", wins)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryPackagesAndNames(t *testing.T) {
	r := NewRegistry()
	r.Claim(pkg("b", "/z"))
	r.Claim(pkg("a", "/y"))
	r.Claim(pkg("a", "/x"))

	var paths []string
	for _, p := range r.Packages() {
		paths = append(paths, p.Path)
	}
	if want := []string{"/x", "/y", "/z"}; !slices.Equal(paths, want) {
		t.Errorf("Packages() paths = %v, want %v", paths, want)
	}
	if want := []string{"a", "b"}; !slices.Equal(r.Names(), want) {
		t.Errorf("Names() = %v, want %v", r.Names(), want)
	}
}

func TestRegistryMergeFirstWriteWins(t *testing.T) {
	root := NewRegistry()
	root.Claim(pkg("shared-root-copy", "/nm/shared"))

	member := NewRegistry()
	member.Claim(pkg("shared-member-copy", "/nm/shared"))
	member.Claim(pkg("only-member", "/ws/nm/only-member"))

	added := root.Merge(member)
	if added != 1 {
		t.Errorf("Merge() added = %d, want 1", added)
	}
	if root.Len() != 2 {
		t.Errorf("Len() = %d, want 2", root.Len())
	}
	if got, _ := root.Get("/nm/shared"); got.Name() != "shared-root-copy" {
		t.Errorf("merged entry overwritten: got %q", got.Name())
	}
	if !root.Has("/ws/nm/only-member") {
		t.Error("member-only package missing after merge")
	}
}

func TestRegistryRemoveIgnored(t *testing.T) {
	tests := []struct {
		name        string
		ignore      []string
		wantLen     int
		wantMatched int
		wantErr     string
	}{
		{"nothing ignored", nil, 3, 0, ""},
		{"present name removes every copy", []string{"a"}, 1, 1, ""},
		{"all present", []string{"a", "b"}, 0, 2, ""},
		{"absent name", []string{"a", "typo", "also-missing"}, 1, 1, "also-missing, typo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Claim(pkg("a", "/nm/a"))
			r.Claim(pkg("a", "/nm/x/nm/a"))
			r.Claim(pkg("b", "/nm/b"))

			matched, err := r.RemoveIgnored(tt.ignore)
			if tt.wantErr != "" {
				if !errors.Is(err, errors.ErrCodeIgnoreListMismatch) {
					t.Fatalf("RemoveIgnored() error = %v, want IGNORE_LIST_MISMATCH", err)
				}
				if want := "failed to find ignored package: " + tt.wantErr; errors.UserMessage(err) != want {
					t.Errorf("message = %q, want %q", errors.UserMessage(err), want)
				}
			} else if err != nil {
				t.Fatalf("RemoveIgnored() error: %v", err)
			}
			if matched != tt.wantMatched {
				t.Errorf("matched = %d, want %d", matched, tt.wantMatched)
			}
			if r.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", r.Len(), tt.wantLen)
			}
		})
	}
}
