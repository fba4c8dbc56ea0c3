package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
	"github.com/matzehuels/noscripts/pkg/report"
)

func newReport(name string, created time.Time, findings int) *report.Report {
	r := report.New(&manifest.Manifest{Name: name, Version: "1.0.0", Dir: "/" + name})
	r.CreatedAt = created
	s := report.Strategy{Name: "lockfile", Source: "package-lock.json", Findings: []report.Finding{}}
	for i := 0; i < findings; i++ {
		s.Findings = append(s.Findings, report.Finding{
			Package:  "pkg",
			Path:     "<lockfile>/node_modules/pkg",
			Messages: []string{`Contains "install" script executing: node-gyp rebuild`},
		})
	}
	r.Add(s)
	return r
}

// testStore runs the behavior every Store must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := newReport("old", base, 0)
	newer := newReport("new", base.Add(time.Hour), 2)
	for _, r := range []*report.Report{older, newer} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s) error: %v", r.Root.Name, err)
		}
	}

	got, err := s.Get(ctx, newer.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ID != newer.ID || got.Root.Name != "new" || got.Findings != 2 {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Strategies) != 1 || len(got.Strategies[0].Findings) != 2 {
		t.Errorf("Strategies = %+v", got.Strategies)
	}
	if !got.CreatedAt.Equal(newer.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, newer.CreatedAt)
	}

	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d reports, want 2", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("List() order = [%s %s], want newest first", list[0].Root, list[1].Root)
	}
	if list[0].Root != "new@1.0.0" || list[0].Findings != 2 {
		t.Errorf("List()[0] = %+v", list[0])
	}

	limited, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("List(1) error: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Errorf("List(1) = %+v", limited)
	}

	// Saving again replaces the stored report.
	newer.Findings = 0
	newer.Strategies = nil
	if err := s.Save(ctx, newer); err != nil {
		t.Fatalf("Save(again) error: %v", err)
	}
	got, err = s.Get(ctx, newer.ID)
	if err != nil {
		t.Fatalf("Get() after replace error: %v", err)
	}
	if got.Findings != 0 {
		t.Errorf("Findings after replace = %d, want 0", got.Findings)
	}

	if _, err := s.Get(ctx, uuid.NewString()); !errors.Is(err, errors.ErrCodeReportNotFound) {
		t.Errorf("Get(unknown) error = %v, want %s", err, errors.ErrCodeReportNotFound)
	}
	if _, err := s.Get(ctx, "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get(bad id) error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer s.Close()

	testStore(t, s)
}

func TestFileStoreSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), newReport("app", time.Now(), 0)); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() = %+v, want only the valid report", list)
	}
}

func TestFileStoreRejectsBadID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := newReport("app", time.Now(), 0)
	r.ID = "../../escape"
	if err := s.Save(context.Background(), r); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save(bad id) error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("NOSCRIPTS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NOSCRIPTS_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := "noscripts_test_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, uri, db)
	if err != nil {
		t.Fatalf("NewMongoStore() error: %v", err)
	}
	defer func() {
		_ = s.client.Database(db).Drop(context.Background())
		s.Close()
	}()

	testStore(t, s)
}
