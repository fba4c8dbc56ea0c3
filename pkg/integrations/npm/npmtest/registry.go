// Package npmtest provides an in-process npm registry for tests.
package npmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/noscripts/pkg/integrity"
	"github.com/matzehuels/noscripts/pkg/tarball"
)

// Registry serves published tarballs and counts requests.
type Registry struct {
	URL string

	server *httptest.Server
	mu     sync.Mutex
	files  map[string][]byte // request path -> body
	status map[string]int    // request path -> forced status
	hits   map[string]int
	total  int
	hook   func(*http.Request)
}

// NewRegistry starts a registry that is shut down when the test ends.
func NewRegistry(t testing.TB) *Registry {
	t.Helper()
	r := &Registry{
		files:  make(map[string][]byte),
		status: make(map[string]int),
		hits:   make(map[string]int),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(r.count)
	router.Get("/*", r.serveTarball)

	r.server = httptest.NewServer(router)
	r.URL = r.server.URL
	t.Cleanup(r.server.Close)
	return r
}

// Client returns an HTTP client for the registry.
func (r *Registry) Client() *http.Client { return r.server.Client() }

// Publish stores a tarball for name@version containing files (relative path
// -> content) under the usual "package/" prefix. It returns the tarball URL
// and its sha512 integrity string.
func (r *Registry) Publish(t testing.TB, name, version string, files map[string]string) (url, sri string) {
	t.Helper()
	data, err := tarball.Build("package", files)
	if err != nil {
		t.Fatalf("build tarball for %s@%s: %v", name, version, err)
	}
	p := "/" + name + "/-/" + path.Base(name) + "-" + version + ".tgz"

	r.mu.Lock()
	r.files[p] = data
	r.mu.Unlock()
	return r.URL + p, integrity.Sum("sha512", data).String()
}

// PublishManifest publishes a package whose only file is package.json built
// from fields. name and version are filled in when missing.
func (r *Registry) PublishManifest(t testing.TB, name, version string, fields map[string]any) (url, sri string) {
	t.Helper()
	m := map[string]any{"name": name, "version": version}
	for k, v := range fields {
		m[k] = v
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return r.Publish(t, name, version, map[string]string{"package.json": string(data)})
}

// SetStatus makes every request for url answer with code.
func (r *Registry) SetStatus(url string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[r.pathOf(url)] = code
}

// Tamper replaces the body served for url without changing its recorded
// integrity.
func (r *Registry) Tamper(url string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[r.pathOf(url)] = body
}

// OnRequest registers fn to be called with every incoming request.
func (r *Registry) OnRequest(fn func(*http.Request)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
}

// Hits returns the total number of requests served.
func (r *Registry) Hits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// HitsFor returns the number of requests for url.
func (r *Registry) HitsFor(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[r.pathOf(url)]
}

func (r *Registry) pathOf(url string) string {
	if len(url) >= len(r.URL) && url[:len(r.URL)] == r.URL {
		return url[len(r.URL):]
	}
	return url
}

func (r *Registry) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.total++
		r.hits[req.URL.Path]++
		hook := r.hook
		r.mu.Unlock()
		if hook != nil {
			hook(req)
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Registry) serveTarball(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	code, forced := r.status[req.URL.Path]
	data, ok := r.files[req.URL.Path]
	r.mu.Unlock()

	switch {
	case forced:
		w.WriteHeader(code)
	case !ok:
		http.NotFound(w, req)
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}
}
