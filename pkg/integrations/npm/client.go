package npm

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/noscripts/pkg/buildinfo"
	"github.com/matzehuels/noscripts/pkg/cache"
	nserrors "github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/integrations"
	"github.com/matzehuels/noscripts/pkg/integrity"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// Options configures a Client.
type Options struct {
	Cache    cache.Cache   // tarball cache; nil disables caching
	Keyer    cache.Keyer   // cache key builder; nil uses cache.NewDefaultKeyer
	TTL      time.Duration // cache entry lifetime; zero keeps entries forever
	Registry string        // registry base URL; empty uses DefaultRegistry
	Token    string        // bearer token sent to the registry
	Timeout  time.Duration // per-request timeout; zero uses the client default
}

// Client fetches and verifies tarballs.
type Client struct {
	*integrations.Client
	keyer    cache.Keyer
	registry string
	token    string
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Registry == "" {
		opts.Registry = DefaultRegistry
	}
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}

	base := integrations.NewClient(opts.Cache, "tarball", opts.TTL, headers)
	if opts.Timeout > 0 {
		base.SetHTTPClient(integrations.NewHTTPClient(opts.Timeout))
	}
	return &Client{
		Client:   base,
		keyer:    opts.Keyer,
		registry: strings.TrimSuffix(opts.Registry, "/"),
		token:    opts.Token,
	}
}

// Registry returns the registry base URL.
func (c *Client) Registry() string { return c.registry }

var magicHosts = []string{"https://registry.npmjs.org", "http://registry.npmjs.org"}

// ResolveURL rewrites tarball URLs on registry.npmjs.org to the configured
// registry. Other URLs are returned unchanged.
func (c *Client) ResolveURL(resolved string) string {
	for _, host := range magicHosts {
		if rest, ok := strings.CutPrefix(resolved, host); ok && (rest == "" || rest[0] == '/') {
			return c.registry + rest
		}
	}
	return resolved
}

// authHeaders returns the Authorization header for target when it is served
// by the configured registry. Any other host gets no credentials.
func (c *Client) authHeaders(target string) map[string]string {
	if c.token == "" || !sameOrigin(c.registry, target) {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.token}
}

// sameOrigin reports whether a and b share scheme and host (including port).
func sameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}

// FetchTarball downloads the tarball at url and verifies it against the SRI
// string sri. A cached copy is used when its digest still matches.
func (c *Client) FetchTarball(ctx context.Context, url, sri string) ([]byte, error) {
	if err := nserrors.ValidateURL(url); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sri) == "" {
		return nil, nserrors.New(nserrors.ErrCodeInvalidLockfile, "missing integrity for %s", url)
	}
	if _, err := integrity.Parse(sri); err != nil {
		return nil, err
	}

	url = c.ResolveURL(url)
	key := c.keyer.TarballKey(sri)
	fetch := func() ([]byte, error) {
		data, err := c.GetBytesWithHeaders(ctx, url, c.authHeaders(url))
		if err != nil {
			return nil, err
		}
		if err := integrity.Verify(data, sri); err != nil {
			return nil, nserrors.Wrap(nserrors.ErrCodeIntegrityMismatch, err, "tarball %s failed verification", url)
		}
		return data, nil
	}

	data, err := c.CachedBytes(ctx, key, false, fetch)
	if err == nil && integrity.Verify(data, sri) != nil {
		// Corrupted cache entry.
		_ = c.Evict(ctx, key)
		data, err = c.CachedBytes(ctx, key, true, fetch)
	}
	if err != nil {
		return nil, fetchError(url, err)
	}
	return data, nil
}

func fetchError(url string, err error) error {
	switch {
	case nserrors.GetCode(err) != "":
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, integrations.ErrNotFound):
		return nserrors.Wrap(nserrors.ErrCodeFetchFailed, err, "tarball not found: %s", url)
	case errors.Is(err, integrations.ErrNetwork):
		return nserrors.Wrap(nserrors.ErrCodeNetwork, err, "failed to fetch %s", url)
	default:
		return nserrors.Wrap(nserrors.ErrCodeFetchFailed, err, "failed to fetch %s", url)
	}
}
