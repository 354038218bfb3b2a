package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no database is loaded.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const cacheLimit = 2048

// Resolver maps client IPs to ISO country codes using a MaxMind GeoIP2 or
// GeoLite2 country database. Answers are cached; private and loopback
// addresses resolve to "" without a lookup.
type Resolver struct {
	country func(net.IP) (string, error)
	close   func() error

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver opens the database at path. An empty path yields a nil
// resolver, which is safe to use and reports ErrUnavailable.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return newResolver(func(ip net.IP) (string, error) {
		record, err := reader.Country(ip)
		if err != nil || record == nil {
			return "", err
		}
		return record.Country.IsoCode, nil
	}, reader.Close), nil
}

func newResolver(country func(net.IP) (string, error), closeFn func() error) *Resolver {
	return &Resolver{country: country, close: closeFn, cache: make(map[string]string)}
}

// Lookup adapts the resolver to the I18N middleware. A nil resolver yields nil
// so the middleware skips the lookup.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil || r.country == nil {
		return nil
	}
	return r.CountryCode
}

func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.country == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return "", nil
	}

	key := parsed.String()
	r.mu.Lock()
	code, hit := r.cache[key]
	r.mu.Unlock()
	if hit {
		return code, nil
	}

	code, err := r.country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	code = strings.ToUpper(code)

	r.mu.Lock()
	if len(r.cache) >= cacheLimit {
		clear(r.cache)
	}
	r.cache[key] = code
	r.mu.Unlock()
	return code, nil
}

func (r *Resolver) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}
