package scrape

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per site. www.example.com and
// example.com:443 share a bucket with example.com.
type HostLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	every   rate.Limit
	burst   int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		buckets: make(map[string]*rate.Limiter),
		every:   rate.Limit(reqPerSec),
		burst:   burst,
	}
}

func siteKey(host string) string {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

func (hl *HostLimiter) bucket(host string) *rate.Limiter {
	key := siteKey(host)

	hl.mu.Lock()
	defer hl.mu.Unlock()
	b, ok := hl.buckets[key]
	if !ok {
		b = rate.NewLimiter(hl.every, hl.burst)
		hl.buckets[key] = b
	}
	return b
}

// Wait blocks until host may be hit again or ctx ends.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	return hl.bucket(host).Wait(ctx)
}

// WaitURL is Wait for the host of raw. Unparseable URLs share one bucket.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.Wait(ctx, "")
	}
	return hl.Wait(ctx, u.Host)
}
