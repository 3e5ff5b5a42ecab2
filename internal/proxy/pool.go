package proxy

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// failureThreshold is the number of consecutive failures after which a
	// proxy is blocked.
	failureThreshold = 3

	// DefaultCooldown is how long a blocked proxy stays out of rotation
	// before it becomes eligible again.
	DefaultCooldown = 5 * time.Minute
)

// Proxy is one outbound egress point plus its mutable health state. Health
// fields are owned by the Pool and must only be touched through its methods.
type Proxy struct {
	URL string

	fails       int
	lastFailure time.Time
	blocked     bool
}

// Pool rotates over a fixed set of proxies, tracking per-proxy health. An
// empty pool operates in disabled mode: Acquire returns nil, meaning direct
// connection, and the feedback methods are no-ops.
type Pool struct {
	mu       sync.Mutex
	proxies  []*Proxy
	index    int
	cooldown time.Duration
	now      func() time.Time
}

// New creates a pool over the given proxy URLs, deduplicated in order.
// Entries that do not parse as a URL are dropped; entries without a scheme
// get "http://" prepended.
func New(urls []string) *Pool {
	p := &Pool{
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		u := format(raw)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		p.proxies = append(p.proxies, &Proxy{URL: u})
	}
	return p
}

// Load reads one proxy per line from r. Blank lines and '#' comments are
// ignored.
func Load(r io.Reader) (*Pool, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}
	return New(urls), nil
}

// LoadFile loads a pool from a proxy list file. A missing or empty file
// yields a disabled pool rather than an error.
func LoadFile(path string) (*Pool, error) {
	if path == "" {
		return New(nil), nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("proxy file not found, running without proxies", "path", path)
			return New(nil), nil
		}
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// format validates a proxy string and ensures it has a scheme.
func format(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return s
	default:
		return ""
	}
}

// Enabled reports whether the pool holds any proxies.
func (p *Pool) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies) > 0
}

// Size returns the number of proxies in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Acquire returns the next proxy in round-robin order among non-blocked
// entries. Proxies whose cooldown has elapsed are reset to healthy before
// selection. If every proxy is blocked, the least-recently-failed one is
// returned as a last resort so the pipeline keeps making progress. A nil
// return means direct connection (disabled mode).
func (p *Pool) Acquire() *Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	now := p.now()
	for i := 0; i < len(p.proxies); i++ {
		candidate := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if candidate.blocked && now.Sub(candidate.lastFailure) >= p.cooldown {
			candidate.blocked = false
			candidate.fails = 0
		}
		if !candidate.blocked {
			return candidate
		}
	}

	// Every proxy is blocked: fall back to the one that failed longest ago.
	oldest := p.proxies[0]
	for _, candidate := range p.proxies[1:] {
		if candidate.lastFailure.Before(oldest.lastFailure) {
			oldest = candidate
		}
	}
	return oldest
}

// MarkFailure records a failed attempt through the proxy. Three consecutive
// failures block it; an authorization failure blocks it immediately since
// the upstream has decided this egress point is not welcome.
func (p *Pool) MarkFailure(px *Proxy, authFailure bool) {
	if px == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	px.fails++
	px.lastFailure = p.now()
	if authFailure || px.fails >= failureThreshold {
		if !px.blocked {
			slog.Debug("proxy blocked", "proxy", px.URL, "fails", px.fails, "auth", authFailure)
		}
		px.blocked = true
	}
}

// MarkSuccess resets the proxy to healthy.
func (p *Pool) MarkSuccess(px *Proxy) {
	if px == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	px.fails = 0
	px.blocked = false
}

// Rotate advances the round-robin pointer without touching health state.
// Callers use it after a failure so the retry does not hammer the same
// egress point.
func (p *Pool) Rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) > 1 {
		p.index = (p.index + 1) % len(p.proxies)
	}
}

// Blocked reports whether the proxy is currently blocked.
func (p *Pool) Blocked(px *Proxy) bool {
	if px == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return px.blocked
}

// SetCooldown overrides the blocked-proxy cooldown window.
func (p *Pool) SetCooldown(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldown = d
}

// SetClock overrides the pool's time source. Tests use this to drive the
// cooldown window without sleeping.
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}
