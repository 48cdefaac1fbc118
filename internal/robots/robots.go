// Package robots reads the robots.txt of source hosts so scheduled runs
// stay within what registrar sites permit.
package robots

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/transferindex/internal/cache"
)

// Source says where a set of rules came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
)

type Rules struct {
	Groups []Group
}

type Group struct {
	Agents     []string
	Allow      []string
	Disallow   []string
	CrawlDelay *time.Duration
}

// Checker fetches and remembers robots.txt per host. A missing robots.txt
// allows everything.
type Checker struct {
	HTTPClient  *http.Client
	Cache       *cache.Store
	UserAgent   string
	EntryExpiry time.Duration
	// MaxDelay caps the crawl delay a host can impose. Zero means 10s.
	MaxDelay time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

func cacheKey(host string) string { return "robots " + host }

// Check reports whether rawURL may be fetched with the checker's user agent
// and how long to wait before doing so.
func (m *Checker) Check(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse url: %w", err)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	rules, _, err := m.Get(ctx, robotsURL)
	if err != nil {
		return false, 0, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !rules.IsAllowed(m.UserAgent, path) {
		return false, 0, nil
	}
	var delay time.Duration
	if d := rules.CrawlDelayFor(m.UserAgent); d != nil {
		delay = min(*d, m.maxDelay())
	}
	return true, delay, nil
}

func (m *Checker) maxDelay() time.Duration {
	if m.MaxDelay > 0 {
		return m.MaxDelay
	}
	return 10 * time.Second
}

// Get returns the parsed rules at robotsURL, from memory, a revalidated cache
// entry or the network.
func (m *Checker) Get(ctx context.Context, robotsURL string) (Rules, Source, error) {
	u, err := url.Parse(robotsURL)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("parse url: %w", err)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return Rules{}, SourceNetwork, fmt.Errorf("unsupported url scheme: %q", robotsURL)
	}

	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	if ent, ok := m.mem[robotsURL]; ok && m.now().Before(ent.expiry) {
		r := ent.rules
		m.mu.Unlock()
		return r, SourceMemory, nil
	}
	m.mu.Unlock()

	key := cacheKey(u.Host)
	var etag, lastMod string
	if m.Cache != nil {
		if meta, err := m.Cache.LoadMeta(ctx, key); err == nil && meta.URL == robotsURL {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, SourceNetwork, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && m.Cache != nil:
		body, err := m.Cache.LoadBody(ctx, key)
		if err != nil {
			return Rules{}, SourceCache304, fmt.Errorf("load cached robots: %w", err)
		}
		rules := parseRobots(string(body))
		m.remember(robotsURL, rules)
		return rules, SourceCache304, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// no robots.txt: everything is allowed
		m.remember(robotsURL, Rules{})
		return Rules{}, SourceNetwork, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Rules{}, SourceNetwork, fmt.Errorf("robots %s: unexpected status %d", robotsURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("read robots: %w", err)
	}
	if m.Cache != nil {
		entry := cache.Entry{
			Key:          key,
			URL:          robotsURL,
			ContentType:  resp.Header.Get("Content-Type"),
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		_ = m.Cache.Save(ctx, entry, data)
	}
	rules := parseRobots(string(data))
	m.remember(robotsURL, rules)
	return rules, SourceNetwork, nil
}

func (m *Checker) remember(key string, rules Rules) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[key] = memEntry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

func parseRobots(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []Group
	current := Group{}
	flush := func() {
		if len(current.Agents) == 0 && len(current.Allow) == 0 && len(current.Disallow) == 0 && current.CrawlDelay == nil {
			return
		}
		groups = append(groups, current)
		current = Group{}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "user-agent", "useragent":
			// a user-agent line after rules starts a new group
			if len(current.Agents) > 0 && (len(current.Allow) > 0 || len(current.Disallow) > 0 || current.CrawlDelay != nil) {
				flush()
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow":
			current.Allow = append(current.Allow, val)
		case "disallow":
			current.Disallow = append(current.Disallow, val)
		case "crawl-delay", "crawldelay":
			if d, err := time.ParseDuration(val + "s"); err == nil && d >= 0 {
				current.CrawlDelay = &d
			}
		}
	}
	flush()
	return Rules{Groups: groups}
}

// IsAllowed evaluates path (which may include a query string) for userAgent.
//
// The most specific matching User-agent group applies; exact tokens beat "*".
// Within it the longest matching pattern wins, Allow on ties. No match allows.
func (r Rules) IsAllowed(userAgent string, path string) bool {
	grpIdx := r.selectGroupIndex(userAgent)
	if grpIdx < 0 {
		return true
	}
	grp := r.Groups[grpIdx]

	bestScore := -1
	bestAllow := true
	evaluate := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			// an empty Disallow restricts nothing
			if p == "" || !patternMatches(p, path) {
				continue
			}
			score := patternSpecificity(p)
			if score > bestScore || (score == bestScore && isAllow && !bestAllow) {
				bestScore = score
				bestAllow = isAllow
			}
		}
	}
	evaluate(grp.Disallow, false)
	evaluate(grp.Allow, true)
	return bestScore == -1 || bestAllow
}

// CrawlDelayFor returns the crawl delay of the group that applies to
// userAgent, or nil.
func (r Rules) CrawlDelayFor(userAgent string) *time.Duration {
	grpIdx := r.selectGroupIndex(userAgent)
	if grpIdx < 0 {
		return nil
	}
	return r.Groups[grpIdx].CrawlDelay
}

func (r Rules) selectGroupIndex(userAgent string) int {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	bestIdx := -1
	bestScore := -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			token := strings.TrimSpace(a)
			var score int
			switch {
			case token == "":
				continue
			case token == "*":
				score = 0
			case strings.Contains(ua, token):
				score = len(token)
			default:
				continue
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
	}
	return bestIdx
}

// patternMatches anchors pattern at the start of path. '*' matches any run
// and a trailing '$' anchors the end.
func patternMatches(pattern, path string) bool {
	anchorEnd := strings.HasSuffix(pattern, "$")
	p := strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(p, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchorEnd {
		b.WriteString("$")
	}
	return regexp.MustCompile(b.String()).MatchString(path)
}

func patternSpecificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}
