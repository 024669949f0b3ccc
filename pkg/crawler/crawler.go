// Package crawler implements a small breadth-first web crawler that collects
// parameterised URLs (URLs carrying a query string) from a target site.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"xssdawn/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "xssdawn/1.0 (+https://github.com/hunterdawn/xssdawn)"

// maxBodySize bounds how much of a page is parsed.
const maxBodySize = 5 << 20

// Options configure a Crawler.
type Options struct {
	// MaxPages is the maximum number of pages fetched. Values <= 0 mean 100.
	MaxPages int
	// AllowSubdomains extends the scope to every host under the target's registrable domain.
	AllowSubdomains bool
	// RequestsPerSecond limits the fetch rate. Zero disables rate limiting.
	RequestsPerSecond float64
	// RespectRobots skips paths disallowed by the target's robots.txt.
	RespectRobots bool
	// UserAgent is sent with every request.
	UserAgent string
	// HTTPClient performs the requests. A client with Timeout is created when nil.
	HTTPClient *http.Client
	// Timeout is used for the default HTTP client.
	Timeout time.Duration
}

// Crawler walks a site breadth-first. A Crawler is not safe for concurrent
// use; create one per crawl.
type Crawler struct {
	options Options
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Crawler with the given options.
func New(options Options) *Crawler {
	if options.MaxPages <= 0 {
		options.MaxPages = 100
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultUserAgent
	}

	client := options.HTTPClient
	if client == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}

	return &Crawler{
		options: options,
		client:  client,
		limiter: limiter,
	}
}

// Crawl starts at startURL and returns every in-scope http(s) URL with a
// query string that was linked from a fetched page, sorted. Pages that fail
// to load are logged and skipped; only an invalid startURL or a cancelled
// context produce an error.
func (c *Crawler) Crawl(ctx context.Context, startURL string) ([]string, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}
	start.Fragment = ""

	scope := NewScope(start, c.options.AllowSubdomains)
	robots := c.robots(ctx, start)

	visited := make(map[string]struct{})
	queued := map[string]struct{}{start.String(): {}}
	found := make(map[string]struct{})
	queue := []string{start.String()}

	for len(queue) > 0 && len(visited) < c.options.MaxPages {
		current := queue[0]
		queue = queue[1:]

		if robots != nil {
			if u, err := url.Parse(current); err == nil && !robots.TestAgent(u.EscapedPath(), c.options.UserAgent) {
				logger.Debug(ctx, "disallowed by robots.txt", zap.String("url", current))

				continue
			}
		}
		// only pages that are actually requested count against MaxPages
		visited[current] = struct{}{}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("crawl interrupted: %w", err)
		}

		links, err := c.fetchLinks(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("crawl interrupted: %w", ctx.Err())
			}
			logger.Warn(ctx, "could not fetch page", zap.String("url", current), zap.Error(err))

			continue
		}

		for _, link := range links {
			if !scope.Contains(link) {
				continue
			}
			s := link.String()
			if _, ok := queued[s]; !ok {
				queued[s] = struct{}{}
				queue = append(queue, s)
			}
			if link.RawQuery != "" {
				found[s] = struct{}{}
			}
		}
	}

	logger.Debug(ctx, "crawl finished",
		zap.Int("pages", len(visited)),
		zap.Int("parameterised", len(found)))

	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)

	return out, nil
}

// fetchLinks downloads the page and returns its absolute http(s) links.
func (c *Crawler) fetchLinks(ctx context.Context, pageURL string) ([]*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", c.options.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// error pages still carry links, but anything that isn't HTML doesn't
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("could not parse page: %w", err)
	}

	// the final URL after redirects is the base for relative links
	base := resp.Request.URL
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		links = append(links, abs)
	})

	return links, nil
}

// robots fetches and parses robots.txt when enabled. Any failure disables the check.
func (c *Crawler) robots(ctx context.Context, start *url.URL) *robotstxt.RobotsData {
	if !c.options.RespectRobots {
		return nil
	}

	robotsURL := &url.URL{Scheme: start.Scheme, Host: start.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.options.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug(ctx, "could not fetch robots.txt", zap.Error(err))

		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Debug(ctx, "could not parse robots.txt", zap.Error(err))

		return nil
	}

	return data
}
