package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"xssdawn/pkg/crawler"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/serrors"
	"xssdawn/pkg/tools"

	"go.uber.org/zap"
)

// Names of the built-in URL sources.
const (
	SourceWaybackurls = "waybackurls"
	SourceGau         = "gau"
	SourceParamSpider = "paramspider"
	SourceKatana      = "katana"
	SourceCrawler     = "crawler"
)

// toolSource runs an external harvester and returns its stdout lines.
type toolSource struct {
	name       string
	runner     tools.Runner
	invocation func(target domain.Target, req domain.Request) tools.Invocation
}

func (s toolSource) Name() string { return s.name }

func (s toolSource) Collect(ctx context.Context, target domain.Target, req domain.Request) ([]string, error) {
	return s.runner.Run(ctx, s.invocation(target, req)) //nolint: wrapcheck
}

// crawlerSource runs the built-in crawler from the target URL.
type crawlerSource struct {
	options crawler.Options
}

func (s crawlerSource) Name() string { return SourceCrawler }

func (s crawlerSource) Collect(ctx context.Context, target domain.Target, req domain.Request) ([]string, error) {
	options := s.options
	options.AllowSubdomains = req.AllowSubdomains
	if req.MaxPages > 0 {
		options.MaxPages = req.MaxPages
	}

	urls, err := crawler.New(options).Crawl(ctx, target.URL)
	if err != nil {
		return nil, fmt.Errorf("could not crawl %s: %w", target.URL, err)
	}

	return urls, nil
}

// NewSource returns the source registered under name.
func NewSource(name string, runner tools.Runner, crawlerOptions crawler.Options) (Source, error) {
	switch name {
	case SourceWaybackurls:
		return toolSource{name: name, runner: runner, invocation: func(target domain.Target, req domain.Request) tools.Invocation {
			inv := tools.Invocation{Tool: name, Stdin: []string{target.Domain}}
			if !req.AllowSubdomains {
				inv.Args = []string{"-no-subs"}
			}

			return inv
		}}, nil
	case SourceGau:
		return toolSource{name: name, runner: runner, invocation: func(target domain.Target, req domain.Request) tools.Invocation {
			args := []string{target.Domain}
			if req.AllowSubdomains {
				args = append([]string{"--subs"}, args...)
			}

			return tools.Invocation{Tool: name, Args: args}
		}}, nil
	case SourceParamSpider:
		return toolSource{name: name, runner: runner, invocation: func(target domain.Target, _ domain.Request) tools.Invocation {
			return tools.Invocation{Tool: name, Args: []string{"-d", target.Domain, "-s"}}
		}}, nil
	case SourceKatana:
		return toolSource{name: name, runner: runner, invocation: func(target domain.Target, _ domain.Request) tools.Invocation {
			return tools.Invocation{Tool: name, Args: []string{"-u", target.URL, "-silent"}}
		}}, nil
	case SourceCrawler:
		return crawlerSource{options: crawlerOptions}, nil
	}

	return nil, serrors.With(serrors.ErrBadRequest, "unknown URL source %q", name)
}

// MergeURLs merges the sources' lines into one sorted list. Lines are kept
// as the tools printed them, only trimmed. NormalizeURL is the duplicate key:
// the first line seen for a key wins, and lines that are not absolute http(s)
// URLs are dropped.
func MergeURLs(ctx context.Context, lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	dropped := 0
	for _, list := range lists {
		for _, line := range list {
			key, err := NormalizeURL(line)
			if err != nil {
				dropped++

				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, strings.TrimSpace(line))
		}
	}
	if dropped > 0 {
		logger.Debug(ctx, "dropped invalid URLs", zap.Int("count", dropped))
	}
	sort.Strings(out)

	return out
}

// collect runs every source in order and merges their output.
func (p *pipeline) collect(ctx context.Context, target domain.Target, req domain.Request) ([]string, error) {
	lists := make([][]string, 0, len(p.sources))
	for _, src := range p.sources {
		sctx := logger.WithFields(ctx, zap.String("source", src.Name()))

		lines, err := src.Collect(sctx, target, req)
		if err != nil {
			if err := p.tolerate(sctx, req, src.Name(), err); err != nil {
				return nil, err
			}

			continue
		}
		logger.Info(sctx, "source finished", zap.Int("urls", len(lines)))
		lists = append(lists, lines)
	}

	return MergeURLs(ctx, lists...), nil
}
