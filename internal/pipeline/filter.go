package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/serrors"
	"xssdawn/pkg/tools"

	"go.uber.org/zap"
)

const gfTool = "gf"

// patterns returns the gf pattern names to apply. When a patterns directory
// is configured every *.json file in it is a pattern, otherwise the
// configured names are used.
func (p *pipeline) patterns() ([]string, error) {
	if p.options.PatternsDir == "" {
		if len(p.options.Patterns) == 0 {
			return nil, serrors.With(serrors.ErrBadRequest, "no gf patterns configured")
		}

		return p.options.Patterns, nil
	}

	entries, err := os.ReadDir(p.options.PatternsDir)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not read gf patterns dir")
	}

	var names []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".json" && ext != ".txt") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "no gf patterns found in %s", p.options.PatternsDir)
	}

	return names, nil
}

// filter pipes urls through gf once per pattern and returns the union of the
// matches in input order.
func (p *pipeline) filter(ctx context.Context, urls []string, req domain.Request) ([]string, error) {
	patterns, err := p.patterns()
	if err != nil {
		return nil, err
	}

	matched := make(map[string]struct{})
	for _, pattern := range patterns {
		lines, err := p.runner.Run(ctx, tools.Invocation{
			Tool:  gfTool,
			Args:  []string{pattern},
			Stdin: urls,
		})
		if err != nil {
			if err := p.tolerate(ctx, req, gfTool, fmt.Errorf("pattern %s: %w", pattern, err)); err != nil {
				return nil, err
			}

			continue
		}
		if len(lines) == 0 {
			logger.Debug(ctx, "gf pattern matched nothing", zap.String("pattern", pattern))
		}
		for _, line := range lines {
			if key, err := NormalizeURL(line); err == nil {
				matched[key] = struct{}{}
			}
		}
	}

	// gf may reformat what it prints, so matches are mapped back to the
	// collected lines through the duplicate key
	out := make([]string, 0, len(matched))
	for _, u := range urls {
		if key, err := NormalizeURL(u); err == nil {
			if _, ok := matched[key]; ok {
				out = append(out, u)
			}
		}
	}

	return out, nil
}
