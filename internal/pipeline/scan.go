package pipeline

import (
	"context"
	"fmt"
	"os"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/tools"

	"go.uber.org/zap"
)

// scan feeds the candidates to the selected scanner and returns its output.
func (p *pipeline) scan(ctx context.Context, candidates []string, req domain.Request) ([]string, error) {
	var (
		lines []string
		err   error
	)

	switch req.Scanner {
	case domain.ScannerParams:
		lines, err = p.arjun(ctx, candidates, req)
	default:
		lines, err = p.dalfox(ctx, candidates, req)
	}
	if err != nil {
		if err := p.tolerate(ctx, req, string(req.Scanner), err); err != nil {
			return nil, err
		}

		return []string{}, nil
	}

	return lines, nil
}

func (p *pipeline) dalfox(ctx context.Context, candidates []string, req domain.Request) ([]string, error) {
	args := []string{"pipe", "--silence"}
	if req.BlindURL != "" {
		args = append(args, "-b", req.BlindURL)
	}
	args = append(args, p.options.DalfoxArgs...)

	return p.runner.Run(ctx, tools.Invocation{ //nolint: wrapcheck
		Tool:  string(domain.ScannerXSS),
		Args:  args,
		Stdin: candidates,
	})
}

// arjun reads its targets from a file, so the candidates are written to a
// temporary one for the duration of the call.
func (p *pipeline) arjun(ctx context.Context, candidates []string, req domain.Request) ([]string, error) {
	if req.BlindURL != "" {
		logger.Warn(ctx, "blind URL is ignored by arjun", zap.String("blindURL", req.BlindURL))
	}

	f, err := os.CreateTemp("", "xssdawn-arjun-*.txt")
	if err != nil {
		return nil, fmt.Errorf("could not create arjun input file: %w", err)
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := writeLines(f, candidates); err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("could not write arjun input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("could not close arjun input file: %w", err)
	}

	args := append([]string{"-i", f.Name()}, p.options.ArjunArgs...)

	return p.runner.Run(ctx, tools.Invocation{ //nolint: wrapcheck
		Tool: string(domain.ScannerParams),
		Args: args,
	})
}
