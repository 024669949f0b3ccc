package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/serrors"

	"go.uber.org/zap"
)

// maxLineSize bounds a single stdout line. Archive harvesters occasionally
// emit very long URLs.
const maxLineSize = 1 << 20

// maxStderrSize bounds how much stderr is kept for error reporting.
const maxStderrSize = 8 << 10

// waitDelay bounds how long Wait keeps copying output after the tool was
// killed or exited.
const waitDelay = 2 * time.Second

// Options configure an ExecRunner.
type Options struct {
	// Paths maps logical tool names to binaries. Tools not present here are
	// looked up in $PATH under their logical name.
	Paths map[string]string
	// Timeout is applied to every invocation that doesn't set its own. Zero disables it.
	Timeout time.Duration
}

// ExecRunner runs tools as child processes using os/exec.
// It is safe for concurrent use.
type ExecRunner struct {
	options  Options
	lookPath func(string) (string, error)
}

// Ensure ExecRunner conforms to the Runner interface at compile time.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner constructs an ExecRunner with the given options.
func NewExecRunner(options Options) *ExecRunner {
	return &ExecRunner{
		options:  options,
		lookPath: exec.LookPath,
	}
}

// Resolve returns the binary path used for the given logical tool name.
func (r *ExecRunner) Resolve(tool string) (string, error) {
	bin := tool
	if p, ok := r.options.Paths[tool]; ok && p != "" {
		bin = p
	}

	path, err := r.lookPath(bin)
	if err != nil {
		return "", serrors.Wrap(ErrToolMissing, err, "%s is not installed", tool)
	}

	return path, nil
}

// Run starts the tool, feeds inv.Stdin, and collects stdout lines until the
// process exits. Stderr is kept (bounded) for the error message. When ctx is
// done the tool and every process in its group are killed.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) ([]string, error) {
	ctx = logger.WithFields(ctx, zap.String("tool", inv.Tool))

	bin, err := r.Resolve(inv.Tool)
	if err != nil {
		return nil, err
	}

	timeout := r.options.Timeout
	if inv.Timeout > 0 {
		timeout = inv.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	if len(inv.Stdin) > 0 {
		cmd.Stdin = strings.NewReader(strings.Join(inv.Stdin, "\n") + "\n")
	}
	stdout := &bytes.Buffer{}
	cmd.Stdout = stdout
	stderr := &tailBuffer{max: maxStderrSize}
	cmd.Stderr = stderr
	// children the tool spawned die with it, and Wait stops waiting for
	// pipes still held open by anything that escaped
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	logger.Debug(ctx, "starting tool",
		zap.String("path", bin),
		zap.Strings("args", inv.Args),
		zap.Int("stdinLines", len(inv.Stdin)))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start %s: %w", inv.Tool, err)
	}
	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) && ctx.Err() == nil {
		logger.Warn(ctx, "tool exited but left a process holding its output open")
		waitErr = nil
	}
	lines, scanErr := readLines(stdout)

	logger.Debug(ctx, "tool finished",
		zap.Int("stdoutLines", len(lines)),
		zap.Duration("took", time.Since(start)))

	if waitErr != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return lines, serrors.Wrap(serrors.ErrTimeout, ctx.Err(), "%s timed out after %s", inv.Tool, timeout)
			}

			return lines, fmt.Errorf("%s interrupted: %w", inv.Tool, ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return lines, &ExitError{Tool: inv.Tool, Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}

		return lines, fmt.Errorf("could not wait for %s: %w", inv.Tool, waitErr)
	}
	if scanErr != nil {
		return lines, fmt.Errorf("could not read output of %s: %w", inv.Tool, scanErr)
	}

	return lines, nil
}

// readLines reads newline separated output, trimming whitespace and skipping blank lines.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines, sc.Err() //nolint: wrapcheck
}

// tailBuffer keeps only the last max bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}

	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
