// Package tools runs the external reconnaissance binaries the pipeline wraps
// (archive harvesters, gf, dalfox, arjun, ...) and exchanges newline
// separated text with them over stdin and stdout.
package tools

import (
	"context"
	"time"
)

// Invocation describes one execution of an external tool.
type Invocation struct {
	// Tool is the logical tool name (e.g. "waybackurls"). It is resolved to a
	// binary through the runner's configured paths, falling back to $PATH.
	Tool string
	// Args are passed to the binary as-is.
	Args []string
	// Stdin lines are written to the process, each terminated by a newline.
	Stdin []string
	// Env is appended to the current process environment.
	Env []string
	// Timeout overrides the runner default when positive.
	Timeout time.Duration
}

// Runner is the abstraction for running external tools. Implementations
// return the non-empty, trimmed stdout lines of the process.
//
//go:generate mockgen -package mocktools -source=interface.go -destination=mock/mocktools.go *
type Runner interface {
	// Run executes the invocation and blocks until the process exits.
	// A non-zero exit status is reported as *ExitError.
	Run(ctx context.Context, inv Invocation) ([]string, error)
}
