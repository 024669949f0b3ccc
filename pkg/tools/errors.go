package tools

import (
	"errors"
	"fmt"
	"strings"
	"xssdawn/pkg/serrors"
)

// ErrToolMissing is the kind of errors returned when a tool binary cannot be found.
var ErrToolMissing = serrors.NewKind("TOOL_MISSING", 127)

// ExitError reports a tool that exited with a non-zero status.
type ExitError struct {
	// Tool is the logical tool name.
	Tool string
	// Code is the process exit code.
	Code int
	// Stderr holds the tail of the process standard error.
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}

	return msg
}

// ExitCode maps an error returned by the pipeline to a process exit code:
// the wrapped tool's own code when a tool failed, the kind's code for
// semantic errors (2 for bad input, 127 for a missing tool) and 1 for
// anything else. A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	if k := serrors.KindOf(err); k != nil {
		return k.ExitCode()
	}

	return 1
}
