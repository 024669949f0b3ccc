package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteOutput writes lines, each newline terminated, to the file at path.
// The file is created or truncated with mode 0644. With an empty path the
// lines go to stdout instead.
func WriteOutput(path string, stdout io.Writer, lines []string) error {
	if path == "" {
		if err := writeLines(stdout, lines); err != nil {
			return fmt.Errorf("could not write output: %w", err)
		}

		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint: gosec
	if err != nil {
		return fmt.Errorf("could not open output file: %w", err)
	}
	if err := writeLines(f, lines); err != nil {
		_ = f.Close()

		return fmt.Errorf("could not write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}

	return nil
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err //nolint: wrapcheck
		}
	}

	return bw.Flush() //nolint: wrapcheck
}
