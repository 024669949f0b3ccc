package main

import (
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"

	"github.com/spf13/cobra"
)

// requestFlags are the flags describing a single pipeline run. They are shared
// by the run and enqueue commands.
type requestFlags struct {
	target     string
	blind      string
	output     string
	subdomains bool
	maxPages   int
	gf         bool
	arjun      bool
	skipScan   bool
	keepGoing  bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.target, "target", "d", "", "Target domain or URL (required)")
	fs.StringVarP(&f.blind, "blind", "b", "", "Blind XSS callback URL forwarded to dalfox")
	fs.StringVarP(&f.output, "output", "o", "", "Output file; results go to stdout when empty")
	fs.BoolVarP(&f.subdomains, "subdomains", "s", false, "Let the crawlers follow subdomains of the target")
	fs.IntVar(&f.maxPages, "max-pages", 0, "Maximum pages fetched by the built-in crawler (default from config)")
	fs.BoolVar(&f.gf, "gf", false, "Filter URLs through gf patterns before scanning")
	fs.BoolVar(&f.arjun, "arjun", false, "Scan with arjun (parameter discovery) instead of dalfox")
	fs.BoolVar(&f.skipScan, "skip-scan", false, "Stop after collecting and filtering")
	fs.BoolVar(&f.keepGoing, "keep-going", false, "Continue with empty output when a tool fails")

}

// flagError makes flag parsing failures bad requests, so they exit like any
// other invalid input.
func flagError(_ *cobra.Command, err error) error {
	return serrors.Wrap(serrors.ErrBadRequest, err, "")
}

// request converts the parsed flags into a domain.Request.
func (f *requestFlags) request(cmd *cobra.Command) (domain.Request, error) {
	if !cmd.Flags().Changed("target") {
		return domain.Request{}, serrors.With(serrors.ErrBadRequest, "required flag --target not set")
	}
	if f.arjun && f.skipScan {
		return domain.Request{}, serrors.With(serrors.ErrBadRequest, "--arjun and --skip-scan are mutually exclusive")
	}
	if cmd.Flags().Changed("max-pages") && f.maxPages <= 0 {
		return domain.Request{}, serrors.With(serrors.ErrBadRequest, "--max-pages must be positive")
	}

	req := domain.Request{
		Target:          f.target,
		BlindURL:        f.blind,
		OutputPath:      f.output,
		AllowSubdomains: f.subdomains,
		MaxPages:        f.maxPages,
		Filter:          f.gf,
		Scanner:         domain.ScannerXSS,
		KeepGoing:       f.keepGoing,
	}
	switch {
	case f.skipScan:
		req.Scanner = domain.ScannerNone
	case f.arjun:
		req.Scanner = domain.ScannerParams
	}

	return req, nil
}
