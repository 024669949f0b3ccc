package pipeline

import (
	"net/url"
	"strings"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"
)

// ParseTarget turns the user supplied target (a bare domain or an http(s)
// URL) into the domain handed to archive harvesters and the URL the crawlers
// start from. A bare domain is crawled over https.
func ParseTarget(raw string) (domain.Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "target is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return domain.Target{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid target")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "unsupported target scheme %q", u.Scheme)
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "target %q has no host", raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.User = nil
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	return domain.Target{
		Domain: hostname,
		URL:    u.String(),
	}, nil
}

// ValidateRequest checks a request before any tool runs.
func ValidateRequest(req domain.Request) (domain.Target, error) {
	target, err := ParseTarget(req.Target)
	if err != nil {
		return domain.Target{}, err
	}

	if req.BlindURL != "" {
		u, err := url.Parse(req.BlindURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.Target{}, serrors.With(serrors.ErrBadRequest, "blind URL %q must be an absolute http(s) URL", req.BlindURL)
		}
	}
	if req.MaxPages < 0 {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "max pages must be positive")
	}

	switch req.Scanner {
	case "", domain.ScannerXSS, domain.ScannerParams, domain.ScannerNone:
	default:
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "unknown scanner %q", req.Scanner)
	}

	return target, nil
}
