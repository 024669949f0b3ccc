package pipeline_test

import (
	"testing"
	"xssdawn/internal/pipeline"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in     string
		domain string
		url    string
	}{
		{"example.com", "example.com", "https://example.com/"},
		{"  Example.COM  ", "example.com", "https://example.com/"},
		{"http://example.com:8080/app#top", "example.com", "http://example.com:8080/app"},
		{"HTTPS://sub.example.com/path?x=1", "sub.example.com", "https://sub.example.com/path?x=1"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := pipeline.ParseTarget(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.domain, got.Domain)
			require.Equal(t, tc.url, got.URL)
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com", "https://", "http://exa mple.com"} {
		t.Run(in, func(t *testing.T) {
			_, err := pipeline.ParseTarget(in)
			require.ErrorIs(t, err, serrors.ErrBadRequest)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	_, err := pipeline.ValidateRequest(domain.Request{Target: "example.com", BlindURL: "https://cb.example.net/x"})
	require.NoError(t, err)

	_, err = pipeline.ValidateRequest(domain.Request{Target: "example.com", BlindURL: "cb.example.net"})
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	_, err = pipeline.ValidateRequest(domain.Request{Target: "example.com", MaxPages: -1})
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	_, err = pipeline.ValidateRequest(domain.Request{Target: "example.com", Scanner: "nuclei"})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}
