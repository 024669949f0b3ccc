package pipeline_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"xssdawn/internal/pipeline"
	mockpipeline "xssdawn/internal/pipeline/mock"
	"xssdawn/pkg/crawler"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"
	"xssdawn/pkg/tools"
	mocktools "xssdawn/pkg/tools/mock"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

func newPipeline(t *testing.T, options pipeline.Options) (*mocktools.MockRunner, pipeline.Pipeline) {
	t.Helper()

	ctrl := gomock.NewController(t)
	runner := mocktools.NewMockRunner(ctrl)
	p, err := pipeline.New(pipeline.Deps{Runner: runner}, options)
	require.NoError(t, err)

	return runner, p
}

func TestPipeline_Run_CollectFilterScan(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{
		Sources:  []string{pipeline.SourceWaybackurls, pipeline.SourceGau},
		Patterns: []string{"xss"},
	})

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool:  "waybackurls",
			Args:  []string{"-no-subs"},
			Stdin: []string{"example.com"},
		}).Return([]string{
			"https://example.com/search?q=1",
			"https://EXAMPLE.com:443/search?q=1#dup",
			"https://example.com/about",
			"not a url",
		}, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool: "gau",
			Args: []string{"example.com"},
		}).Return([]string{"https://example.com/item?id=7"}, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool: "gf",
			Args: []string{"xss"},
			Stdin: []string{
				"https://example.com/about",
				"https://example.com/item?id=7",
				"https://example.com/search?q=1",
			},
		}).Return([]string{"https://example.com/search?q=1", "https://example.com/item?id=7"}, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool:  "dalfox",
			Args:  []string{"pipe", "--silence", "-b", "https://cb.example.net"},
			Stdin: []string{"https://example.com/item?id=7", "https://example.com/search?q=1"},
		}).Return([]string{"[POC][V][GET] https://example.com/search?q=%3Csvg%3E"}, nil),
	)

	res, err := p.Run(context.Background(), domain.Request{
		Target:   "example.com",
		BlindURL: "https://cb.example.net",
		Filter:   true,
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/item?id=7",
		"https://example.com/search?q=1",
	}, res.URLs)
	require.Equal(t, []string{"https://example.com/item?id=7", "https://example.com/search?q=1"}, res.Candidates)
	require.Equal(t, []string{"[POC][V][GET] https://example.com/search?q=%3Csvg%3E"}, res.Lines)

	require.Len(t, res.Stages, 3)
	require.Equal(t, pipeline.StageCollect, res.Stages[0].Stage)
	require.Equal(t, 3, res.Stages[0].Output)
	require.Equal(t, pipeline.StageFilter, res.Stages[1].Stage)
	require.Equal(t, 2, res.Stages[1].Output)
	require.Equal(t, pipeline.StageScan, res.Stages[2].Stage)
	require.False(t, res.Stages[2].Skipped)
}

func TestPipeline_Run_EmptyFilterKeepsCollectedURLs(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{
		Sources:  []string{pipeline.SourceGau},
		Patterns: []string{"xss"},
	})

	urls := []string{"https://example.com/a?b=c"}
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(urls, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{Tool: "gf", Args: []string{"xss"}, Stdin: urls}).
			Return(nil, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool:  "dalfox",
			Args:  []string{"pipe", "--silence"},
			Stdin: urls,
		}).Return([]string{}, nil),
	)

	res, err := p.Run(context.Background(), domain.Request{Target: "example.com", Filter: true})
	require.NoError(t, err)
	require.Equal(t, urls, res.Candidates)
	require.Equal(t, 0, res.Stages[1].Output)
	require.False(t, res.Stages[2].Skipped)
	require.Empty(t, res.Lines)
}

func TestPipeline_Run_EmptyFilterWithoutScanOutputsURLs(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{
		Sources:  []string{pipeline.SourceGau},
		Patterns: []string{"xss"},
	})

	urls := []string{"https://example.com/a?b=c", "https://example.com/d?e=f"}
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(urls, nil)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]string{}, nil)

	res, err := p.Run(context.Background(), domain.Request{
		Target:  "example.com",
		Filter:  true,
		Scanner: domain.ScannerNone,
	})
	require.NoError(t, err)
	require.Equal(t, urls, res.Lines)
}

func TestPipeline_Run_PassesHarvestedLinesUnchanged(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{
		Sources:  []string{pipeline.SourceWaybackurls},
		Patterns: []string{"xss"},
	})

	harvested := []string{
		"https://example.com/files/a%2Fb?id=1",
		"https://example.com/search?q=<script>&b=2&b=1",
		"https://example.com/users/?next=/x",
		"https://example.com//double?flag",
	}
	// sorted, as collected
	collected := []string{
		"https://example.com//double?flag",
		"https://example.com/files/a%2Fb?id=1",
		"https://example.com/search?q=<script>&b=2&b=1",
		"https://example.com/users/?next=/x",
	}
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(append(harvested, "  https://EXAMPLE.com:443/search?b=1&b=2&q=%3Cscript%3E#x"), nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{Tool: "gf", Args: []string{"xss"}, Stdin: collected}).
			// gf output in another spelling still selects the collected line
			Return([]string{"https://example.com/search?b=1&b=2&q=%3Cscript%3E", collected[0]}, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{
			Tool:  "dalfox",
			Args:  []string{"pipe", "--silence"},
			Stdin: []string{collected[0], collected[2]},
		}).Return(nil, nil),
	)

	res, err := p.Run(context.Background(), domain.Request{Target: "example.com", Filter: true})
	require.NoError(t, err)
	require.Equal(t, collected, res.URLs)
	require.Equal(t, []string{collected[0], collected[2]}, res.Candidates)
}

func TestPipeline_Run_ToolFailureStopsPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocktools.NewMockRunner(ctrl)
	recorder := mockpipeline.NewMockRecorder(ctrl)
	recorder.EXPECT().StageFinished(gomock.Any(), pipeline.StageCollect, gomock.Any(), 0)
	recorder.EXPECT().ToolFailed(gomock.Any(), "waybackurls")

	p, err := pipeline.New(pipeline.Deps{Runner: runner, Recorder: recorder}, pipeline.Options{
		Sources:  []string{pipeline.SourceWaybackurls, pipeline.SourceGau},
		Patterns: []string{"xss"},
	})
	require.NoError(t, err)

	// gau, gf and dalfox must never run
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(nil, &tools.ExitError{Tool: "waybackurls", Code: 5, Stderr: "rate limited"})

	res, err := p.Run(context.Background(), domain.Request{Target: "example.com", Filter: true})
	require.Error(t, err)
	require.Equal(t, 5, tools.ExitCode(err))
	require.Contains(t, err.Error(), "waybackurls")
	require.Len(t, res.Stages, 1)
}

func TestPipeline_Run_KeepGoing(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocktools.NewMockRunner(ctrl)
	recorder := mockpipeline.NewMockRecorder(ctrl)
	recorder.EXPECT().StageFinished(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	recorder.EXPECT().ToolFailed(gomock.Any(), "waybackurls")
	recorder.EXPECT().ToolFailed(gomock.Any(), "dalfox")

	p, err := pipeline.New(pipeline.Deps{Runner: runner, Recorder: recorder}, pipeline.Options{
		Sources: []string{pipeline.SourceWaybackurls, pipeline.SourceGau},
	})
	require.NoError(t, err)

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(nil, serrors.Wrap(tools.ErrToolMissing, nil, "waybackurls is not installed")),
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]string{"https://example.com/?x=1"}, nil),
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, &tools.ExitError{Tool: "dalfox", Code: 1}),
	)

	res, err := p.Run(context.Background(), domain.Request{Target: "example.com", KeepGoing: true})
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/?x=1"}, res.URLs)
	require.Empty(t, res.Lines)
}

func TestPipeline_Run_SkipScanWritesCollectedURLs(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{Sources: []string{pipeline.SourceParamSpider}})

	runner.EXPECT().Run(gomock.Any(), tools.Invocation{
		Tool: "paramspider",
		Args: []string{"-d", "example.com", "-s"},
	}).Return([]string{"https://example.com/b?x=FUZZ", "https://example.com/a?y=FUZZ"}, nil)

	res, err := p.Run(context.Background(), domain.Request{Target: "https://example.com", Scanner: domain.ScannerNone})
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a?y=FUZZ", "https://example.com/b?x=FUZZ"}, res.Lines)
	require.True(t, res.Stages[1].Skipped)
	require.True(t, res.Stages[2].Skipped)
}

func TestPipeline_Run_Arjun(t *testing.T) {
	runner, p := newPipeline(t, pipeline.Options{
		Sources:   []string{pipeline.SourceKatana},
		ArjunArgs: []string{"-t", "5"},
	})

	runner.EXPECT().Run(gomock.Any(), tools.Invocation{
		Tool: "katana",
		Args: []string{"-u", "https://example.com/", "-silent"},
	}).Return([]string{"https://example.com/login?next=/"}, nil)

	var inputFile string
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, inv tools.Invocation) ([]string, error) {
			require.Equal(t, "arjun", inv.Tool)
			require.Len(t, inv.Args, 4)
			require.Equal(t, "-i", inv.Args[0])
			require.Equal(t, []string{"-t", "5"}, inv.Args[2:])
			require.Empty(t, inv.Stdin)

			inputFile = inv.Args[1]
			b, err := os.ReadFile(inputFile)
			require.NoError(t, err)
			require.Equal(t, "https://example.com/login?next=/\n", string(b))

			return []string{"[+] Parameters found: next, token"}, nil
		},
	)

	res, err := p.Run(context.Background(), domain.Request{
		Target:   "example.com",
		BlindURL: "https://cb.example.net",
		Scanner:  domain.ScannerParams,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"[+] Parameters found: next, token"}, res.Lines)

	_, err = os.Stat(inputFile)
	require.True(t, os.IsNotExist(err), "arjun input file should be removed")
}

func TestPipeline_Run_PatternsDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"xss.json", "xss.txt", "sqli.json", "lfi.txt", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}

	runner, p := newPipeline(t, pipeline.Options{
		Sources:     []string{pipeline.SourceGau},
		PatternsDir: dir,
	})

	urls := []string{"https://example.com/a?id=1", "https://example.com/b?q=x"}
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(urls, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{Tool: "gf", Args: []string{"lfi"}, Stdin: urls}).
			Return(nil, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{Tool: "gf", Args: []string{"sqli"}, Stdin: urls}).
			Return([]string{urls[0]}, nil),
		runner.EXPECT().Run(gomock.Any(), tools.Invocation{Tool: "gf", Args: []string{"xss"}, Stdin: urls}).
			Return([]string{urls[1], urls[0]}, nil),
	)

	res, err := p.Run(context.Background(), domain.Request{
		Target:  "example.com",
		Filter:  true,
		Scanner: domain.ScannerNone,
	})
	require.NoError(t, err)
	require.Equal(t, urls, res.Candidates)
}

func TestPipeline_Run_BadRequestRunsNothing(t *testing.T) {
	_, p := newPipeline(t, pipeline.Options{Sources: []string{pipeline.SourceGau}})

	_, err := p.Run(context.Background(), domain.Request{Target: "ftp://example.com"})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.Equal(t, 2, tools.ExitCode(err))
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := pipeline.New(pipeline.Deps{}, pipeline.Options{Sources: []string{"shodan"}})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestPipeline_Run_BuiltInCrawler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = fmt.Fprint(w, `<a href="/p?id=1">p</a><a href="/next">next</a>`)
		case "/next":
			_, _ = fmt.Fprint(w, `<a href="/q?name=x&a=b">q</a>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	_, p := newPipeline(t, pipeline.Options{
		Sources: []string{pipeline.SourceCrawler},
		Crawler: crawler.Options{MaxPages: 10, Timeout: time.Second},
	})

	res, err := p.Run(context.Background(), domain.Request{Target: srv.URL, Scanner: domain.ScannerNone})
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/p?id=1", srv.URL + "/q?name=x&a=b"}, res.Lines)
}

func TestPipeline_Run_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	ctrl := gomock.NewController(t)
	src := mockpipeline.NewMockSource(ctrl)
	src.EXPECT().Name().Return("fixture").AnyTimes()
	src.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{"https://example.com/?a=1"}, nil)

	p, err := pipeline.New(pipeline.Deps{TracerProvider: tp, Sources: []pipeline.Source{src}}, pipeline.Options{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), domain.Request{Target: "example.com", Scanner: domain.ScannerNone})
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	require.ElementsMatch(t, []string{"pipeline.collect", "pipeline.run"}, names)
}

func TestWriteOutput(t *testing.T) {
	lines := []string{"https://example.com/a?x=1", "https://example.com/b?y=2"}

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		require.NoError(t, os.WriteFile(path, []byte("stale content that is longer\n"), 0o600))

		var stdout strings.Builder
		require.NoError(t, pipeline.WriteOutput(path, &stdout, lines))
		require.Empty(t, stdout.String())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "https://example.com/a?x=1\nhttps://example.com/b?y=2\n", string(b))
	})

	t.Run("stdout", func(t *testing.T) {
		var stdout strings.Builder
		require.NoError(t, pipeline.WriteOutput("", &stdout, lines))
		require.Equal(t, "https://example.com/a?x=1\nhttps://example.com/b?y=2\n", stdout.String())
	})

	t.Run("empty result creates empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, pipeline.WriteOutput(path, nil, nil))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Zero(t, info.Size())
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := pipeline.WriteOutput(filepath.Join(t.TempDir(), "missing", "out.txt"), nil, lines)
		require.Error(t, err)
	})
}

func TestMergeURLs(t *testing.T) {
	got := pipeline.MergeURLs(context.Background(),
		[]string{"https://b.example/?z=1&a=2", "", "mailto:x@example.com"},
		[]string{"https://B.example/?a=2&z=1", "https://a.example/x/"},
	)
	require.Equal(t, []string{"https://a.example/x/", "https://b.example/?z=1&a=2"}, got)
}
