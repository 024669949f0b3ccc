package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the wrapped tools, every pipeline
// stage, the run store, the job queue and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel is the minimum level written to stderr (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" env-default:"info" yaml:"logLevel"`

	// Tools configures how external binaries are located and run
	Tools struct {
		// Paths maps logical tool names (waybackurls, gau, gf, dalfox, ...) to binaries
		Paths map[string]string `env:"TOOLS_PATHS" env-separator:"," yaml:"paths"`
		// Timeout is applied to every tool invocation; zero disables it
		Timeout time.Duration `env:"TOOLS_TIMEOUT" env-default:"0s" yaml:"timeout"`
	} `yaml:"tools"`

	// Collect configures the URL collector stage
	Collect struct {
		// Sources lists the URL sources run in order (waybackurls, gau, paramspider, katana, crawler)
		Sources []string `env:"COLLECT_SOURCES" env-default:"waybackurls,crawler" env-separator:"," yaml:"sources"`
	} `yaml:"collect"`

	// Crawler configures the built-in crawler source
	Crawler struct {
		// MaxPages is the default maximum number of pages fetched per crawl
		MaxPages int `env:"CRAWLER_MAX_PAGES" env-default:"100" yaml:"maxPages"`
		// Timeout is the per-request timeout
		Timeout time.Duration `env:"CRAWLER_TIMEOUT" env-default:"10s" yaml:"timeout"`
		// UserAgent is sent with every request
		UserAgent string `env:"CRAWLER_USER_AGENT" yaml:"userAgent"`
		// RequestsPerSecond limits the fetch rate; zero disables the limit
		RequestsPerSecond float64 `env:"CRAWLER_REQUESTS_PER_SECOND" env-default:"10" yaml:"requestsPerSecond"`
		// RespectRobots skips paths disallowed by robots.txt
		RespectRobots bool `env:"CRAWLER_RESPECT_ROBOTS" env-default:"false" yaml:"respectRobots"`
	} `yaml:"crawler"`

	// Filter configures the gf pattern filter stage
	Filter struct {
		// Patterns are the gf pattern names applied when PatternsDir is empty
		Patterns []string `env:"FILTER_PATTERNS" env-default:"xss" env-separator:"," yaml:"patterns"`
		// PatternsDir, when set, makes every *.json file in it a pattern
		PatternsDir string `env:"FILTER_PATTERNS_DIR" yaml:"patternsDir"`
	} `yaml:"filter"`

	// Scanner configures the scan stage tools
	Scanner struct {
		// DalfoxArgs are appended to the dalfox invocation
		DalfoxArgs []string `env:"SCANNER_DALFOX_ARGS" env-separator:"," yaml:"dalfoxArgs"`
		// ArjunArgs are appended to the arjun invocation
		ArjunArgs []string `env:"SCANNER_ARJUN_ARGS" env-separator:"," yaml:"arjunArgs"`
	} `yaml:"scanner"`

	// Metrics configures metric export
	Metrics struct {
		// Textfile, when set, makes the run command write a node-exporter textfile
		Textfile string `env:"METRICS_TEXTFILE" yaml:"textfile"`
		// Addr is the address the worker's ops server listens on
		Addr string `env:"METRICS_ADDR" env-default:":9090" yaml:"addr"`
		// Path defines the URL path where metrics are exposed
		Path string `env:"METRICS_PATH" env-default:"/metrics" yaml:"path"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"METRICS_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
	} `yaml:"metrics"`

	// Tracing configures OTLP trace export of pipeline stages
	Tracing struct {
		// Endpoint is the OTLP/gRPC collector address; tracing is disabled when empty
		Endpoint string `env:"TRACING_ENDPOINT" yaml:"endpoint"`
		// Insecure disables TLS towards the collector
		Insecure bool `env:"TRACING_INSECURE" env-default:"false" yaml:"insecure"`
		// Headers are sent with every export request
		Headers map[string]string `env:"TRACING_HEADERS" env-separator:"," yaml:"headers"`
		// SampleRatio is the fraction of runs traced
		SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" env-default:"1" yaml:"sampleRatio"`
	} `yaml:"tracing"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"xssdawn" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"2" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Queue configures queue mode (enqueue/worker)
	Queue struct {
		// MaxWorkers is the number of runs a worker process executes concurrently
		MaxWorkers int `env:"QUEUE_MAX_WORKERS" env-default:"4" yaml:"maxWorkers"`
		// MaxAttempts is the number of times a failing run is retried
		MaxAttempts int `env:"QUEUE_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// JobTimeout bounds a single run attempt; zero or negative disables it
		JobTimeout time.Duration `env:"QUEUE_JOB_TIMEOUT" env-default:"1h" yaml:"jobTimeout"`
	} `yaml:"queue"`

	// GracefulShutdownTimeout is the maximum duration to wait for running jobs and requests during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error: the config is then read from the environment
// and defaults only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
				return nil, fmt.Errorf("could not read config: %w", err)
			}

			return &cfg, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not stat config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config from env: %w", err)
	}

	return &cfg, nil
}
