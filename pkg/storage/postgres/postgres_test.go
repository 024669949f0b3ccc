package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"
	root "xssdawn"
	"xssdawn/pkg/storage/postgres"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image    = "postgres:17"
	user     = "postgres"
	password = "postgres"
)

// server is shared by every test in the package; each test gets its own
// database on it.
var (
	server struct {
		host string
		port int
	}
	databases atomic.Int64
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start %s: %v\n", image, err)
		os.Exit(1)
	}

	code, err := func() (int, error) {
		defer func() { _ = container.Terminate(ctx) }()

		host, err := container.Host(ctx)
		if err != nil {
			return 0, fmt.Errorf("could not get container host: %w", err)
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			return 0, fmt.Errorf("could not get mapped port: %w", err)
		}
		server.host, server.port = host, port.Int()

		return m.Run(), nil
	}()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(code)
}

func connect(ctx context.Context, database string) (*postgres.PgSQL, error) {
	return postgres.New(ctx, postgres.Options{
		Username:           user,
		Password:           password,
		Host:               server.host,
		Port:               server.port,
		Database:           database,
		SslMode:            "disable",
		ConnMaxLifetime:    time.Minute,
		ConnMaxIdleTime:    time.Minute,
		MaxOpenConnections: 5,
		MaxIdleConnections: 2,
	})
}

// setupTestDB creates a fresh, migrated database and returns a store bound to
// it. The returned func drops the database.
func setupTestDB(t *testing.T) (*postgres.PgSQL, func()) {
	t.Helper()
	ctx := context.Background()

	admin, err := connect(ctx, "postgres")
	require.NoError(t, err)

	name := fmt.Sprintf("xssdawn_%d", databases.Add(1))
	_, err = admin.DB.ExecContext(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err)

	pg, err := connect(ctx, name)
	require.NoError(t, err)

	goose.SetBaseFS(root.Migrations)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, pg.DB.(*sql.DB), "migrations"))

	return pg, func() {
		_ = pg.Close()
		_, _ = admin.DB.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)")
		_ = admin.Close()
	}
}
