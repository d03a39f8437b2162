//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/clinic/panel/internal/platform/db"
)

// externalDSNEnv points the suite at an existing database instead of a
// Docker container. The database must be empty; migrations are applied to it.
const externalDSNEnv = "CLINIC_PANEL_TEST_DATABASE_URL"

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "panel"
	pgPassword = "panel"
	pgDatabase = "paneltest"
)

// pgContainer is a throwaway Postgres started through the Docker CLI.
type pgContainer struct {
	id  string
	DSN string
}

func startPostgres(ctx context.Context) (*pgContainer, error) {
	if dsn := os.Getenv(externalDSNEnv); dsn != "" {
		return &pgContainer{DSN: dsn}, nil
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("find free port: %w", err)
	}

	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"--name", fmt.Sprintf("clinic-panel-it-%d", port),
		"--tmpfs", "/var/lib/postgresql/data",
		"-p", fmt.Sprintf("127.0.0.1:%d:5432", port),
		"-e", "POSTGRES_USER="+pgUser,
		"-e", "POSTGRES_PASSWORD="+pgPassword,
		"-e", "POSTGRES_DB="+pgDatabase,
		pgImage,
	).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("docker run: %w: %s", err, strings.TrimSpace(string(out)))
	}

	c := &pgContainer{
		id:  strings.TrimSpace(string(out)),
		DSN: fmt.Sprintf("postgres://%s:%s@127.0.0.1:%d/%s?sslmode=disable", pgUser, pgPassword, port, pgDatabase),
	}
	if err := c.waitReady(ctx, 30*time.Second); err != nil {
		c.Stop()
		return nil, err
	}
	return c, nil
}

// Stop removes the container. It is a no-op for an external database.
func (c *pgContainer) Stop() {
	if c.id == "" {
		return
	}
	_ = exec.Command("docker", "rm", "-f", c.id).Run()
}

// waitReady polls until the server answers a ping. The first successful
// TCP accept is not enough: the entrypoint restarts Postgres once after
// initdb.
func (c *pgContainer) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		pool, err := db.NewPool(ctx, c.DSN, 1, 0)
		if err == nil {
			pool.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", timeout, errors.Join(ctx.Err(), lastErr))
		case <-tick.C:
		}
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
