// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer wraps a testcontainers SurrealDB instance.
type SurrealDBContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// Environment knobs for the SurrealDB-backed tests.
const (
	// EnvSurrealAddr points the tests at a running server ("host:port")
	// instead of starting a container.
	EnvSurrealAddr = "STOCKFOLIO_TEST_SURREAL_ADDR"
	// EnvSurrealImage overrides the container image.
	EnvSurrealImage = "STOCKFOLIO_TEST_SURREAL_IMAGE"

	defaultSurrealImage = "surrealdb/surrealdb:v3.0.0"
)

// StartSurrealDB returns the shared SurrealDB instance for the test run,
// starting a container on first use. Tests using it are skipped under -short.
// Root credentials are root/root.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("SurrealDB container tests skipped in -short mode")
	}

	surrealOnce.Do(func() {
		if addr := os.Getenv(EnvSurrealAddr); addr != "" {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				surrealError = fmt.Errorf("%s: %w", EnvSurrealAddr, err)
				return
			}
			surrealContainer = &SurrealDBContainer{host: host, port: port}
			return
		}

		image := os.Getenv(EnvSurrealImage)
		if image == "" {
			image = defaultSurrealImage
		}

		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealContainer = &SurrealDBContainer{
			container: container,
			host:      host,
			port:      mappedPort.Port(),
		}
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}

	return surrealContainer
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// Cleanup terminates the container, if one was started. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
