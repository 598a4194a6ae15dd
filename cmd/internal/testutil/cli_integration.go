//go:build integration

// Package testutil starts containers for command integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"

	"github.com/velmie/joboutbox/mysql"
)

// Table is the outbox table created by StartMySQLContainer.
const Table = "joboutbox"

const (
	mysqlImage          = "mysql:8.0.36"
	redisImage          = "redis:7.2-alpine"
	mysqlDatabase       = "joboutbox"
	mysqlUser           = "root"
	mysqlPassword       = "secret"
	cliContainerImage   = "alpine:3.20"
	cliContainerPath    = "/cli"
	cliExitTimeout      = 2 * time.Minute
	mysqlStartupTimeout = 2 * time.Minute
	redisStartupTimeout = time.Minute
)

// MySQLContainer is a MySQL server on a private network shared with CLI containers.
// DB connects from the host, DSN from inside the network.
type MySQLContainer struct {
	Container testcontainers.Container
	Network   *testcontainers.DockerNetwork
	DB        *sql.DB
	DSN       string
}

// RedisContainer is a Redis server reachable as redis:6379 inside Network.
type RedisContainer struct {
	Container testcontainers.Container
	Client    *goredis.Client
	URL       string
}

// StartMySQLContainer starts MySQL with the joboutbox schema applied. The test is skipped
// when Docker is unavailable.
func StartMySQLContainer(t *testing.T, ctx context.Context) MySQLContainer {
	t.Helper()

	net, err := network.New(ctx)
	if err != nil {
		t.Skipf("create network: %v", err)
	}
	t.Cleanup(func() {
		_ = net.Remove(ctx)
	})

	port := nat.Port("3306/tcp")
	req := testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		Networks: []string{net.Name},
		NetworkAliases: map[string][]string{
			net.Name: {"mysql"},
		},
		WaitingFor: wait.ForSQL(port, "mysql", func(host string, port nat.Port) string {
			return fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true",
				mysqlUser,
				mysqlPassword,
				host,
				port.Port(),
				mysqlDatabase,
			)
		}).WithStartupTimeout(mysqlStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("resolve port: %v", err)
	}

	dsnHost := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true",
		mysqlUser,
		mysqlPassword,
		host,
		mappedPort.Port(),
		mysqlDatabase,
	)
	db, err := sql.Open("mysql", dsnHost)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	schema, err := mysql.Schema(Table)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	containerDSN := fmt.Sprintf(
		"%s:%s@tcp(mysql:3306)/%s?parseTime=true",
		mysqlUser,
		mysqlPassword,
		mysqlDatabase,
	)

	return MySQLContainer{
		Container: container,
		Network:   net,
		DB:        db,
		DSN:       containerDSN,
	}
}

// StartRedisContainer starts Redis attached to networkName under the alias redis.
func StartRedisContainer(t *testing.T, ctx context.Context, networkName string) RedisContainer {
	t.Helper()

	port := nat.Port("6379/tcp")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{string(port)},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"redis"},
			},
			WaitingFor: wait.ForLog("Ready to accept connections").WithStartupTimeout(redisStartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("resolve port: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port())})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return RedisContainer{
		Container: container,
		Client:    client,
		URL:       "redis://redis:6379/0",
	}
}

// BuildBinary compiles pkg for linux so it can run inside a CLI container.
func BuildBinary(t *testing.T, pkg string) string {
	t.Helper()

	name := filepath.Base(pkg)
	if name == "." {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("resolve working dir: %v", err)
		}
		name = filepath.Base(wd)
	}
	bin := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=0",
		"GOOS=linux",
		"GOARCH="+runtime.GOARCH,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s: %v\n%s", pkg, err, string(out))
	}

	return bin
}

// RunCLIContainer runs the binary with args and env until it exits and returns its exit
// code and combined output.
func RunCLIContainer(t *testing.T, ctx context.Context, networkName, binaryPath string, args []string, env map[string]string) (int, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:      cliContainerImage,
		Entrypoint: []string{cliContainerPath},
		Cmd:        args,
		Env:        env,
		Networks:   []string{networkName},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      binaryPath,
				ContainerFilePath: cliContainerPath,
				FileMode:          0o755,
			},
		},
		WaitingFor: wait.ForExit().WithExitTimeout(cliExitTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start cli container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	logsReader, err := container.Logs(ctx)
	if err != nil {
		t.Fatalf("read cli logs: %v", err)
	}
	defer logsReader.Close()

	logs, err := io.ReadAll(logsReader)
	if err != nil {
		t.Fatalf("read cli logs: %v", err)
	}

	state, err := container.State(ctx)
	if err != nil {
		t.Fatalf("read cli state: %v", err)
	}

	return state.ExitCode, string(logs)
}

// StartCLIContainer starts a long-running binary and leaves it running until the test ends.
func StartCLIContainer(t *testing.T, ctx context.Context, networkName, binaryPath string, args []string, env map[string]string) testcontainers.Container {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      cliContainerImage,
			Entrypoint: []string{cliContainerPath},
			Cmd:        args,
			Env:        env,
			Networks:   []string{networkName},
			Files: []testcontainers.ContainerFile{
				{
					HostFilePath:      binaryPath,
					ContainerFilePath: cliContainerPath,
					FileMode:          0o755,
				},
			},
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start cli container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	return container
}
