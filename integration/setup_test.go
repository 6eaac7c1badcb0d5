package integration_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedHost string
	sharedPort int

	cleanupMu         sync.Mutex
	containerCleanups []func()
)

func TestMain(m *testing.M) {
	var err error
	sharedHost, sharedPort, _, err = startBroker()
	if err != nil {
		fmt.Printf("failed to start shared broker container: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	cleanupMu.Lock()
	for _, cleanup := range containerCleanups {
		cleanup()
	}
	cleanupMu.Unlock()

	os.Exit(code)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// startBroker starts an eclipse-mosquitto container listening on a free
// host-network port, returning the host/port this client should Dial.
func startBroker() (string, int, func(), error) {
	ctx := context.Background()

	port, err := getFreePort()
	if err != nil {
		return "", 0, nil, fmt.Errorf("find free port: %w", err)
	}
	portStr := strconv.Itoa(port)

	config := fmt.Sprintf("listener %s\nallow_anonymous true\n", portStr)
	tmpfile, err := os.CreateTemp("", "mosquitto-*.conf")
	if err != nil {
		return "", 0, nil, fmt.Errorf("temp config: %w", err)
	}
	if _, err := tmpfile.Write([]byte(config)); err != nil {
		tmpfile.Close()
		return "", 0, nil, fmt.Errorf("write temp config: %w", err)
	}
	tmpfile.Close()
	defer os.Remove(tmpfile.Name())

	req := testcontainers.ContainerRequest{
		Image: "eclipse-mosquitto:2",
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.NetworkMode = "host"
		},
		WaitingFor: wait.ForListeningPort(nat.Port(portStr + "/tcp")),
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      tmpfile.Name(),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", 0, nil, fmt.Errorf("start broker container: %w", err)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if err := c.Terminate(ctx); err != nil {
				fmt.Printf("failed to terminate broker container: %v\n", err)
			}
		})
	}

	cleanupMu.Lock()
	containerCleanups = append(containerCleanups, cleanup)
	cleanupMu.Unlock()

	return "localhost", port, cleanup, nil
}

// broker returns host/port for the shared broker container started in
// TestMain.
func broker(t *testing.T) (string, int) {
	t.Helper()
	return sharedHost, sharedPort
}
