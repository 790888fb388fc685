package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// startServer runs s in the background and returns its local base URL
func startServer(t *testing.T, s *Server) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	return "http://127.0.0.1:" + port, cancel, done
}

func TestServer_RunUntilCancelled(t *testing.T) {
	cfg := &config.Config{Port: "0"}
	s := New(cfg, logger.Nop(), NewRouter(Handlers{}, nil, logger.Nop()))

	base, cancel, done := startServer(t, s)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "aegis-picker-api")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	s := New(&config.Config{Port: port}, logger.Nop(), http.NotFoundHandler())
	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
	assert.Empty(t, s.Addr())
}

func TestMetricsServer(t *testing.T) {
	m := metrics.New()
	m.CountRun("ok")

	s := NewMetricsServer(&config.Config{MetricsPort: "0"}, m, logger.Nop())
	base, cancel, done := startServer(t, s)
	defer func() {
		cancel()
		<-done
	}()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `picker_runs_total{result="ok"} 1`)

	resp, err = http.Get(base + "/api/pick/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
