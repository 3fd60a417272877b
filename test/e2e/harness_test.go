// Package e2e builds the errand binary and drives it over HTTP. The tests
// run only when ERRAND_E2E=1 because they compile the module and spawn
// worker processes.
package e2e

import (
	"bytes"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// syncBuffer collects the combined output of the server and its workers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// errandServer is a running `errand serve` process.
type errandServer struct {
	url      string
	storeDir string
	output   *syncBuffer
}

var binary = sync.OnceValues(func() (string, error) {
	dir, err := os.MkdirTemp("", "errand-e2e-*")
	if err != nil {
		return "", err
	}
	root, err := moduleRoot()
	if err != nil {
		return "", err
	}
	bin := filepath.Join(dir, "errand")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/errand")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &buildError{err: err, output: out}
	}
	return bin, nil
})

type buildError struct {
	err    error
	output []byte
}

func (e *buildError) Error() string { return "go build: " + e.err.Error() + "\n" + string(e.output) }

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

// startServer builds errand once per test binary and runs `errand serve`
// with the scripted engine, a file store in a temp dir and itself as the
// worker executable.
func startServer(t *testing.T) *errandServer {
	t.Helper()
	if os.Getenv("ERRAND_E2E") != "1" {
		t.Skip("set ERRAND_E2E=1 to run end-to-end tests")
	}

	bin, err := binary()
	require.NoError(t, err)

	addr := freeAddr(t)
	srv := &errandServer{
		url:      "http://" + addr,
		storeDir: filepath.Join(t.TempDir(), "search_results"),
		output:   &syncBuffer{},
	}

	cmd := exec.Command(bin, "serve")
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"ERRAND_LISTEN_ADDR="+addr,
		"ERRAND_STORE_DRIVER=file",
		"ERRAND_STORE_DIR="+srv.storeDir,
		"ERRAND_ENGINE_KIND=scripted",
		"ERRAND_WORKER_BIN="+bin,
		"ERRAND_LOG_LEVEL=info",
	)
	cmd.Stdout = srv.output
	cmd.Stderr = srv.output
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.url + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, startupTimeout, pollInterval, "server did not become ready:\n%s", srv.output)

	return srv
}
