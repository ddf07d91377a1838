package process_test

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/umlpreview/pkg/adapters/process"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture compiles a Go program from testdata into a temp binary.
func buildFixture(t *testing.T, dirName string) string {
	t.Helper()

	exeName := dirName
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	destPath := filepath.Join(t.TempDir(), exeName)

	cmd := exec.Command("go", "build", "-o", destPath, "./"+filepath.Join("testdata", dirName))
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "Failed to build fixture %s: %s", dirName, string(out))

	return destPath
}

// syncBuffer lets the test read output while the copier goroutine writes.
type syncBuffer struct {
	ch  chan struct{}
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	select {
	case b.ch <- struct{}{}:
	default:
	}
	return b.buf.Write(p)
}

func TestResilience_GracefulServer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupts are not delivered on windows")
	}
	exe := buildFixture(t, "fake_server")

	stderr := &syncBuffer{ch: make(chan struct{}, 1)}
	p, err := process.NewSpawner().Spawn(ports.ProcessSpec{
		Name:    "fake_server",
		Command: exe,
		Stderr:  stderr,
	})
	require.NoError(t, err)

	select {
	case <-stderr.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("server never reported readiness")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Terminate(ctx))
	duration := time.Since(start)

	t.Logf("Duration: %v, ExitErr: %v", duration, p.Err())
	assert.Less(t, duration, 3*time.Second, "should exit gracefully after the interrupt")
	assert.NoError(t, p.Err())
	assert.Equal(t, process.StateExited, p.(*process.Process).State())
}

func TestResilience_StubbornEngineIsKilled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("exit states differ on windows")
	}
	exe := buildFixture(t, "stubborn_engine")

	p, err := process.NewSpawner().Spawn(ports.ProcessSpec{
		Name:    "stubborn_engine",
		Command: exe,
	})
	require.NoError(t, err)

	// Give the fixture time to install its signal handlers.
	time.Sleep(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Terminate(ctx))
	duration := time.Since(start)

	t.Logf("Duration: %v, ExitErr: %v", duration, p.Err())
	assert.GreaterOrEqual(t, duration, 900*time.Millisecond, "should wait for the grace period")

	select {
	case <-p.Done():
	default:
		t.Fatal("Terminate returned before the process exited")
	}
	assert.Equal(t, process.StateKilled, p.(*process.Process).State())
}
