package process

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawner_Spawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	spawner := NewSpawner()

	t.Run("Pipes Stdin To Stdout", func(t *testing.T) {
		var stdout bytes.Buffer
		p, err := spawner.Spawn(ports.ProcessSpec{
			Name:    "cat",
			Command: "cat",
			Stdin:   strings.NewReader("@startuml\nA -> B\n@enduml\n"),
			Stdout:  &stdout,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID())
		assert.Greater(t, p.PID(), 0)

		select {
		case <-p.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("process did not exit")
		}
		assert.NoError(t, p.Err())
		assert.Contains(t, stdout.String(), "A -> B")
	})

	t.Run("Captures Stderr And Exit Error", func(t *testing.T) {
		var stderr bytes.Buffer
		p, err := spawner.Spawn(ports.ProcessSpec{
			Command: "sh",
			Args:    []string{"-c", "echo 'Syntax Error?' >&2; exit 3"},
			Stderr:  &stderr,
		})
		require.NoError(t, err)

		<-p.Done()
		assert.Error(t, p.Err())
		assert.Contains(t, stderr.String(), "Syntax Error?")
		assert.Equal(t, StateExited, p.(*Process).State())
	})

	t.Run("Fails For Missing Command", func(t *testing.T) {
		_, err := spawner.Spawn(ports.ProcessSpec{Command: "definitely-not-a-renderer-binary"})
		assert.Error(t, err)
	})

	t.Run("Rejects Empty Command", func(t *testing.T) {
		_, err := spawner.Spawn(ports.ProcessSpec{Name: "empty"})
		assert.ErrorContains(t, err, "empty command")
	})

	t.Run("Uses Base Dir", func(t *testing.T) {
		dir := t.TempDir()
		var stdout bytes.Buffer
		p, err := NewSpawner(WithBaseDir(dir)).Spawn(ports.ProcessSpec{
			Command: "pwd",
			Stdout:  &stdout,
		})
		require.NoError(t, err)
		<-p.Done()
		assert.Contains(t, stdout.String(), filepath.Base(dir))
	})
}

func TestProcess_TerminateAfterExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on true")
	}

	p, err := NewSpawner().Spawn(ports.ProcessSpec{Command: "true"})
	require.NoError(t, err)
	<-p.Done()

	assert.NoError(t, p.Terminate(context.Background()), "terminating an exited process is a no-op")
}

func TestSpawner_WithEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	var stdout bytes.Buffer
	spawner := NewSpawner(WithEnv("UMLPREVIEW_TEST_VAR=-Xmx512m"))
	p, err := spawner.Spawn(ports.ProcessSpec{
		Command: "sh",
		Args:    []string{"-c", `printf %s "$UMLPREVIEW_TEST_VAR"`},
		Stdout:  &stdout,
	})
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	require.NoError(t, p.Err())
	assert.Equal(t, "-Xmx512m", stdout.String())
}
