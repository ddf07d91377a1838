package cli

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContext(t *testing.T) {
	t.Run("Captures The Signal", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("cannot signal the own process")
		}
		sc := NewSignalContext(context.Background())
		defer sc.Cancel()

		self, err := os.FindProcess(os.Getpid())
		require.NoError(t, err)
		require.NoError(t, self.Signal(os.Interrupt))
		select {
		case <-sc.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context was not cancelled")
		}
		assert.Equal(t, os.Interrupt, sc.Signal())
	})

	t.Run("Cancelled Without A Signal", func(t *testing.T) {
		sc := NewSignalContext(context.Background())
		sc.Cancel()
		<-sc.Done()
		assert.Nil(t, sc.Signal())
	})
}

func TestSetup_HostOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umlpreview.yaml")
	doc := "log_level: \"off\"\nrequest_timeout: 2s\nenv:\n  - JAVA_TOOL_OPTIONS=-Xmx1g\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	e, err := setup(Options{ConfigPath: path})
	require.NoError(t, err)
	defer e.Close(context.Background())

	assert.Equal(t, 2*time.Second, e.cfg.RequestTimeout)
	assert.Equal(t, []string{"JAVA_TOOL_OPTIONS=-Xmx1g"}, e.cfg.Env)
	assert.NotNil(t, e.session)
}
