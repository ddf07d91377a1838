package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFactStoreContract runs a suite of tests to verify that a FactStore implementation
// adheres to the defined interface contract.
func RunFactStoreContract(t *testing.T, store FactStore) {
	ctx := context.Background()
	prefix := "http://contract-" + time.Now().Format("20060102150405")

	t.Run("Unknown By Default", func(t *testing.T) {
		fact, err := store.Load(ctx, prefix+"-fresh:8080")
		require.NoError(t, err)
		assert.Equal(t, domain.SupportUnknown, fact)
	})

	t.Run("Settle and Load", func(t *testing.T) {
		addr := prefix + "-settle:8080"

		fact, err := store.Settle(ctx, addr, domain.SupportRejected)
		require.NoError(t, err)
		assert.Equal(t, domain.SupportRejected, fact)

		loaded, err := store.Load(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, domain.SupportRejected, loaded)
	})

	t.Run("Facts Are Monotonic", func(t *testing.T) {
		addr := prefix + "-monotonic:8080"

		_, err := store.Settle(ctx, addr, domain.SupportConfirmed)
		require.NoError(t, err)

		fact, err := store.Settle(ctx, addr, domain.SupportRejected)
		require.NoError(t, err)
		assert.Equal(t, domain.SupportConfirmed, fact, "a settled fact must not be overwritten")

		loaded, err := store.Load(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, domain.SupportConfirmed, loaded)
	})

	t.Run("Concurrent Settle Agrees", func(t *testing.T) {
		addr := prefix + "-race:8080"

		var wg sync.WaitGroup
		results := make([]domain.Support, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				want := domain.SupportConfirmed
				if i%2 == 0 {
					want = domain.SupportRejected
				}
				got, err := store.Settle(ctx, addr, want)
				assert.NoError(t, err)
				results[i] = got
			}(i)
		}
		wg.Wait()

		for _, got := range results {
			assert.Equal(t, results[0], got, "all callers must observe the same winning fact")
		}
	})
}
