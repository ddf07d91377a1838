package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/umlpreview/pkg/adapters/memory"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestFactStore_Contract(t *testing.T) {
	ports.RunFactStoreContract(t, memory.NewFactStore())
}

func TestFactStore_SettleUnknownIsNoop(t *testing.T) {
	store := memory.NewFactStore()
	ctx := context.Background()

	fact, err := store.Settle(ctx, "http://localhost:8080", domain.SupportUnknown)
	assert.NoError(t, err)
	assert.Equal(t, domain.SupportUnknown, fact)
	assert.Empty(t, store.Snapshot())
}

var _ ports.FactStore = (*memory.FactStore)(nil)
