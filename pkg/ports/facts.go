package ports

import (
	"context"

	"github.com/aretw0/umlpreview/pkg/domain"
)

// FactStore remembers what each server address supports.
// Facts are monotonic: once an address leaves SupportUnknown it never changes again.
type FactStore interface {
	// Load returns the known fact for address, SupportUnknown if none.
	Load(ctx context.Context, address string) (domain.Support, error)

	// Settle records fact for address unless a fact is already known.
	// It returns the fact in effect after the call.
	Settle(ctx context.Context, address string, fact domain.Support) (domain.Support, error)
}
