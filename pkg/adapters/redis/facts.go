package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/umlpreview/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// FactStore implements ports.FactStore using Redis, so that several preview
// hosts pointed at the same rendering server share what it supports.
//
// A missing key means SupportUnknown. Facts are written with SET NX, which
// makes the first writer win and keeps facts monotonic across hosts.
type FactStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*FactStore)

// WithTTL sets the expiration for facts. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *FactStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for facts.
func WithPrefix(prefix string) Option {
	return func(s *FactStore) {
		s.prefix = prefix
	}
}

// New creates a new Redis fact store with options.
func New(address, password string, db int, opts ...Option) *FactStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromURL creates a store from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*FactStore, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a new Redis fact store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *FactStore {
	store := &FactStore{
		client: client,
		prefix: "umlpreview:facts:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *FactStore) key(address string) string {
	return s.prefix + address
}

// Load retrieves the fact for address.
func (s *FactStore) Load(ctx context.Context, address string) (domain.Support, error) {
	val, err := s.client.Get(ctx, s.key(address)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.SupportUnknown, nil
		}
		return domain.SupportUnknown, fmt.Errorf("failed to get from redis: %w", err)
	}
	return domain.ParseSupport(val), nil
}

// Settle writes fact unless another writer got there first, and returns the winner.
func (s *FactStore) Settle(ctx context.Context, address string, fact domain.Support) (domain.Support, error) {
	if fact == domain.SupportUnknown {
		return s.Load(ctx, address)
	}

	ok, err := s.client.SetNX(ctx, s.key(address), fact.String(), s.ttl).Result()
	if err != nil {
		return domain.SupportUnknown, fmt.Errorf("failed to save to redis: %w", err)
	}
	if ok {
		return fact, nil
	}
	return s.Load(ctx, address)
}

// Close closes the redis client.
func (s *FactStore) Close() error {
	return s.client.Close()
}
