package storage

import (
	"context"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
)

// CacheStore persists versioned cache domains and their entries.
type CacheStore interface {
	// OpenDomain creates the named domain if it does not exist.
	OpenDomain(ctx context.Context, name string) error
	// GetEntry returns the entry for key, reporting whether it exists.
	GetEntry(ctx context.Context, domain, key string) (cache.Entry, bool, error)
	// PutEntry stores an entry, overwriting any existing entry for the key.
	PutEntry(ctx context.Context, domain, key string, entry cache.Entry) error
	// ListDomains returns all known domain names.
	ListDomains(ctx context.Context) ([]string, error)
	// DeleteDomainsExcept removes every domain not named in active and
	// returns the names purged. It is idempotent.
	DeleteDomainsExcept(ctx context.Context, active []string) ([]string, error)
}

// MutationStore persists pending mutations in enqueue order.
type MutationStore interface {
	EnqueueMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error)
	// ListPendingMutations returns pending mutations in enqueue (FIFO) order.
	ListPendingMutations(ctx context.Context) ([]mutation.Pending, error)
	UpdateMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error)
	DeleteMutation(ctx context.Context, id string) error
	// FindMutationByOpKey locates a pending mutation by operation identity.
	FindMutationByOpKey(ctx context.Context, opKey string) (mutation.Pending, bool, error)
}
