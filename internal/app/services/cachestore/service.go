// Package cachestore manages the versioned cache domains owned by the
// request mediator.
package cachestore

import (
	"context"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
	"github.com/R3E-Network/offline_gateway/internal/app/metrics"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Service owns the active STATIC and API cache domains for one cache
// version. Exactly one domain per identifier is active at a time; prior
// versions are purged on activation.
type Service struct {
	store   storage.CacheStore
	version int
	log     *logger.Logger
}

// New constructs a cache store manager for the given version.
func New(store storage.CacheStore, version int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cachestore")
	}
	return &Service{store: store, version: version, log: log}
}

// Version returns the active cache version.
func (s *Service) Version() int { return s.version }

// ActiveNames returns the version-stamped names of the active domains.
func (s *Service) ActiveNames() []string {
	return []string{
		resource.DomainStatic.Versioned(s.version),
		resource.DomainAPI.Versioned(s.version),
	}
}

// Open ensures both active domains exist.
func (s *Service) Open(ctx context.Context) error {
	for _, name := range s.ActiveNames() {
		if err := s.store.OpenDomain(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up an entry in the active domain for the identifier, recording
// hit/miss metrics.
func (s *Service) Get(ctx context.Context, domain resource.Domain, key string) (cache.Entry, bool, error) {
	entry, ok, err := s.store.GetEntry(ctx, domain.Versioned(s.version), key)
	if err != nil {
		return cache.Entry{}, false, err
	}
	if ok {
		metrics.RecordCacheHit(string(domain))
	} else {
		metrics.RecordCacheMiss(string(domain))
	}
	return entry, ok, nil
}

// Put stores an entry in the active domain, overwriting any existing entry
// for the key (last-writer-wins, no merge).
func (s *Service) Put(ctx context.Context, domain resource.Domain, key string, entry cache.Entry) error {
	return s.store.PutEntry(ctx, domain.Versioned(s.version), key, entry)
}

// DeleteDomainsExcept purges every domain that does not belong to the
// active version. Safe to re-run: an already-pruned store is left
// untouched.
func (s *Service) DeleteDomainsExcept(ctx context.Context) error {
	purged, err := s.store.DeleteDomainsExcept(ctx, s.ActiveNames())
	if err != nil {
		return err
	}
	for _, name := range purged {
		s.log.WithField("domain", name).Info("purged obsolete cache domain")
	}
	return nil
}
