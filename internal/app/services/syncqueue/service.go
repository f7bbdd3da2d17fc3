// Package syncqueue replays queued mutations and refreshes pre-warmed API
// entries when connectivity returns.
package syncqueue

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
	"github.com/R3E-Network/offline_gateway/internal/app/metrics"
	"github.com/R3E-Network/offline_gateway/internal/app/services/cachestore"
	"github.com/R3E-Network/offline_gateway/internal/app/services/messenger"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Upstream fetches from the origin during replay.
type Upstream interface {
	Do(ctx context.Context, method, path string, header http.Header, body []byte) (*httputil.Response, error)
}

// Service drains the pending mutation queue in enqueue order.
type Service struct {
	mutations  storage.MutationStore
	cache      *cachestore.Service
	upstream   Upstream
	hub        *messenger.Hub
	maxRetries int
	endpoints  []string
	log        *logger.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New constructs the replay engine. maxRetries bounds attempts per
// mutation before abandonment; zero selects 5.
func New(mutations storage.MutationStore, cacheSvc *cachestore.Service, upstream Upstream, hub *messenger.Hub, endpoints []string, maxRetries int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("syncqueue")
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Service{
		mutations:  mutations,
		cache:      cacheSvc,
		upstream:   upstream,
		hub:        hub,
		maxRetries: maxRetries,
		endpoints:  endpoints,
		log:        log,
		inflight:   make(map[string]bool),
	}
}

// Replay runs one ordered sync pass for the tag. A pass already in flight
// for the same tag is not re-entered. On completion, SYNC_COMPLETE is
// broadcast to all contexts.
func (s *Service) Replay(ctx context.Context, tag string) error {
	s.mu.Lock()
	if s.inflight[tag] {
		s.mu.Unlock()
		s.log.WithField("tag", tag).Debug("replay already in flight; skipping")
		return nil
	}
	s.inflight[tag] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, tag)
		s.mu.Unlock()
	}()

	s.refreshEndpoints(ctx)
	replayed, failed, abandoned, err := s.replayPending(ctx)
	if err != nil {
		return err
	}

	s.hub.Broadcast(messenger.Message{
		Kind: messenger.KindSyncComplete,
		Payload: map[string]any{
			"tag":       tag,
			"replayed":  replayed,
			"failed":    failed,
			"abandoned": abandoned,
			"message":   fmt.Sprintf("sync pass %q complete", tag),
		},
	})
	s.log.WithField("tag", tag).
		WithField("replayed", replayed).
		WithField("failed", failed).
		WithField("abandoned", abandoned).
		Info("sync pass complete")
	return nil
}

// refreshEndpoints refetches every registered API endpoint and overwrites
// its cache entry. Failures are non-fatal; the next pass tries again.
func (s *Service) refreshEndpoints(ctx context.Context) {
	for _, path := range s.endpoints {
		resp, err := s.upstream.Do(ctx, http.MethodGet, path, nil, nil)
		if err != nil || !resp.OK() {
			s.log.WithField("path", path).Debug("endpoint refresh failed; keeping cached entry")
			continue
		}
		key := cache.Key(http.MethodGet, path)
		entry := cache.Entry{
			Key:        key,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       resp.Body,
			CapturedAt: time.Now().UTC(),
		}
		if err := s.cache.Put(ctx, resource.DomainAPI, key, entry); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("endpoint refresh store failed")
		}
	}
}

// replayPending walks the queue in enqueue order. A mutation that fails
// keeps its position and increments its retry count; later mutations are
// still attempted so the causal order of successes is preserved.
func (s *Service) replayPending(ctx context.Context) (replayed, failed, abandoned int, err error) {
	pending, err := s.mutations.ListPendingMutations(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list pending mutations: %w", err)
	}
	metrics.SetQueueDepth(len(pending))

	for _, m := range pending {
		resp, fetchErr := s.upstream.Do(ctx, m.Method, m.Endpoint, m.Header, m.Body)
		if fetchErr == nil && resp.Status < http.StatusInternalServerError {
			if delErr := s.mutations.DeleteMutation(ctx, m.ID); delErr != nil {
				return replayed, failed, abandoned, fmt.Errorf("dequeue mutation %s: %w", m.ID, delErr)
			}
			metrics.RecordReplay("success")
			replayed++
			continue
		}

		m.Retries++
		if m.Retries >= s.maxRetries {
			m.State = mutation.StateAbandoned
			metrics.RecordReplay("abandoned")
			abandoned++
			s.broadcastAbandoned(m)
		} else {
			metrics.RecordReplay("failure")
			failed++
		}
		if _, upErr := s.mutations.UpdateMutation(ctx, m); upErr != nil {
			return replayed, failed, abandoned, fmt.Errorf("update mutation %s: %w", m.ID, upErr)
		}
	}

	remaining, listErr := s.mutations.ListPendingMutations(ctx)
	if listErr == nil {
		metrics.SetQueueDepth(len(remaining))
	}
	return replayed, failed, abandoned, nil
}

// broadcastAbandoned surfaces an exhausted mutation to the instances; it
// must be acknowledged by a user, never silently dropped.
func (s *Service) broadcastAbandoned(m mutation.Pending) {
	s.log.WithField("mutation_id", m.ID).
		WithField("endpoint", m.Endpoint).
		WithField("retries", m.Retries).
		Error("mutation abandoned after exhausting retries")
	s.hub.Broadcast(messenger.Message{
		Kind: messenger.KindMutationAbandoned,
		Payload: map[string]any{
			"mutation_id": m.ID,
			"endpoint":    m.Endpoint,
			"method":      m.Method,
			"retries":     m.Retries,
		},
	})
}
