package mediator

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
)

// State is the mediator lifecycle state. The mediator is process-wide
// shared infrastructure, so its lifecycle is an explicit, auditable state
// machine rather than ambient singleton state.
type State string

const (
	StateCreated    State = "CREATED"
	StateInstalling State = "INSTALLING"
	StateWaiting    State = "WAITING"
	StateActive     State = "ACTIVE"
	StateRedundant  State = "REDUNDANT"
)

type lifecycle struct {
	mu        sync.Mutex
	state     State
	activated bool
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.lifecycle.mu.Lock()
	defer s.lifecycle.mu.Unlock()
	return s.lifecycle.state
}

func (s *Service) transition(from []State, to State) error {
	s.lifecycle.mu.Lock()
	defer s.lifecycle.mu.Unlock()

	for _, f := range from {
		if s.lifecycle.state == f {
			s.lifecycle.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition to %s from %s", to, s.lifecycle.state)
}

// Install pre-populates the STATIC domain with the asset manifest and
// best-effort pre-warms the API domain. Pre-warm failures are logged and
// picked up again by the next background sync pass; they never fail the
// install.
func (s *Service) Install(ctx context.Context) error {
	if err := s.transition([]State{StateCreated}, StateInstalling); err != nil {
		return err
	}
	if err := s.cache.Open(ctx); err != nil {
		return fmt.Errorf("open cache domains: %w", err)
	}

	assets := s.prewarm.StaticAssets
	if s.offlineDoc != "" && !contains(assets, s.offlineDoc) {
		assets = append([]string{s.offlineDoc}, assets...)
	}
	for _, path := range assets {
		s.prewarmPath(ctx, path, false)
	}
	for _, path := range s.prewarm.APIEndpoints {
		s.prewarmPath(ctx, path, true)
	}

	if err := s.transition([]State{StateInstalling}, StateWaiting); err != nil {
		return err
	}
	s.log.WithField("version", s.cache.Version()).Info("install complete; waiting for activation")
	return nil
}

func (s *Service) prewarmPath(ctx context.Context, path string, api bool) {
	req := &Request{Method: http.MethodGet, URL: path}
	resp, err := s.fetchUpstream(ctx, req)
	if err != nil || !resp.OK() {
		s.log.WithField("path", path).Warn("pre-warm fetch failed; will retry on next sync")
		return
	}
	domain := staticOrAPI(api)
	key := req.cacheKey(domain)
	if err := s.cache.Put(ctx, domain, key, responseEntry(key, resp)); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("pre-warm store failed")
	}
}

// Activate promotes the mediator to ACTIVE and purges cache domains from
// earlier versions. The purge runs once per activation; a failed purge
// stays pending so the next activation attempt retries it (the underlying
// delete is idempotent).
func (s *Service) Activate(ctx context.Context) error {
	if err := s.transition([]State{StateWaiting, StateActive}, StateActive); err != nil {
		return err
	}

	s.lifecycle.mu.Lock()
	alreadyPurged := s.lifecycle.activated
	s.lifecycle.mu.Unlock()

	if !alreadyPurged {
		if err := s.cache.DeleteDomainsExcept(ctx); err != nil {
			return fmt.Errorf("purge obsolete domains: %w", err)
		}
		s.lifecycle.mu.Lock()
		s.lifecycle.activated = true
		s.lifecycle.mu.Unlock()
	}
	s.log.WithField("version", s.cache.Version()).Info("mediator active")
	return nil
}

// SkipWaiting forces a waiting mediator to activate immediately instead of
// waiting for existing instances to close. Long-lived single-page sessions
// would otherwise pin the previous version forever. An active mediator with
// a pending purge re-runs the activation.
func (s *Service) SkipWaiting(ctx context.Context) error {
	s.lifecycle.mu.Lock()
	state := s.lifecycle.state
	purged := s.lifecycle.activated
	s.lifecycle.mu.Unlock()

	if state == StateWaiting || (state == StateActive && !purged) {
		return s.Activate(ctx)
	}
	return nil
}

// MarkRedundant retires the mediator. Terminal: no further requests are
// served.
func (s *Service) MarkRedundant() {
	s.lifecycle.mu.Lock()
	defer s.lifecycle.mu.Unlock()
	s.lifecycle.state = StateRedundant
}

func staticOrAPI(api bool) resource.Domain {
	if api {
		return resource.DomainAPI
	}
	return resource.DomainStatic
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
