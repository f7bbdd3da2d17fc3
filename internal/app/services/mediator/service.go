// Package mediator intercepts every request from the application and serves
// it from network and/or cache according to the classified policy. It owns
// the cache domains and the pending mutation queue for the lifetime of the
// gateway process.
package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
	"github.com/R3E-Network/offline_gateway/internal/app/metrics"
	"github.com/R3E-Network/offline_gateway/internal/app/services/cachestore"
	"github.com/R3E-Network/offline_gateway/internal/app/services/classifier"
	"github.com/R3E-Network/offline_gateway/internal/app/services/messenger"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Upstream fetches from the origin the gateway fronts.
type Upstream interface {
	Do(ctx context.Context, method, path string, header http.Header, body []byte) (*httputil.Response, error)
}

// Request is one intercepted application request. URL is the path and query
// relative to the upstream origin.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Navigation reports whether the request is a navigation-type document
// load, which falls back to the offline document rather than a synthetic
// payload.
func (r *Request) Navigation() bool {
	if r.Header == nil {
		return false
	}
	if strings.EqualFold(r.Header.Get("Sec-Fetch-Mode"), "navigate") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (r *Request) cacheKey(domain resource.Domain) string {
	if domain == resource.DomainAPI {
		tenant := r.Header.Get("X-Tenant-ID")
		locale := r.Header.Get("Accept-Language")
		if i := strings.IndexAny(locale, ",;"); i >= 0 {
			locale = locale[:i]
		}
		return cache.ScopedKey(r.Method, r.URL, tenant, strings.TrimSpace(locale))
	}
	return cache.Key(r.Method, r.URL)
}

// Prewarm is the fixed manifest applied at install time.
type Prewarm struct {
	StaticAssets []string
	APIEndpoints []string
}

// Service is the request mediator.
type Service struct {
	classifier *classifier.Service
	cache      *cachestore.Service
	mutations  storage.MutationStore
	upstream   Upstream
	hub        *messenger.Hub
	log        *logger.Logger

	timeout    time.Duration
	prewarm    Prewarm
	offlineDoc string

	lifecycle lifecycle
	handlers  map[EventKind]HandlerFunc
}

// New constructs a mediator. timeout bounds network-first attempts; zero
// selects the 5 second default.
func New(cls *classifier.Service, store *cachestore.Service, mutations storage.MutationStore, upstream Upstream, hub *messenger.Hub, prewarm Prewarm, offlineDoc string, timeout time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("mediator")
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	s := &Service{
		classifier: cls,
		cache:      store,
		mutations:  mutations,
		upstream:   upstream,
		hub:        hub,
		log:        log,
		timeout:    timeout,
		prewarm:    prewarm,
		offlineDoc: offlineDoc,
	}
	s.lifecycle.state = StateCreated
	s.handlers = defaultHandlers(s)
	return s
}

// Fetch mediates one request. Offline conditions are answered locally and
// never surfaced as errors; the error return covers internal faults only.
func (s *Service) Fetch(ctx context.Context, req *Request) (*httputil.Response, error) {
	if s.State() == StateRedundant {
		return s.syntheticOffline("gateway version retired"), nil
	}

	cls := s.classifier.Classify(req.Method, req.URL)
	switch cls.Policy {
	case resource.PolicyCacheFirst:
		return s.fetchStatic(ctx, req)
	case resource.PolicyNetworkFirst:
		return s.fetchAPI(ctx, req)
	default:
		return s.fetchMutation(ctx, req)
	}
}

// fetchStatic serves cache-first: a hit returns immediately with a
// background revalidation; a miss goes to the network.
func (s *Service) fetchStatic(ctx context.Context, req *Request) (*httputil.Response, error) {
	key := req.cacheKey(resource.DomainStatic)

	entry, ok, err := s.cache.Get(ctx, resource.DomainStatic, key)
	if err != nil {
		return nil, err
	}
	if ok {
		go s.revalidate(resource.DomainStatic, key, req)
		return entryResponse(entry, "hit"), nil
	}

	resp, err := s.fetchUpstream(ctx, req)
	if err != nil {
		if req.Navigation() {
			if doc := s.offlineDocument(ctx); doc != nil {
				metrics.RecordOfflineFallback("document")
				return doc, nil
			}
		}
		metrics.RecordOfflineFallback("synthetic")
		return s.syntheticOffline("network unavailable and resource not cached"), nil
	}
	s.storeResponse(ctx, resource.DomainStatic, key, req, resp)
	return resp, nil
}

// fetchAPI serves network-first with a bounded timeout so a dead network
// cannot stall API requests; business data favours freshness over
// availability.
func (s *Service) fetchAPI(ctx context.Context, req *Request) (*httputil.Response, error) {
	key := req.cacheKey(resource.DomainAPI)

	resp, err := s.fetchUpstream(ctx, req)
	if err == nil {
		s.storeResponse(ctx, resource.DomainAPI, key, req, resp)
		return resp, nil
	}

	entry, ok, cacheErr := s.cache.Get(ctx, resource.DomainAPI, key)
	if cacheErr != nil {
		return nil, cacheErr
	}
	if ok {
		metrics.RecordOfflineFallback("cache")
		return entryResponse(entry, "stale"), nil
	}
	metrics.RecordOfflineFallback("synthetic")
	return s.syntheticOffline("network unavailable and no cached response"), nil
}

// fetchMutation attempts the origin once; failure enqueues the operation
// for background replay and answers optimistically.
func (s *Service) fetchMutation(ctx context.Context, req *Request) (*httputil.Response, error) {
	opKey := mutation.OperationKey(req.Header, req.Body)

	resp, err := s.fetchUpstream(ctx, req)
	if err == nil {
		s.dropEquivalentPending(ctx, opKey)
		return resp, nil
	}

	pending := mutation.Pending{
		OpKey:    opKey,
		Method:   req.Method,
		Endpoint: req.URL,
		Header:   cloneHeader(req.Header),
		Body:     req.Body,
	}
	queued, qErr := s.mutations.EnqueueMutation(ctx, pending)
	if qErr != nil {
		return nil, fmt.Errorf("enqueue mutation: %w", qErr)
	}
	s.log.WithField("mutation_id", queued.ID).
		WithField("endpoint", queued.Endpoint).
		Info("mutation queued for background replay")
	return acceptedPending(queued), nil
}

// fetchUpstream applies the bounded network timeout.
func (s *Service) fetchUpstream(ctx context.Context, req *Request) (*httputil.Response, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.upstream.Do(fetchCtx, req.Method, req.URL, req.Header, req.Body)
}

// revalidate refreshes a served cache entry without blocking the caller.
// The write is fire-and-forget relative to the triggering request, so it
// runs on a fresh context.
func (s *Service) revalidate(domain resource.Domain, key string, req *Request) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.upstream.Do(ctx, req.Method, req.URL, req.Header, req.Body)
	if err != nil || !resp.OK() {
		return
	}
	if err := s.cache.Put(ctx, domain, key, responseEntry(key, resp)); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("revalidation write failed")
	}
}

// storeResponse caches successful responses only; origin errors pass
// through to the caller uncached.
func (s *Service) storeResponse(ctx context.Context, domain resource.Domain, key string, req *Request, resp *httputil.Response) {
	if !resp.OK() {
		return
	}
	if err := s.cache.Put(ctx, domain, key, responseEntry(key, resp)); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (s *Service) dropEquivalentPending(ctx context.Context, opKey string) {
	if opKey == "" {
		return
	}
	pending, ok, err := s.mutations.FindMutationByOpKey(ctx, opKey)
	if err != nil {
		s.log.WithError(err).Warn("pending mutation lookup failed")
		return
	}
	if !ok {
		return
	}
	if err := s.mutations.DeleteMutation(ctx, pending.ID); err != nil {
		s.log.WithError(err).WithField("mutation_id", pending.ID).Warn("pending mutation cleanup failed")
		return
	}
	s.log.WithField("mutation_id", pending.ID).Info("pending mutation superseded by direct success")
}

// offlineDocument returns the canonical offline document stored at install
// time, or nil when it was never cached.
func (s *Service) offlineDocument(ctx context.Context) *httputil.Response {
	if s.offlineDoc == "" {
		return nil
	}
	key := cache.Key(http.MethodGet, s.offlineDoc)
	entry, ok, err := s.cache.Get(ctx, resource.DomainStatic, key)
	if err != nil || !ok {
		return nil
	}
	return entryResponse(entry, "offline-document")
}

// syntheticOffline builds the machine-readable 503 served when neither
// network nor cache can answer.
func (s *Service) syntheticOffline(message string) *httputil.Response {
	body, _ := json.Marshal(map[string]any{
		"error":     "Offline",
		"message":   message,
		"cached":    false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Gateway-Cache", "none")
	return &httputil.Response{
		Status: http.StatusServiceUnavailable,
		Header: header,
		Body:   body,
	}
}

func acceptedPending(m mutation.Pending) *httputil.Response {
	body, _ := json.Marshal(map[string]any{
		"status":      "accepted-pending",
		"mutation_id": m.ID,
		"message":     "operation queued; it will replay when connectivity returns",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Gateway-Queued", "true")
	return &httputil.Response{
		Status: http.StatusAccepted,
		Header: header,
		Body:   body,
	}
}

func entryResponse(entry cache.Entry, cacheState string) *httputil.Response {
	header := cloneHeader(entry.Header)
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Gateway-Cache", cacheState)
	return &httputil.Response{
		Status: entry.Status,
		Header: header,
		Body:   entry.Body,
	}
}

func responseEntry(key string, resp *httputil.Response) cache.Entry {
	return cache.Entry{
		Key:        key,
		Status:     resp.Status,
		Header:     cloneHeader(resp.Header),
		Body:       resp.Body,
		CapturedAt: time.Now().UTC(),
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	return h.Clone()
}
