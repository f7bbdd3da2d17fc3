package app

import (
	"context"

	"github.com/R3E-Network/offline_gateway/internal/app/services/cachestore"
	"github.com/R3E-Network/offline_gateway/internal/app/services/classifier"
	"github.com/R3E-Network/offline_gateway/internal/app/services/delivery"
	"github.com/R3E-Network/offline_gateway/internal/app/services/gesture"
	"github.com/R3E-Network/offline_gateway/internal/app/services/mediator"
	"github.com/R3E-Network/offline_gateway/internal/app/services/messenger"
	"github.com/R3E-Network/offline_gateway/internal/app/services/profiler"
	"github.com/R3E-Network/offline_gateway/internal/app/services/syncqueue"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
	"github.com/R3E-Network/offline_gateway/internal/app/storage/memory"
	"github.com/R3E-Network/offline_gateway/internal/app/system"
	"github.com/R3E-Network/offline_gateway/internal/config"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Cache     storage.CacheStore
	Mutations storage.MutationStore
}

// Upstream fetches from the origin the gateway fronts. *httputil.Client
// satisfies it.
type Upstream interface {
	mediator.Upstream
}

// Application ties the gateway services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Classifier *classifier.Service
	Cache      *cachestore.Service
	Mediator   *mediator.Service
	Sync       *syncqueue.Service
	SyncRunner *syncqueue.Runner
	Hub        *messenger.Hub
	Messenger  *messenger.Gateway
	Profiler   *profiler.Service
	Delivery   *delivery.Selector
	Gestures   *gesture.Recognizer
}

// New builds a fully initialised application. upstream is required; stores
// default to in-memory.
func New(cfg *config.Config, stores Stores, upstream Upstream, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Cache == nil || stores.Mutations == nil {
		mem := memory.New()
		if stores.Cache == nil {
			stores.Cache = mem
		}
		if stores.Mutations == nil {
			stores.Mutations = mem
		}
	}

	hub := messenger.NewHub(log.WithField("component", "messenger"))
	cls := classifier.New(cfg.Cache.APIPrefix)
	cacheSvc := cachestore.New(stores.Cache, cfg.Cache.Version, log.WithField("component", "cachestore"))

	med := mediator.New(
		cls,
		cacheSvc,
		stores.Mutations,
		upstream,
		hub,
		mediator.Prewarm{
			StaticAssets: cfg.Prewarm.StaticAssets,
			APIEndpoints: cfg.Prewarm.APIEndpoints,
		},
		cfg.Cache.OfflineDocPath,
		cfg.Upstream.Timeout(),
		log.WithField("component", "mediator"),
	)

	syncSvc := syncqueue.New(
		stores.Mutations,
		cacheSvc,
		upstream,
		hub,
		cfg.Prewarm.APIEndpoints,
		cfg.Sync.MaxRetries,
		log.WithField("component", "syncqueue"),
	)

	// The mediator stays decoupled from the replay engine; sync events
	// route through here instead.
	med.RegisterHandler(mediator.EventSync, func(ctx context.Context, evt *mediator.Event) error {
		return syncSvc.Replay(ctx, evt.Tag)
	})

	gateway := messenger.NewGateway(hub, func(ctx context.Context, msg messenger.Message) error {
		return med.Dispatch(ctx, &mediator.Event{Kind: mediator.EventMessage, Message: &msg})
	}, log.WithField("component", "messenger-ws"))

	runner := syncqueue.NewRunner(syncSvc, cfg.Sync.Schedule, cfg.Sync.Tag, log.WithField("component", "sync-runner"))

	prof := profiler.New(log.WithField("component", "profiler"))

	app := &Application{
		manager:    system.NewManager(),
		log:        log,
		Classifier: cls,
		Cache:      cacheSvc,
		Mediator:   med,
		Sync:       syncSvc,
		SyncRunner: runner,
		Hub:        hub,
		Messenger:  gateway,
		Profiler:   prof,
		Delivery:   delivery.NewSelector(),
	}
	app.Gestures = gesture.NewRecognizer(app.publishGesture, gesture.Options{})

	if err := app.manager.Register(&mediatorLifecycle{med: med}); err != nil {
		return nil, err
	}
	if err := app.manager.Register(runner); err != nil {
		return nil, err
	}
	if err := app.manager.Register(&hubLifecycle{hub: hub}); err != nil {
		return nil, err
	}
	return app, nil
}

// publishGesture fans recognized gestures out to connected instances.
func (a *Application) publishGesture(g gesture.Gesture) {
	a.Hub.Broadcast(messenger.Message{
		Kind: messenger.KindGesture,
		Payload: map[string]any{
			"kind":      string(g.Kind),
			"direction": string(g.Direction),
			"x":         g.X,
			"y":         g.Y,
		},
	})
}

// Start installs and activates the mediator and brings up background
// services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop retires the mediator and shuts background services down in reverse
// order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// mediatorLifecycle adapts the mediator state machine to the system
// manager.
type mediatorLifecycle struct {
	med *mediator.Service
}

func (m *mediatorLifecycle) Name() string { return "mediator" }

func (m *mediatorLifecycle) Start(ctx context.Context) error {
	return m.med.Dispatch(ctx, &mediator.Event{Kind: mediator.EventInstall})
}

func (m *mediatorLifecycle) Stop(ctx context.Context) error {
	m.med.MarkRedundant()
	return nil
}

// hubLifecycle closes broadcast subscriptions on shutdown.
type hubLifecycle struct {
	hub *messenger.Hub
}

func (h *hubLifecycle) Name() string { return "messenger-hub" }

func (h *hubLifecycle) Start(ctx context.Context) error { return nil }

func (h *hubLifecycle) Stop(ctx context.Context) error {
	h.hub.Close()
	return nil
}
