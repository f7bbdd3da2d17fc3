package mediator

import (
	"context"
	"fmt"

	"github.com/R3E-Network/offline_gateway/internal/app/services/messenger"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
)

// EventKind keys the mediator dispatch table.
type EventKind string

const (
	EventInstall EventKind = "install"
	EventFetch   EventKind = "fetch"
	EventSync    EventKind = "sync"
	EventPush    EventKind = "push"
	EventMessage EventKind = "message"
)

// Event is one dispatched unit of work. Handlers complete before the
// exchange finalises; Response is populated by the fetch handler.
type Event struct {
	Kind     EventKind
	Request  *Request
	Response *httputil.Response
	Tag      string
	Payload  string
	Message  *messenger.Message
}

// HandlerFunc processes one event kind.
type HandlerFunc func(ctx context.Context, evt *Event) error

// RegisterHandler installs or replaces the handler for an event kind. The
// application wires the sync handler here so the mediator stays decoupled
// from the queue's replay engine.
func (s *Service) RegisterHandler(kind EventKind, fn HandlerFunc) {
	s.handlers[kind] = fn
}

// Dispatch routes an event through the handler table.
func (s *Service) Dispatch(ctx context.Context, evt *Event) error {
	fn, ok := s.handlers[evt.Kind]
	if !ok {
		return fmt.Errorf("no handler for event kind %q", evt.Kind)
	}
	return fn(ctx, evt)
}

func defaultHandlers(s *Service) map[EventKind]HandlerFunc {
	return map[EventKind]HandlerFunc{
		EventInstall: func(ctx context.Context, evt *Event) error {
			if err := s.Install(ctx); err != nil {
				return err
			}
			return s.Activate(ctx)
		},
		EventFetch: func(ctx context.Context, evt *Event) error {
			resp, err := s.Fetch(ctx, evt.Request)
			if err != nil {
				return err
			}
			evt.Response = resp
			return nil
		},
		EventPush: func(ctx context.Context, evt *Event) error {
			s.hub.Broadcast(messenger.PushAlert(evt.Payload))
			return nil
		},
		EventMessage: func(ctx context.Context, evt *Event) error {
			if evt.Message == nil {
				return fmt.Errorf("message event without message")
			}
			switch evt.Message.Kind {
			case messenger.KindSkipWaiting:
				return s.SkipWaiting(ctx)
			case messenger.KindCacheRefresh:
				return s.Dispatch(ctx, &Event{Kind: EventSync, Tag: "cache-refresh"})
			default:
				return fmt.Errorf("unsupported control message %q", evt.Message.Kind)
			}
		},
		EventSync: func(ctx context.Context, evt *Event) error {
			s.log.WithField("tag", evt.Tag).Warn("sync requested before replay engine attached")
			return nil
		},
	}
}
