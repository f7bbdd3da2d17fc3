package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// ControlFunc handles control messages sent by an instance over its socket.
type ControlFunc func(ctx context.Context, msg Message) error

// Gateway attaches application instances to the hub over websockets.
type Gateway struct {
	hub      *Hub
	control  ControlFunc
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewGateway creates the websocket transport. control receives inbound
// SKIP_WAITING and CACHE_REFRESH messages; it may be nil.
func NewGateway(hub *Hub, control ControlFunc, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("messenger-ws")
	}
	return &Gateway{
		hub:     hub,
		control: control,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced upstream by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Attach upgrades the request and pumps hub messages to the instance until
// either side disconnects.
func (g *Gateway) Attach(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	messages, cancel := g.hub.Subscribe()
	defer cancel()
	defer conn.Close()

	done := make(chan struct{})
	go g.readPump(r.Context(), conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readPump consumes inbound control messages until the connection closes.
func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(64 << 10)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			g.log.WithError(err).Warn("discarding malformed control message")
			continue
		}
		if g.control == nil {
			continue
		}
		if err := g.control(ctx, msg); err != nil {
			g.log.WithError(err).
				WithField("kind", string(msg.Kind)).
				Warn("control message failed")
		}
	}
}
