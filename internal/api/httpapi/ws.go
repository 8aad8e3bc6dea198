package httpapi

import (
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/hmuro/playalong/internal/app/session"
)

// wsEvent is the JSON shape pushed to stream subscribers.
type wsEvent struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// wsClient is one WebSocket subscriber. Writes are serialized; the last
// seen load generation stamps the fragments the client sends, so
// fragments still in flight when the song changes are discarded.
type wsClient struct {
	conn *websocket.Conn

	mu  sync.Mutex
	gen int
}

// Send implements notification.Stream.
func (c *wsClient) Send(ev session.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen = ev.Snapshot.Generation
	return c.conn.WriteJSON(wsEvent{Type: ev.Type.String(), Snapshot: ev.Snapshot})
}

func (c *wsClient) generation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// handleStream upgrades the connection and bridges it to the session:
// inbound text messages are detection fragments, outbound messages are
// session event snapshots.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	snap := s.session.Snapshot()
	client := &wsClient{conn: conn, gen: snap.Generation}

	if err := client.Send(session.Event{Type: session.EventSongLoaded, Snapshot: snap}); err != nil {
		return
	}

	id := s.notify.Subscribe(client)
	defer s.notify.Unsubscribe(id)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zlog.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		_, err = s.session.FeedFragment(client.generation(), string(msg))
		if errors.Is(err, session.ErrStaleFragment) {
			zlog.Debug().Msg("discarded stale detection fragment")
			continue
		}
		if errors.Is(err, session.ErrNoSong) {
			continue
		}
	}
}
