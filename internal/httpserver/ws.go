// internal/httpserver/ws.go
//
// GET /game/{id}/ws: live play over a WebSocket.
//
// Server → client frames:
//
//	{"type":"tick","data":{"events":[...],"snapshot":{...}}}   whenever a tick changed something
//	{"type":"outcome","data":{"outcome":{...},"events":[...],"snapshot":{...}}}
//	{"type":"ended","data":{"summary":{...},"rank":1,...}}
//	{"type":"error","error":"..."}
//
// Client → server frames:
//
//	{"type":"word","word":"CAT","tiles":[{"id":1,"column":0},...]}
//	{"type":"end"}
//
// One goroutine writes to the connection, one ticks, and the handler
// goroutine reads. Game state is only touched under the session lock.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/game"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4096
	wsSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
}

type wsIn struct {
	Type  string         `json:"type"`
	Word  string         `json:"word"`
	Tiles []game.TileRef `json:"tiles"`
}

type wsOut struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// push queues a frame; a full buffer drops it rather than stall the game.
func (c *wsClient) push(v wsOut) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("ws marshal")
		return
	}
	select {
	case c.send <- b:
	default:
		log.Warn().Msg("ws send buffer full, frame dropped")
	}
}

func (c *wsClient) writer() {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.deps.ClientOrigin == "" || origin == s.deps.ClientOrigin
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.lookup(w, r, id)
	if !ok {
		return
	}
	up := upgrader
	up.CheckOrigin = s.checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", id).Msg("ws upgrade")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	go c.writer()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tickLoop(c, l, done)
	}()
	defer func() {
		close(done)
		wg.Wait()
		close(c.send)
	}()

	// initial state so the client can draw immediately
	c.push(wsOut{Type: "tick", Data: s.tick(l)})

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("gameId", id).Msg("ws read")
			}
			return
		}
		var in wsIn
		if err := json.Unmarshal(data, &in); err != nil {
			c.push(wsOut{Type: "error", Error: "bad_json"})
			continue
		}
		switch in.Type {
		case "word":
			res, err := s.submit(l, game.Submission{Word: in.Word, Tiles: in.Tiles})
			if errors.Is(err, game.ErrSessionOver) {
				c.push(wsOut{Type: "error", Error: "session_over"})
				continue
			}
			c.push(wsOut{Type: "outcome", Data: res})
		case "end":
			res := s.end(r.Context(), id, l)
			c.push(wsOut{Type: "ended", Data: res})
			return
		default:
			c.push(wsOut{Type: "error", Error: "unknown message type: " + in.Type})
		}
	}
}

// tickLoop drives the session at TickInterval and pushes non-empty batches.
func (s *Server) tickLoop(c *wsClient, l *live, done <-chan struct{}) {
	t := time.NewTicker(s.deps.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			l.mu.Lock()
			over := l.game.Over()
			l.mu.Unlock()
			if over {
				return
			}
			res := s.tick(l)
			if len(res.Events) > 0 {
				c.push(wsOut{Type: "tick", Data: res})
			}
		}
	}
}
