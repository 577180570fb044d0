package reporting

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket tuning constants, matching the teacher's collab.Hub values.
const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 8192
	sendBufferSize  = 256
	broadcastBuffer = 1024
)

var logger = log.New(os.Stderr, "[REPORT] ", log.LstdFlags)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one websocket connection watching a single run.
type client struct {
	id    string
	runID string
	conn  *websocket.Conn
	send  chan *Message
}

type broadcastMessage struct {
	runID string
	msg   *Message
}

// Hub fans EventProgress/EventPSM/EventDone messages out to every
// websocket client watching a given run ID, mirroring collab.Hub's
// register/unregister/broadcast goroutine loop repurposed to stream
// search progress instead of cursor and comment updates.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[string]*client
	register   chan *client
	unregister chan *client
	broadcast  chan *broadcastMessage
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *broadcastMessage, broadcastBuffer),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.runID] == nil {
				h.clients[c.runID] = make(map[string]*client)
			}
			h.clients[c.runID][c.id] = c
			h.mu.Unlock()
			logger.Printf("client %s watching run %s (total: %d)", c.id, c.runID, len(h.clients[c.runID]))

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[c.runID]; ok {
				if _, exists := clients[c.id]; exists {
					close(c.send)
					delete(clients, c.id)
					if len(clients) == 0 {
						delete(h.clients, c.runID)
					}
				}
			}
			h.mu.Unlock()

		case bm := <-h.broadcast:
			h.mu.RLock()
			clients := h.clients[bm.runID]
			h.mu.RUnlock()
			for id, c := range clients {
				select {
				case c.send <- bm.msg:
				default:
					logger.Printf("client %s send buffer full, dropping event", id)
				}
			}
		}
	}
}

// Publish broadcasts msg to every client watching runID. Non-blocking:
// a slow or absent websocket client never stalls the search pipeline.
func (h *Hub) Publish(runID string, msg *Message) {
	select {
	case h.broadcast <- &broadcastMessage{runID: runID, msg: msg}:
	default:
		logger.Printf("broadcast channel full, dropping event for run %s", runID)
	}
}

// HasWatchers reports whether any client is currently watching runID,
// letting a caller skip building payloads nobody will receive.
func (h *Hub) HasWatchers(runID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID]) > 0
}

// Serve upgrades r into a websocket connection watching runID and blocks
// until the connection closes (read pump exits). Called from an HTTP
// handler.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, runID, clientID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{id: clientID, runID: runID, conn: conn, send: make(chan *Message, sendBufferSize)}
	h.register <- c

	go c.writePump()
	c.readPump(h)
	return nil
}

// readPump drains (and discards) any client-sent frames and keeps the
// read deadline alive via pong handling; the stream is one-directional
// in practice, but a client that never reads would otherwise never be
// detected as gone.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Printf("read error for client %s: %v", c.id, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Printf("write error for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
