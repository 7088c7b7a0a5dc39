package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/model_problems/Energy"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Msg is the envelope written to every client.
type Msg struct {
	Type    string        `json:"type"`
	RunID   string        `json:"run_id,omitempty"`
	Content Energy.Report `json:"content"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams step reports to websocket clients. Slow clients drop messages
// rather than stall the solver.
type Hub struct {
	RunID      string
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	nClients   atomic.Int64
	log        *logrus.Entry
}

func NewHub(runID string, log *logrus.Entry) *Hub {
	return &Hub{
		RunID: runID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]bool)
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c.send)
			}
			h.nClients.Store(0)
			return
		case c := <-h.register:
			clients[c] = true
			h.nClients.Store(int64(len(clients)))
		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
			}
			h.nClients.Store(int64(len(clients)))
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.log.Debug("monitor client too slow, dropping message")
				}
			}
		}
	}
}

func (h *Hub) Clients() int { return int(h.nClients.Load()) }

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the client going away.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).Debug("monitor write")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Publish queues a report for every client. It never blocks.
func (h *Hub) Publish(r Energy.Report) error {
	msgType := "step"
	if r.Stop {
		msgType = "stop"
	}
	data, err := json.Marshal(Msg{Type: msgType, RunID: h.RunID, Content: r})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Debug("monitor queue full, dropping report")
	}
	return nil
}
