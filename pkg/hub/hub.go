// Package hub owns the set of live observer websocket connections and
// fans game state and fired events out to them. Per-connection I/O
// failures remove only that connection; a stalled peer never degrades
// delivery to the others.
package hub

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/primaryrutabaga/cs2-link/pkg/metrics"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

const writeWait = 5 * time.Second

// Conn wraps one observer connection. Writes are serialized by the
// connection's own mutex; closing is idempotent and tears down every
// loop attached to the connection via the done channel.
type Conn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, done: make(chan struct{})}
}

func (c *Conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

func (c *Conn) writeText(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// Hub is the broadcast coordinator. The connection set only holds
// event observers; periodic state pushes run one loop per game-state
// connection and never touch the set.
type Hub struct {
	mu       sync.Mutex
	conns    map[*Conn]struct{}
	interval time.Duration
	baseline func() schemas.Snapshot
}

// New creates a hub pushing baseline() to each game-state observer
// every interval.
func New(interval time.Duration, baseline func() schemas.Snapshot) *Hub {
	return &Hub{
		conns:    make(map[*Conn]struct{}),
		interval: interval,
		baseline: baseline,
	}
}

// Subscribe adds ws to the event-observer set and returns its handle.
func (h *Hub) Subscribe(ws *websocket.Conn) *Conn {
	c := newConn(ws)
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.ObserverConnections.Set(float64(n))
	log.Printf("hub: observer connected, %d live", n)
	return c
}

// Remove drops c from the set and closes it. Both the fan-out path and
// the heartbeat loop can race to remove the same handle; removing an
// already-removed connection is a no-op.
func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	c.close()
	if present {
		metrics.ObserverConnections.Set(float64(n))
		log.Printf("hub: observer disconnected, %d live", n)
	}
}

// Len reports the number of live event observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// NotifyEvent pushes a fired rule to every event observer. Delivery is
// best-effort: a failed write removes that connection and the fan-out
// continues with the rest. The set is copied under the lock first so
// concurrent subscribes and removals never conflict with iteration.
func (h *Hub) NotifyEvent(ruleID string, old, next schemas.Snapshot) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	msg := schemas.EventMessage{
		Type:      schemas.MessageTypeEvent,
		EventID:   ruleID,
		Data:      schemas.Transition{OldState: old, NewState: next},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			metrics.FanoutDropsTotal.Inc()
			log.Printf("hub: event write failed, dropping observer: %v", err)
			h.Remove(c)
		}
	}
}

// ServeEvents runs one event-observer connection until it dies: the
// connection joins the fan-out set and this goroutine becomes its
// heartbeat read loop, answering ping with pong. Returning removes the
// connection exactly once.
func (h *Hub) ServeEvents(ws *websocket.Conn) {
	c := h.Subscribe(ws)
	defer h.Remove(c)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if string(data) == "ping" {
			if err := c.writeText("pong"); err != nil {
				return
			}
		}
	}
}

// ServeState runs one game-state connection until it dies: a reader
// goroutine drains the peer (and notices closure), while this goroutine
// pushes the current baseline on every tick. Connections here are
// independent of the event set; a slow state observer only stalls its
// own ticker loop.
func (h *Hub) ServeState(ws *websocket.Conn) {
	c := newConn(ws)
	defer c.close()

	go func() {
		defer c.close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			msg := schemas.StateMessage{
				Type:      schemas.MessageTypeState,
				Data:      h.baseline(),
				Timestamp: time.Now().Format(time.RFC3339),
			}
			if err := c.writeJSON(msg); err != nil {
				return
			}
		}
	}
}
