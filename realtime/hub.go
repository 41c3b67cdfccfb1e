package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	deliveryBuffer = 1024
	bridgeTimeout  = 2 * time.Second
)

// Bridge relays frames to hubs running in other server instances
type Bridge interface {
	Publish(ctx context.Context, room string, frame []byte) error
}

// delivery is one frame queued for fan-out. An empty room means every client.
type delivery struct {
	room     string
	frame    []byte
	fromPeer bool
}

// Hub tracks connected clients and the rooms they joined and fans frames out
// to them. Registration and room membership are synchronous; fan-out happens
// on the Run goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool

	deliveries chan delivery
	bridge     Bridge
	logger     *slog.Logger

	warnedBridge atomic.Bool
}

// NewHub creates a hub; call Run to start delivering
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		deliveries: make(chan delivery, deliveryBuffer),
		logger:     logger.With(slog.String("component", "realtime")),
	}
}

// UseBridge sets the bridge local events are also published to. Call before Run.
func (h *Hub) UseBridge(b Bridge) {
	h.bridge = b
}

// Run delivers queued frames until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case d := <-h.deliveries:
			h.deliver(d)
			if !d.fromPeer && h.bridge != nil {
				h.publishToBridge(ctx, d)
			}
		}
	}
}

// Broadcast queues event for every connected client
func (h *Hub) Broadcast(event string, payload any) {
	h.emit("", event, payload)
}

// EmitToUser queues event for every connection of userID
func (h *Hub) EmitToUser(userID, event string, payload any) {
	h.emit(UserRoom(userID), event, payload)
}

// EmitToRoom queues event for the members of room
func (h *Hub) EmitToRoom(room, event string, payload any) {
	h.emit(room, event, payload)
}

// DeliverFromPeer queues a frame received from another instance. It is not
// published back to the bridge.
func (h *Hub) DeliverFromPeer(room string, frame []byte) {
	h.enqueue(delivery{room: room, frame: frame, fromPeer: true})
}

// ClientCount is the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize is the number of clients in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) emit(room, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("event", event), slog.Any("error", err))
		return
	}
	h.enqueue(delivery{room: room, frame: frame})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliveries <- d:
	default:
		h.logger.Warn("event dropped", slog.String("room", d.room), slog.String("reason", "buffer_full"))
	}
}

// register adds c; after shutdown the client is closed right away
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.closeSend()
		return
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("client connected", slog.Int("total_clients", len(h.clients)))
}

// join adds a registered client to room
func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// unregister removes c from the hub and closes its send channel once
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.closeSend()
	h.logger.Debug("client disconnected", slog.Int("total_clients", len(h.clients)))
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	var targets []*Client
	if d.room == "" {
		targets = make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		targets = make([]*Client, 0, len(h.rooms[d.room]))
		for c := range h.rooms[d.room] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, c := range targets {
		if !c.trySend(d.frame) {
			slow = append(slow, c)
		}
	}

	// Slow consumers are dropped and have to reconnect and refetch
	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.removeLocked(c)
		}
		h.mu.Unlock()
		h.logger.Warn("dropped slow clients", slog.Int("count", len(slow)))
	}
}

func (h *Hub) publishToBridge(ctx context.Context, d delivery) {
	ctx, cancel := context.WithTimeout(ctx, bridgeTimeout)
	defer cancel()

	if err := h.bridge.Publish(ctx, d.room, d.frame); err != nil {
		if h.warnedBridge.CompareAndSwap(false, true) {
			h.logger.Warn("bridge unavailable, delivering locally only", slog.Any("error", err))
		}
		return
	}
	h.warnedBridge.Store(false)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
