package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	authTimeout    = 5 * time.Second
)

// Authenticator turns a bearer token into an identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Identity, error)
}

// Client is one websocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	auth   Authenticator
	logger *slog.Logger

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	// rooms is guarded by hub.mu
	rooms map[string]struct{}

	idMu     sync.RWMutex
	identity *services.Identity
}

func newClient(hub *Hub, conn *websocket.Conn, auth Authenticator) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		auth:   auth,
		logger: hub.logger,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Identity is who the connection authenticated as, nil before authenticate
func (c *Client) Identity() *services.Identity {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.identity
}

// trySend queues frame without blocking. It reports false when the buffer is full.
func (c *Client) trySend(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply sends an event to this connection only
func (c *Client) reply(event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		c.logger.Error("failed to encode reply", slog.String("event", event), slog.Any("error", err))
		return
	}
	c.trySend(frame)
}

func (c *Client) replyError(message string) {
	c.reply(EventError, ErrorPayload{Message: message})
}

// readPump reads frames until the connection fails, then unregisters the client
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", slog.Any("error", err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			c.replyError("Malformed message")
			continue
		}
		c.handle(frame)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one client frame. Failures are reported to this
// connection only.
func (c *Client) handle(frame Frame) {
	if frame.Event == EventAuthenticate {
		c.authenticate(decodeStringOrField(frame.Data, "token"))
		return
	}

	identity := c.Identity()
	if identity == nil {
		c.replyError("Not authenticated")
		return
	}

	var err error
	switch frame.Event {
	case EventJoinRoom:
		err = c.joinRoom(identity, decodeStringOrField(frame.Data, "roomId"))
	case EventPrivateMessage:
		err = c.privateMessage(identity, frame.Data)
	case EventNewJob:
		err = c.relayNewJob(identity, frame.Data)
	case EventJobApplication:
		err = c.relayToUser(identity, models.RoleSpecialist, frame.Data, "employerId", services.EventNewJobApplication, "appliedAt")
	case EventApplicationAccepted:
		err = c.relayToUser(identity, models.RoleEmployer, frame.Data, "specialistId", services.EventJobApplicationAccepted, "acceptedAt")
	default:
		err = errors.New("Unknown event " + frame.Event)
	}

	if err != nil {
		c.replyError(err.Error())
	}
}

func (c *Client) authenticate(token string) {
	if token == "" || c.auth == nil {
		c.replyError("Authentication failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	identity, err := c.auth.Authenticate(ctx, token)
	if err != nil {
		c.replyError("Authentication failed")
		return
	}

	c.idMu.Lock()
	c.identity = identity
	c.idMu.Unlock()

	c.hub.join(c, UserRoom(identity.UserID))
	c.reply(EventAuthenticated, AuthenticatedPayload{Success: true})
}

func (c *Client) joinRoom(identity *services.Identity, room string) error {
	if !canJoin(identity.UserID, room) {
		return errors.New("You cannot join this room")
	}
	c.hub.join(c, room)
	return nil
}

func (c *Client) privateMessage(identity *services.Identity, data json.RawMessage) error {
	var input PrivateMessageInput
	if err := json.Unmarshal(data, &input); err != nil {
		return errors.New("Malformed message")
	}
	input.Recipient = strings.TrimSpace(input.Recipient)
	input.Content = strings.TrimSpace(input.Content)
	if input.Recipient == "" || input.Content == "" {
		return errors.New("recipient and content are required")
	}

	room := PairRoom(identity.UserID, input.Recipient)
	if input.RoomID != "" {
		if !canJoin(identity.UserID, input.RoomID) {
			return errors.New("You cannot post to this room")
		}
		room = input.RoomID
	}

	// the sender converges on the room even without an explicit join-room
	c.hub.join(c, room)
	c.hub.EmitToRoom(room, EventPrivateMessage, PrivateMessagePayload{
		ID:         uuid.NewString(),
		Message:    input.Content,
		Sender:     identity.UserID,
		SenderName: identity.Name,
		Timestamp:  time.Now().UTC(),
		RoomID:     room,
	})
	return nil
}

func (c *Client) relayNewJob(identity *services.Identity, data json.RawMessage) error {
	if identity.Role != models.RoleEmployer {
		return errors.New("Only employers can post jobs")
	}
	payload, err := stampSender(data, map[string]any{
		"employerId":   identity.UserID,
		"employerName": identity.Name,
	}, "createdAt")
	if err != nil {
		return err
	}
	c.hub.Broadcast(services.EventNewJobPosted, payload)
	return nil
}

// relayToUser forwards data to the user named by data[targetField] as event,
// provided the sender has role. The sender's id and name are stamped into the
// payload under the role's prefix, and timeField is filled when missing.
func (c *Client) relayToUser(identity *services.Identity, role models.Role, data json.RawMessage, targetField, event, timeField string) error {
	if identity.Role != role {
		return errors.New("Only " + string(role) + "s can send this event")
	}
	target := decodeStringOrField(data, targetField)
	if target == "" || isBareString(data) {
		return errors.New(targetField + " is required")
	}
	payload, err := stampSender(data, map[string]any{
		string(role) + "Id":   identity.UserID,
		string(role) + "Name": identity.Name,
	}, timeField)
	if err != nil {
		return err
	}
	c.hub.EmitToUser(target, event, payload)
	return nil
}

// stampSender decodes an object payload, overwrites the sender fields with
// the authenticated identity and sets timeField to now when it is absent
func stampSender(data json.RawMessage, sender map[string]any, timeField string) (json.RawMessage, error) {
	obj := map[string]any{}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, errors.New("Malformed message")
		}
	}
	for k, v := range sender {
		obj[k] = v
	}
	if _, ok := obj[timeField]; !ok && timeField != "" {
		obj[timeField] = time.Now().UTC()
	}
	return json.Marshal(obj)
}

func isBareString(data json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, `"`)
}
