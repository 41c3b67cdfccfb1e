// Package realtime pushes job and chat events to connected websocket clients.
//
// Delivery is best-effort and at-most-once: nothing is persisted or replayed,
// so clients refetch state from the REST API whenever they (re)connect.
package realtime

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Client-originated events
const (
	EventAuthenticate        = "authenticate"
	EventJoinRoom            = "join-room"
	EventPrivateMessage      = "private-message"
	EventNewJob              = "new-job"
	EventJobApplication      = "job-application"
	EventApplicationAccepted = "application-accepted"
)

// Server-originated events besides the job lifecycle ones in services
const (
	EventAuthenticated = "authenticated"
	EventError         = "error"
)

// Frame is the JSON envelope of every websocket message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthenticatedPayload acknowledges a successful authenticate
type AuthenticatedPayload struct {
	Success bool `json:"success"`
}

// ErrorPayload is sent to the connection whose event failed
type ErrorPayload struct {
	Message string `json:"message"`
}

// PrivateMessageInput is the data of a client private-message
type PrivateMessageInput struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	RoomID    string `json:"roomId,omitempty"`
}

// PrivateMessagePayload is relayed to the pair room
type PrivateMessagePayload struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
	RoomID     string    `json:"roomId"`
}

// encodeFrame marshals event and payload into a wire frame
func encodeFrame(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// UserRoom is the room every connection of a user joins on authentication
func UserRoom(userID string) string {
	return "user-" + userID
}

// PairRoom is the chat room shared by two users, the same from both sides
func PairRoom(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

// canJoin reports whether userID may join room: its own user room or a room
// naming userID at either end
func canJoin(userID, room string) bool {
	if userID == "" || room == "" {
		return false
	}
	if room == UserRoom(userID) {
		return true
	}
	if strings.HasPrefix(room, "user-") {
		return false
	}
	return strings.HasPrefix(room, userID+"-") || strings.HasSuffix(room, "-"+userID)
}

// decodeStringOrField accepts either a bare JSON string or an object carrying
// the value under field
func decodeStringOrField(data json.RawMessage, field string) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	if v, ok := obj[field].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
