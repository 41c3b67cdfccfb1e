package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairRoom(t *testing.T) {
	assert.Equal(t, PairRoom("a", "b"), PairRoom("b", "a"))
	assert.Equal(t, "a-b", PairRoom("b", "a"))
}

func TestCanJoin(t *testing.T) {
	tests := []struct {
		name string
		user string
		room string
		want bool
	}{
		{"own user room", "u1", "user-u1", true},
		{"someone else's user room", "u1", "user-u2", false},
		{"pair room with self first", "u1", PairRoom("u1", "u2"), true},
		{"pair room with self last", "u2", PairRoom("u1", "u2"), true},
		{"room without self", "u3", PairRoom("u1", "u2"), false},
		{"prefix only without separator", "u1", "u10-u2", false},
		{"empty room", "u1", "", false},
		{"unauthenticated", "", "a-b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canJoin(tt.user, tt.room))
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	t.Run("struct payload", func(t *testing.T) {
		raw, err := encodeFrame(EventError, ErrorPayload{Message: "nope"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"error","data":{"message":"nope"}}`, string(raw))
	})

	t.Run("raw payload passes through", func(t *testing.T) {
		raw, err := encodeFrame(EventNewJob, json.RawMessage(`{"id":"j1"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"new-job","data":{"id":"j1"}}`, string(raw))
	})

	t.Run("nil payload omits data", func(t *testing.T) {
		raw, err := encodeFrame(EventAuthenticated, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"authenticated"}`, string(raw))
	})
}

func TestDecodeStringOrField(t *testing.T) {
	assert.Equal(t, "tok", decodeStringOrField(json.RawMessage(`" tok "`), "token"))
	assert.Equal(t, "tok", decodeStringOrField(json.RawMessage(`{"token":"tok"}`), "token"))
	assert.Empty(t, decodeStringOrField(json.RawMessage(`{"other":"tok"}`), "token"))
	assert.Empty(t, decodeStringOrField(json.RawMessage(`42`), "token"))
	assert.Empty(t, decodeStringOrField(nil, "token"))
}
