package services

import (
	"testing"
	"time"

	"github.com/saeed-rahimi/ss/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgAt(id, from, to string, minute int, read bool) models.Message {
	return models.Message{
		ID:         id,
		SenderID:   from,
		ReceiverID: to,
		Content:    id,
		Read:       read,
		CreatedAt:  time.Date(2026, 1, 1, 10, minute, 0, 0, time.UTC),
	}
}

func TestBuildConversations(t *testing.T) {
	msgs := []models.Message{
		msgAt("m1", "bob", "me", 1, true),
		msgAt("m2", "me", "bob", 2, false),
		msgAt("m3", "carol", "me", 3, false),
		msgAt("m4", "carol", "me", 4, false),
		msgAt("m5", "bob", "me", 5, false),
		msgAt("m6", "dave", "me", 0, false),
		msgAt("m7", "bob", "carol", 9, false), // not ours
	}

	groups := BuildConversations("me", msgs)

	require.Len(t, groups, 3)
	assert.Equal(t, "bob", groups[0].ContactID)
	assert.Equal(t, "m5", groups[0].LastMessage.ID)
	assert.Equal(t, 1, groups[0].UnreadCount, "read messages and own messages are not unread")

	assert.Equal(t, "carol", groups[1].ContactID)
	assert.Equal(t, "m4", groups[1].LastMessage.ID)
	assert.Equal(t, 2, groups[1].UnreadCount)

	assert.Equal(t, "dave", groups[2].ContactID)
	assert.Equal(t, 1, groups[2].UnreadCount)
}

func TestBuildConversationsIsIdempotent(t *testing.T) {
	msgs := []models.Message{
		msgAt("a", "x", "me", 3, false),
		msgAt("b", "me", "y", 1, false),
		msgAt("c", "y", "me", 2, false),
		msgAt("d", "x", "me", 1, true),
	}

	first := BuildConversations("me", msgs)
	second := BuildConversations("me", msgs)

	assert.Equal(t, first, second)
}

func TestBuildConversationsOrderIndependent(t *testing.T) {
	msgs := []models.Message{
		msgAt("a", "x", "me", 3, false),
		msgAt("b", "me", "y", 1, false),
		msgAt("c", "y", "me", 2, false),
	}
	reversed := []models.Message{msgs[2], msgs[1], msgs[0]}

	a := BuildConversations("me", msgs)
	b := BuildConversations("me", reversed)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ContactID, b[i].ContactID)
		assert.Equal(t, a[i].LastMessage.ID, b[i].LastMessage.ID)
		assert.Equal(t, a[i].UnreadCount, b[i].UnreadCount)
	}
}

func TestBuildConversationsTies(t *testing.T) {
	msgs := []models.Message{
		msgAt("b", "zed", "me", 1, false),
		msgAt("a", "amy", "me", 1, false),
		msgAt("c", "amy", "me", 1, false),
	}

	groups := BuildConversations("me", msgs)

	require.Len(t, groups, 2)
	assert.Equal(t, "amy", groups[0].ContactID, "equal timestamps order by contact id")
	assert.Equal(t, "c", groups[0].LastMessage.ID, "equal timestamps pick the higher message id")
}

func TestBuildConversationsEmpty(t *testing.T) {
	assert.Empty(t, BuildConversations("me", nil))
}

func TestBuildConversationsContact(t *testing.T) {
	bob := &models.User{ID: "bob", Name: "Bob"}
	msgs := []models.Message{
		{ID: "1", SenderID: "me", ReceiverID: "bob", Receiver: bob, CreatedAt: time.Now()},
	}

	groups := BuildConversations("me", msgs)

	require.Len(t, groups, 1)
	assert.Same(t, bob, groups[0].Contact)
}
