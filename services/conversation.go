package services

import (
	"sort"

	"github.com/saeed-rahimi/ss/models"
)

// Conversation summarizes the messages exchanged with one counterpart
type Conversation struct {
	ContactID   string          `json:"contactId"`
	Contact     *models.User    `json:"contact,omitempty"`
	LastMessage *models.Message `json:"lastMessage"`
	UnreadCount int             `json:"unreadCount"`
}

// BuildConversations groups msgs by counterpart of selfID in a single pass.
// Messages not involving selfID are ignored. Groups are ordered by their last
// message, newest first, with the contact id breaking ties.
func BuildConversations(selfID string, msgs []models.Message) []Conversation {
	index := make(map[string]int)
	var groups []Conversation

	for i := range msgs {
		msg := &msgs[i]
		if msg.SenderID != selfID && msg.ReceiverID != selfID {
			continue
		}

		contactID := msg.Counterpart(selfID)
		pos, ok := index[contactID]
		if !ok {
			pos = len(groups)
			index[contactID] = pos
			groups = append(groups, Conversation{ContactID: contactID})
		}

		group := &groups[pos]
		if group.LastMessage == nil || newerMessage(msg, group.LastMessage) {
			group.LastMessage = msg
		}
		if group.Contact == nil {
			group.Contact = contactOf(msg, selfID)
		}
		if msg.ReceiverID == selfID && !msg.Read {
			group.UnreadCount++
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].LastMessage, groups[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return groups[i].ContactID < groups[j].ContactID
	})

	return groups
}

// newerMessage orders by CreatedAt, then ID so equal timestamps are stable
func newerMessage(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func contactOf(msg *models.Message, selfID string) *models.User {
	if msg.SenderID == selfID {
		return msg.Receiver
	}
	return msg.Sender
}
