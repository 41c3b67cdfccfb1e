package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// UnreadCountResponse is the data of GET /api/messages/unread-count
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// SendMessage handles POST /api/messages - stores a direct message
func SendMessage(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var input services.SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	msg, err := messageService().Send(c.Request.Context(), user, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, msg)
}

// GetUnreadCount handles GET /api/messages/unread-count
func GetUnreadCount(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	count, err := messageService().UnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, UnreadCountResponse{Count: count})
}

// GetConversations handles GET /api/messages/conversations
func GetConversations(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	conversations, err := messageService().Conversations(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, conversations, nil)
}

// GetConversation handles GET /api/messages/conversation/:userId. Opening a
// conversation marks the counterpart's messages as read.
func GetConversation(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	counterpartID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	msgs, err := messageService().OpenConversation(c.Request.Context(), userID, counterpartID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, msgs, nil)
}
