package realtime

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/utils"
)

// Handler upgrades HTTP requests to websocket clients of a hub
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewHandler creates a handler. Browser origins outside allowedOrigins are
// refused; "*" allows any origin.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWS handles GET /ws. A ?token= query parameter authenticates the
// connection right away; otherwise the client sends an authenticate event.
func (h *Handler) ServeWS(c *gin.Context) {
	if h == nil || h.hub == nil {
		utils.RespondError(c, apperrors.Unavailable("Realtime service is not available"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered with an HTTP error
		h.hub.logger.Debug("websocket upgrade failed", "error", err)
		c.Abort()
		return
	}

	client := newClient(h.hub, conn, h.auth)
	h.hub.register(client)

	if token := c.Query("token"); token != "" {
		client.authenticate(token)
	}

	go client.writePump()
	go client.readPump()
}
