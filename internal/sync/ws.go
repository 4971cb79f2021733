package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Listeners only receive; anything larger than this from them is a protocol
// error and ends the session.
const maxInbound = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// catalog events are public
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSHandler upgrades the request and streams catalog events until the
// client hangs up. Every write to the connection goes through the hub.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("ws upgrade", zap.Error(err))
			return
		}
		if err := hub.AddWS(ws); err != nil {
			hub.log.Debug("ws greet", zap.Error(err))
			_ = ws.Close()
			return
		}
		defer hub.RemoveWS(ws)

		ws.SetReadLimit(maxInbound)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}
}
