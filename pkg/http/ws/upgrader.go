package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader handles WebSocket upgrades shared by all WS endpoints.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend domain is fixed
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}
