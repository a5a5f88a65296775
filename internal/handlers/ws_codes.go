// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room socket.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected without the tombola subprotocol.
	SlowConsumerError   websocket.StatusCode = 3001 // Outbound queue stayed full; the client stopped reading.
	ServerShutdownError websocket.StatusCode = 3002 // Process is shutting down.
)
