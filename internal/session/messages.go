// internal/session/messages.go
package session

import (
	"github.com/jason-s-yu/tombola/internal/game"
	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/jason-s-yu/tombola/internal/room"
)

// Request types accepted over the wire.
const (
	TypeCreateRoom      = "createRoom"
	TypeJoinRoom        = "joinRoom"
	TypeStartGame       = "startGame"
	TypeSetDrawInterval = "setDrawInterval"
	TypePauseAutoDraw   = "pauseAutoDraw"
	TypeResumeAutoDraw  = "resumeAutoDraw"
	TypeDeclareWin      = "declareWin"
	TypeCheckCard       = "checkCard"
	TypeRoomState       = "roomState"
)

type CreateRoomRequest struct {
	DisplayName  string `json:"displayName"`
	SinglePlayer bool   `json:"singlePlayer,omitempty"`
}

type JoinRoomRequest struct {
	RoomCode    string `json:"roomCode"`
	DisplayName string `json:"displayName"`
}

// RoomRequest addresses a room with no further arguments (startGame,
// pauseAutoDraw, resumeAutoDraw, roomState).
type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

// SetDrawIntervalRequest carries the interval in milliseconds. Fractions are
// rounded to the nearest millisecond.
type SetDrawIntervalRequest struct {
	RoomCode string  `json:"roomCode"`
	Ms       float64 `json:"ms"`
}

// DeclareWinRequest names the claimed pattern. DisplayName is accepted from
// older clients but the winner is always named after the stored player.
type DeclareWinRequest struct {
	RoomCode    string         `json:"roomCode"`
	Pattern     models.Pattern `json:"pattern"`
	DisplayName string         `json:"displayName,omitempty"`
}

type CheckCardRequest struct {
	RoomCode string      `json:"roomCode"`
	Card     models.Card `json:"card"`
}

// Ack is carried by every response. Error and Kind are set only when OK is false.
type Ack struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	Kind  room.ErrorKind `json:"kind,omitempty"`
}

// RoomResponse answers createRoom, joinRoom and roomState with a flat snapshot.
type RoomResponse struct {
	Ack
	*room.State
}

type DrawIntervalResponse struct {
	Ack
	DrawIntervalMs int `json:"drawIntervalMs,omitempty"`
}

type WinResponse struct {
	Ack
	*room.WinResult
}

type CheckCardResponse struct {
	Ack
	*game.MarkValidation
}
