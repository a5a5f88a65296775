// internal/session/dispatch.go
package session

import (
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/tombola/internal/room"
)

// ErrUnknownType is returned by Dispatch for an unrecognised request type.
var ErrUnknownType = &room.Error{Kind: room.KindPrecondition, Msg: "unknown request type"}

// Dispatch decodes payload according to typ and runs the matching operation.
// The returned value is the typed response to send back to the requester.
func (h *Handler) Dispatch(connID, typ string, payload json.RawMessage) interface{} {
	switch typ {
	case TypeCreateRoom:
		var req CreateRoomRequest
		if err := decode(payload, &req); err != nil {
			return RoomResponse{Ack: h.fail(connID, err)}
		}
		return h.CreateRoom(connID, req)
	case TypeJoinRoom:
		var req JoinRoomRequest
		if err := decode(payload, &req); err != nil {
			return RoomResponse{Ack: h.fail(connID, err)}
		}
		return h.JoinRoom(connID, req)
	case TypeStartGame, TypePauseAutoDraw, TypeResumeAutoDraw, TypeRoomState:
		var req RoomRequest
		if err := decode(payload, &req); err != nil {
			return h.fail(connID, err)
		}
		switch typ {
		case TypeStartGame:
			return h.StartGame(connID, req)
		case TypePauseAutoDraw:
			return h.PauseAutoDraw(connID, req)
		case TypeResumeAutoDraw:
			return h.ResumeAutoDraw(connID, req)
		default:
			return h.RoomState(connID, req)
		}
	case TypeSetDrawInterval:
		var req SetDrawIntervalRequest
		if err := decode(payload, &req); err != nil {
			return DrawIntervalResponse{Ack: h.fail(connID, err)}
		}
		return h.SetDrawInterval(connID, req)
	case TypeDeclareWin:
		var req DeclareWinRequest
		if err := decode(payload, &req); err != nil {
			return WinResponse{Ack: h.fail(connID, err)}
		}
		return h.DeclareWin(connID, req)
	case TypeCheckCard:
		var req CheckCardRequest
		if err := decode(payload, &req); err != nil {
			return CheckCardResponse{Ack: h.fail(connID, err)}
		}
		return h.CheckCard(connID, req)
	default:
		return h.fail(connID, fmt.Errorf("%w: %q", ErrUnknownType, typ))
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &room.Error{Kind: room.KindPrecondition, Msg: "malformed payload: " + err.Error()}
	}
	return nil
}
