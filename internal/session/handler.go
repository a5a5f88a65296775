// internal/session/handler.go
package session

import (
	"math"
	"strings"
	"sync"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/jason-s-yu/tombola/internal/room"
	"github.com/sirupsen/logrus"
)

// Handler turns typed requests from a connection into room operations.
// A connection belongs to at most one room at a time.
type Handler struct {
	store    *room.Store
	notifier room.Notifier
	log      logrus.FieldLogger

	mu      sync.Mutex
	members map[string]string // connID -> room code
}

// NewHandler returns a Handler over store. notifier receives the private
// error notices for rejected requests.
func NewHandler(store *room.Store, notifier room.Notifier, logger logrus.FieldLogger) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		log:      logger,
		members:  make(map[string]string),
	}
}

// CreateRoom opens a new room hosted by connID, leaving any current room first.
func (h *Handler) CreateRoom(connID string, req CreateRoomRequest) RoomResponse {
	h.leaveCurrent(connID)

	rm := h.store.Create(models.Player{ID: connID, Name: req.DisplayName}, req.SinglePlayer)
	h.setMembership(connID, rm.Code)
	st := rm.State()
	return RoomResponse{Ack: Ack{OK: true}, State: &st}
}

// JoinRoom adds connID to an existing room.
func (h *Handler) JoinRoom(connID string, req JoinRoomRequest) RoomResponse {
	code := normalizeCode(req.RoomCode)
	if current, ok := h.membership(connID); ok && current == code {
		if rm, found := h.store.Lookup(code); found {
			st := rm.State()
			return RoomResponse{Ack: Ack{OK: true}, State: &st}
		}
	}

	rm, ok := h.store.Lookup(code)
	if !ok {
		return RoomResponse{Ack: h.fail(connID, room.ErrRoomNotFound)}
	}

	// The current room is only left once the new one has accepted the
	// player, so a rejected join leaves the connection where it was.
	st, err := rm.Join(models.Player{ID: connID, Name: req.DisplayName})
	if err != nil {
		return RoomResponse{Ack: h.fail(connID, err)}
	}
	h.leaveCurrent(connID)
	h.setMembership(connID, code)
	return RoomResponse{Ack: Ack{OK: true}, State: &st}
}

// StartGame starts the room's draws. Starting twice acknowledges without effect.
func (h *Handler) StartGame(connID string, req RoomRequest) Ack {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return h.fail(connID, room.ErrRoomNotFound)
	}
	if _, err := rm.Start(connID); err != nil {
		return h.fail(connID, err)
	}
	return Ack{OK: true}
}

func (h *Handler) SetDrawInterval(connID string, req SetDrawIntervalRequest) DrawIntervalResponse {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return DrawIntervalResponse{Ack: h.fail(connID, room.ErrRoomNotFound)}
	}
	applied, err := rm.SetDrawInterval(connID, roundInterval(req.Ms))
	if err != nil {
		return DrawIntervalResponse{Ack: h.fail(connID, err)}
	}
	return DrawIntervalResponse{Ack: Ack{OK: true}, DrawIntervalMs: applied}
}

func (h *Handler) PauseAutoDraw(connID string, req RoomRequest) Ack {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return h.fail(connID, room.ErrRoomNotFound)
	}
	if err := rm.Pause(connID); err != nil {
		return h.fail(connID, err)
	}
	return Ack{OK: true}
}

func (h *Handler) ResumeAutoDraw(connID string, req RoomRequest) Ack {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return h.fail(connID, room.ErrRoomNotFound)
	}
	if err := rm.Resume(connID); err != nil {
		return h.fail(connID, err)
	}
	return Ack{OK: true}
}

// DeclareWin submits a pattern claim on behalf of connID.
func (h *Handler) DeclareWin(connID string, req DeclareWinRequest) WinResponse {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return WinResponse{Ack: h.fail(connID, room.ErrRoomNotFound)}
	}
	win, err := rm.DeclareWin(connID, req.Pattern)
	if err != nil {
		return WinResponse{Ack: h.fail(connID, err)}
	}
	return WinResponse{Ack: Ack{OK: true}, WinResult: &win}
}

// CheckCard validates the marks on a client's card against the room's draws.
func (h *Handler) CheckCard(connID string, req CheckCardRequest) CheckCardResponse {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return CheckCardResponse{Ack: h.fail(connID, room.ErrRoomNotFound)}
	}
	res := rm.CheckCard(req.Card)
	return CheckCardResponse{Ack: Ack{OK: true}, MarkValidation: &res}
}

// RoomState returns a fresh snapshot for clients re-syncing after a gap.
func (h *Handler) RoomState(connID string, req RoomRequest) RoomResponse {
	rm, ok := h.store.Lookup(normalizeCode(req.RoomCode))
	if !ok {
		return RoomResponse{Ack: h.fail(connID, room.ErrRoomNotFound)}
	}
	st := rm.State()
	return RoomResponse{Ack: Ack{OK: true}, State: &st}
}

// Disconnect removes connID from its room, if any.
func (h *Handler) Disconnect(connID string) {
	h.leaveCurrent(connID)
}

// RoomOf returns the code of the room connID belongs to.
func (h *Handler) RoomOf(connID string) (string, bool) {
	return h.membership(connID)
}

func (h *Handler) leaveCurrent(connID string) {
	h.mu.Lock()
	code, ok := h.members[connID]
	delete(h.members, connID)
	h.mu.Unlock()
	if !ok {
		return
	}

	if rm, found := h.store.Lookup(code); found {
		rm.Leave(connID)
	}
	h.log.WithFields(logrus.Fields{"conn": connID, "room": code}).Debug("left room")
}

func (h *Handler) membership(connID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	code, ok := h.members[connID]
	return code, ok
}

func (h *Handler) setMembership(connID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[connID] = code
}

// fail sends err privately to connID and builds the failed ack.
func (h *Handler) fail(connID string, err error) Ack {
	h.notifier.Notify(connID, room.ErrorEvent(err))
	h.log.WithField("conn", connID).Debugf("request rejected: %v", err)
	return Ack{OK: false, Error: err.Error(), Kind: room.KindOf(err)}
}

// roundInterval rounds to whole milliseconds, bounding the value first so
// the int conversion cannot overflow. Room.SetDrawInterval still clamps.
func roundInterval(ms float64) int {
	ms = math.Max(room.MinDrawIntervalMs, math.Min(room.MaxDrawIntervalMs, math.Round(ms)))
	return int(ms)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
