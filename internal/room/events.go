// internal/room/events.go
package room

import "github.com/jason-s-yu/tombola/internal/models"

// EventType names every message a room pushes to its members.
type EventType string

const (
	EventPlayersUpdate       EventType = "playersUpdate"
	EventNumberDrawn         EventType = "numberDrawn"
	EventDrawIntervalChanged EventType = "drawIntervalChanged"
	EventDrawPaused          EventType = "autoDrawPaused"
	EventDrawResumed         EventType = "autoDrawResumed"
	EventGameStarted         EventType = "gameStarted"
	EventGameEnded           EventType = "gameEnded"
	EventHostChanged         EventType = "hostChanged"
	EventWinDeclared         EventType = "winDeclared"
	EventCardDealt           EventType = "cardDealt" // private
	EventError               EventType = "error"     // private
)

// Event is the payload pushed to room members. Only the fields relevant to
// Type are set.
type Event struct {
	Type           EventType       `json:"type"`
	RoomCode       string          `json:"roomCode,omitempty"`
	Players        []models.Player `json:"players,omitempty"`
	Number         int             `json:"number,omitempty"`
	DrawIntervalMs int             `json:"drawIntervalMs,omitempty"`
	HostID         string          `json:"hostId,omitempty"`
	Win            *WinResult      `json:"win,omitempty"`
	Card           *models.Card    `json:"card,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// Notifier delivers events to a single connection. Implementations must not
// block: rooms call Notify while holding their lock.
type Notifier interface {
	Notify(connID string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(connID string, ev Event)

func (f NotifierFunc) Notify(connID string, ev Event) { f(connID, ev) }

// ErrorEvent builds the private error notice for a rejected request.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Message: err.Error()}
}

// WinResult is the accepted declaration plus the updated win state.
type WinResult struct {
	Pattern          models.Pattern            `json:"action"`
	Player           string                    `json:"player"`
	WinnerID         string                    `json:"winnerId"`
	CompletedActions []models.Pattern          `json:"completedActions"`
	CompletedWinners map[models.Pattern]string `json:"completedWinners"`
	NextAction       *models.Pattern           `json:"nextAction"`
}

// State is the full room snapshot returned on create/join.
type State struct {
	RoomCode         string                    `json:"roomCode"`
	HostID           string                    `json:"hostId"`
	Players          []models.Player           `json:"players"`
	Drawn            []int                     `json:"drawn"`
	GameStarted      bool                      `json:"gameStarted"`
	DrawIntervalMs   int                       `json:"drawIntervalMs"`
	Paused           bool                      `json:"paused"`
	CompletedActions []models.Pattern          `json:"completedActions"`
	CompletedWinners map[models.Pattern]string `json:"completedWinners"`
	NextAction       *models.Pattern           `json:"nextAction"`
	AutoStart        bool                      `json:"autoStart"`
	GameEnded        bool                      `json:"gameEnded"`
}
