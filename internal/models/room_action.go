// internal/models/room_action.go
package models

// RoomAction is a single recorded room event, shipped to the historian.
type RoomAction struct {
	RoomID        string                 `json:"room_id"` // unique per room lifetime; codes are reused
	RoomCode      string                 `json:"room_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       string                 `json:"actor_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}
