package models

// Player is one member of a room. ID is the opaque connection ID assigned by
// the transport; Name is unique within the room.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
