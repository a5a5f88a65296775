// internal/room/errors.go
package room

import (
	"errors"
	"fmt"
)

// ErrorKind classifies room errors for the protocol layer.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindAuthority    ErrorKind = "authority"
	KindPrecondition ErrorKind = "precondition"
	KindState        ErrorKind = "state"
	KindUnknown      ErrorKind = "unknown"
)

// Error is a rejected room operation. Msg is safe to show to the requester.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrRoomNotFound     = &Error{Kind: KindNotFound, Msg: "room not found"}
	ErrRoomClosed       = &Error{Kind: KindState, Msg: "room is closed"}
	ErrNameTaken        = &Error{Kind: KindPrecondition, Msg: "name already taken in this room"}
	ErrNotEnoughPlayers = &Error{Kind: KindPrecondition, Msg: "at least 2 players are needed to start"}
	ErrNotMember        = &Error{Kind: KindPrecondition, Msg: "you are not a player in this room"}
	ErrAllPatternsTaken = &Error{Kind: KindState, Msg: "tombola has already been declared"}
)

func authorityError(action string) *Error {
	return &Error{Kind: KindAuthority, Msg: fmt.Sprintf("only the host can %s", action)}
}

func outOfOrderError(declared string, next string) *Error {
	return &Error{
		Kind: KindPrecondition,
		Msg:  fmt.Sprintf("cannot declare %s: the next pattern is %s", declared, next),
	}
}

// KindOf returns the kind of a room error, or KindUnknown for any other error.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}
