package core

import "errors"

// Request-level failures. All of them are surfaced to the requesting
// connection only and leave room state untouched.
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrNameTaken       = errors.New("name already taken")
	ErrRoomNotFound    = errors.New("room not found")
	ErrGameStarted     = errors.New("game already started")
	ErrNotOwner        = errors.New("only the room owner can do that")
	ErrUnknownGame     = errors.New("unknown game")
	ErrNoGameSelected  = errors.New("no game selected")
	ErrRolesNotOpen    = errors.New("role selection is not open")
	ErrUnknownRole     = errors.New("unknown role")
	ErrNotAllConfirmed = errors.New("not all players have submitted a role")
	ErrPlayerNotFound  = errors.New("player not found")
)
