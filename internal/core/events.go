package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

// Frame is one marshaled outbound message.
type Frame []byte

// SignalLink abstracts the per-connection outbound channel.
// Owned by the adapter; delivery is fire-and-forget.
type SignalLink interface {
	TrySend(Frame) error
}

// Wire events (server -> connection). The Type field carries the event name.

type PlayerState struct {
	ID           domain.PlayerID `json:"id"`
	Name         string          `json:"name"`
	HasSubmitted bool            `json:"hasSubmittedRole"`
}

// RoomState is the public room snapshot broadcast to every member.
// It never carries any player's submitted role id.
type RoomState struct {
	Type    string          `json:"type"`
	Code    string          `json:"code"`
	OwnerID domain.PlayerID `json:"ownerId"`
	GameID  domain.GameID   `json:"gameId,omitempty"`
	Phase   Phase           `json:"phase"`
	Players []PlayerState   `json:"players"`
}

type Joined struct {
	Type      string          `json:"type"`
	PlayerID  domain.PlayerID `json:"playerId"`
	IsOwner   bool            `json:"isOwner"`
	Code      string          `json:"code"`
	SessionID string          `json:"sessionId"`
}

type VisiblePlayer struct {
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
	RoleID   string          `json:"roleId"`
}

// RevealPayload is unicast per player; each player gets only what their own
// role is allowed to see.
type RevealPayload struct {
	Type           string          `json:"type"`
	GameID         domain.GameID   `json:"gameId"`
	VisiblePlayers []VisiblePlayer `json:"visiblePlayers"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Notice struct {
	Type string `json:"type"`
}

const (
	EventJoined = "room.joined"
	EventState  = "room.state"
	EventReveal = "room.reveal"
	EventError  = "room.error"
	EventReset  = "room.reset"
	EventLeft   = "room.left"
	EventPong   = "pong"
)

// Encode marshals an event into a frame. Marshal failures are logged and
// yield a nil frame, which TrySend implementations treat as a no-op.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core").Msg("event marshal")
		return nil
	}
	return b
}
