package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/core"
	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

// Orchestrator is the connection-facing entry point for every room
// operation. It resolves the acting membership through the registry,
// validates it against the room table and delegates to the room, which
// serializes all mutations and outbound emission behind its own lock.
type Orchestrator struct {
	Registry *Registry
	Rooms    *RoomManager
	Grace    time.Duration
}

// CreateRoom creates a room with the sender as owner, binds the session and
// echoes room.joined before the first room.state broadcast. An empty token
// means the client holds no prior session; a fresh one is issued.
func (o *Orchestrator) CreateRoom(connID string, link core.SignalLink, name, token string) error {
	room, owner, err := o.Rooms.CreateRoom(name, link)
	if err != nil {
		return err
	}
	if token == "" {
		token = uuid.NewString()
	}
	o.Registry.Bind(token, room.Code(), owner.ID, connID)
	room.Announce(owner.ID, core.Encode(core.Joined{
		Type:      core.EventJoined,
		PlayerID:  owner.ID,
		IsOwner:   true,
		Code:      room.Code(),
		SessionID: token,
	}))
	return nil
}

// JoinRoom admits the sender into an existing lobby-phase room.
func (o *Orchestrator) JoinRoom(connID string, link core.SignalLink, code, name, token string) error {
	room, ok := o.Rooms.Get(code)
	if !ok {
		return core.ErrRoomNotFound
	}
	p, err := domain.NewPlayer(name)
	if err != nil {
		return core.ErrInvalidName
	}
	if token == "" {
		token = uuid.NewString()
	}
	welcome := core.Encode(core.Joined{
		Type:      core.EventJoined,
		PlayerID:  p.ID,
		IsOwner:   false,
		Code:      room.Code(),
		SessionID: token,
	})
	if err := room.Join(p, link, welcome); err != nil {
		return err
	}
	o.Registry.Bind(token, room.Code(), p.ID, connID)
	return nil
}

// Restore rebinds a held session token to a fresh connection. A stale token
// is dropped silently; the client falls back to the join/create screen.
func (o *Orchestrator) Restore(connID string, link core.SignalLink, token string) bool {
	entry, ok := o.Registry.ResolveByToken(token)
	if !ok {
		return false
	}
	room, ok := o.Rooms.Get(entry.Code)
	if !ok {
		o.Registry.Unbind(token, "")
		return false
	}
	welcome := core.Encode(core.Joined{
		Type:      core.EventJoined,
		PlayerID:  entry.PlayerID,
		IsOwner:   room.OwnerID() == entry.PlayerID,
		Code:      room.Code(),
		SessionID: token,
	})
	if !room.Restore(entry.PlayerID, link, welcome) {
		o.Registry.Unbind(token, "")
		return false
	}
	o.Registry.Bind(token, entry.Code, entry.PlayerID, connID)
	return true
}

// Leave removes the sender from its room. Unbound connections are a no-op,
// so a duplicate leave is harmless.
func (o *Orchestrator) Leave(connID string) {
	entry, ok := o.Registry.ResolveByConn(connID)
	if !ok {
		return
	}
	o.Registry.Unbind(entry.Token, connID)
	room, ok := o.Rooms.Get(entry.Code)
	if !ok {
		return
	}
	_, empty := room.Leave(entry.PlayerID, core.Encode(core.Notice{Type: core.EventLeft}))
	if empty {
		o.Rooms.Delete(entry.Code)
	}
}

// OnDisconnect drops the connection binding immediately and starts the
// disconnect-grace countdown; the token binding survives until expiry.
func (o *Orchestrator) OnDisconnect(connID string) {
	entry, ok := o.Registry.ResolveByConn(connID)
	if !ok {
		return
	}
	o.Registry.Unbind("", connID)
	room, ok := o.Rooms.Get(entry.Code)
	if !ok {
		o.Registry.Unbind(entry.Token, "")
		return
	}
	room.Disconnect(entry.PlayerID, o.Grace, func() {
		o.expireGrace(entry)
	})
}

// expireGrace runs on the grace timer's goroutine with the Entry captured at
// disconnect time. The token may have been rebound to a new membership since
// (room.create/room.join with the same sessionId), so the token entry is only
// dropped while it still matches the expiring membership.
func (o *Orchestrator) expireGrace(entry Entry) {
	room, ok := o.Rooms.Get(entry.Code)
	if !ok {
		o.Registry.UnbindIf(entry)
		return
	}
	removed, empty := room.RemoveIfDisconnected(entry.PlayerID)
	if !removed {
		return
	}
	o.Registry.UnbindIf(entry)
	if empty {
		o.Rooms.Delete(entry.Code)
	}
	log.Info().Str("module", "app.orchestrator").Str("code", entry.Code).Str("player", string(entry.PlayerID)).Msg("membership expired")
}

// SelectGame, Start, SubmitRole, ConfirmReveal and Reset all resolve the
// sender the same way; the room enforces phase and ownership rules.

func (o *Orchestrator) SelectGame(connID string, gameID domain.GameID) error {
	entry, room, err := o.acting(connID)
	if err != nil {
		return err
	}
	return room.SelectGame(entry.PlayerID, gameID)
}

func (o *Orchestrator) Start(connID string) error {
	entry, room, err := o.acting(connID)
	if err != nil {
		return err
	}
	return room.Start(entry.PlayerID)
}

func (o *Orchestrator) SubmitRole(connID string, roleID string) error {
	entry, room, err := o.acting(connID)
	if err != nil {
		return err
	}
	return room.SubmitRole(entry.PlayerID, roleID)
}

func (o *Orchestrator) ConfirmReveal(connID string) error {
	entry, room, err := o.acting(connID)
	if err != nil {
		return err
	}
	return room.ConfirmReveal(entry.PlayerID)
}

func (o *Orchestrator) Reset(connID string) error {
	entry, room, err := o.acting(connID)
	if err != nil {
		return err
	}
	return room.Reset(entry.PlayerID)
}

func (o *Orchestrator) acting(connID string) (Entry, *core.Room, error) {
	entry, ok := o.Registry.ResolveByConn(connID)
	if !ok {
		return Entry{}, nil, core.ErrRoomNotFound
	}
	room, ok := o.Rooms.Get(entry.Code)
	if !ok {
		return Entry{}, nil, core.ErrRoomNotFound
	}
	return entry, room, nil
}
