package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

// GameLookup resolves a game id against the read-only catalog.
// A nil result means the id does not resolve.
type GameLookup func(domain.GameID) *domain.GameDefinition

type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseRoles  Phase = "roles"
	PhaseReady  Phase = "ready"
	PhaseReveal Phase = "reveal"
)

// member binds a player to its transport endpoint and its pending removal
// timer. The link is nil while the player is disconnected.
type member struct {
	player  *domain.Player
	link    SignalLink
	removal *time.Timer
}

// Room is the aggregate for one game session. Every mutation and every
// outbound emission happens under r.mu, so each member observes broadcasts
// in the order the mutations were applied.
type Room struct {
	mu      sync.Mutex
	code    string
	ownerID domain.PlayerID
	gameID  domain.GameID
	phase   Phase
	members []*member // insertion order
	lookup  GameLookup
}

func NewRoom(code string, owner *domain.Player, link SignalLink, lookup GameLookup) *Room {
	if lookup == nil {
		lookup = func(domain.GameID) *domain.GameDefinition { return nil }
	}
	return &Room{
		code:    code,
		ownerID: owner.ID,
		phase:   PhaseLobby,
		members: []*member{{player: owner, link: link}},
		lookup:  lookup,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

func (r *Room) OwnerID() domain.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerID
}

// Snapshot returns the public room state as broadcast to members.
func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Announce unicasts the join confirmation to playerID and then broadcasts
// the room state, in that order.
func (r *Room) Announce(playerID domain.PlayerID, welcome Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.findLocked(playerID); m != nil {
		r.unicastLocked(m, welcome)
	}
	r.broadcastStateLocked()
}

// Join admits a new player while the room is still in the lobby.
func (r *Room) Join(p *domain.Player, link SignalLink, welcome Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseLobby {
		return ErrGameStarted
	}
	key := domain.NormalizeName(p.Name)
	for _, m := range r.members {
		if domain.NormalizeName(m.player.Name) == key {
			return ErrNameTaken
		}
	}
	nm := &member{player: p, link: link}
	r.members = append(r.members, nm)
	r.unicastLocked(nm, welcome)
	r.broadcastStateLocked()
	log.Info().Str("module", "core.room").Str("code", r.code).Str("player", string(p.ID)).Msg("player joined")
	return nil
}

// Restore rebinds a returning player to a new connection. It cancels the
// pending removal timer, echoes the join confirmation, broadcasts state and,
// when the round is already revealed, redelivers that player's reveal view
// (recomputed, never cached).
func (r *Room) Restore(playerID domain.PlayerID, link SignalLink, welcome Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findLocked(playerID)
	if m == nil {
		return false
	}
	r.cancelRemovalLocked(m)
	m.player.Connected = true
	m.link = link
	r.unicastLocked(m, welcome)
	r.broadcastStateLocked()
	if r.phase == PhaseReveal && m.player.RoleID != "" {
		r.unicastLocked(m, Encode(r.revealForLocked(m)))
	}
	log.Info().Str("module", "core.room").Str("code", r.code).Str("player", string(playerID)).Msg("player restored")
	return true
}

// Leave removes a player in any phase. The second call for the same player
// is a no-op. Departure never changes the phase.
func (r *Room) Leave(playerID domain.PlayerID, ack Frame) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findLocked(playerID)
	if m == nil {
		return false, len(r.members) == 0
	}
	r.cancelRemovalLocked(m)
	r.unicastLocked(m, ack)
	return true, r.removeLocked(playerID)
}

// Disconnect marks the player disconnected and schedules the grace timer.
// The expire callback fires in its own goroutine after grace; whatever it
// invokes must go through RemoveIfDisconnected, which re-checks Connected.
func (r *Room) Disconnect(playerID domain.PlayerID, grace time.Duration, expire func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findLocked(playerID)
	if m == nil {
		return false
	}
	r.cancelRemovalLocked(m)
	m.player.Connected = false
	m.link = nil
	m.removal = time.AfterFunc(grace, expire)
	log.Info().Str("module", "core.room").Str("code", r.code).Str("player", string(playerID)).Dur("grace", grace).Msg("player disconnected")
	return true
}

// RemoveIfDisconnected is the grace-timer landing point. A timer that lost
// the race against a reconnect finds Connected == true and does nothing.
func (r *Room) RemoveIfDisconnected(playerID domain.PlayerID) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findLocked(playerID)
	if m == nil || m.player.Connected {
		return false, len(r.members) == 0
	}
	log.Info().Str("module", "core.room").Str("code", r.code).Str("player", string(playerID)).Msg("disconnect grace expired")
	return true, r.removeLocked(playerID)
}

// SelectGame sets the room's game while in the lobby and clears every
// player's role submission.
func (r *Room) SelectGame(actorID domain.PlayerID, gameID domain.GameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actorID != r.ownerID {
		return ErrNotOwner
	}
	if r.phase != PhaseLobby {
		return ErrGameStarted
	}
	game := r.lookup(gameID)
	if game == nil {
		return ErrUnknownGame
	}
	r.gameID = game.ID
	r.clearRolesLocked()
	r.broadcastStateLocked()
	return nil
}

// Start opens role selection.
func (r *Room) Start(actorID domain.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actorID != r.ownerID {
		return ErrNotOwner
	}
	if r.phase != PhaseLobby {
		return ErrGameStarted
	}
	if r.gameID == "" {
		return ErrNoGameSelected
	}
	r.phase = PhaseRoles
	r.clearRolesLocked()
	r.broadcastStateLocked()
	return nil
}

// SubmitRole records the acting player's own role pick. When the last
// pending player submits, the room auto-advances to ready.
func (r *Room) SubmitRole(actorID domain.PlayerID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRoles {
		return ErrRolesNotOpen
	}
	game := r.lookup(r.gameID)
	if game == nil {
		return ErrUnknownGame
	}
	if _, ok := game.Role(roleID); !ok {
		return ErrUnknownRole
	}
	m := r.findLocked(actorID)
	if m == nil {
		return ErrPlayerNotFound
	}
	m.player.RoleID = roleID
	m.player.HasSubmitted = true
	if r.allSubmittedLocked() {
		r.phase = PhaseReady
	}
	r.broadcastStateLocked()
	return nil
}

// ConfirmReveal moves the room to the reveal phase and unicasts each
// player's own visibility view.
func (r *Room) ConfirmReveal(actorID domain.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actorID != r.ownerID {
		return ErrNotOwner
	}
	if r.phase != PhaseReady || !r.allSubmittedLocked() {
		return ErrNotAllConfirmed
	}
	r.phase = PhaseReveal
	for _, m := range r.members {
		r.unicastLocked(m, Encode(r.revealForLocked(m)))
	}
	r.broadcastStateLocked()
	log.Info().Str("module", "core.room").Str("code", r.code).Msg("roles revealed")
	return nil
}

// Reset returns the room to a clean lobby from any phase.
func (r *Room) Reset(actorID domain.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actorID != r.ownerID {
		return ErrNotOwner
	}
	r.gameID = ""
	r.phase = PhaseLobby
	r.clearRolesLocked()
	r.broadcastLocked(Encode(Notice{Type: EventReset}))
	r.broadcastStateLocked()
	return nil
}

func (r *Room) findLocked(playerID domain.PlayerID) *member {
	for _, m := range r.members {
		if m.player.ID == playerID {
			return m
		}
	}
	return nil
}

func (r *Room) cancelRemovalLocked(m *member) {
	if m.removal != nil {
		m.removal.Stop()
		m.removal = nil
	}
}

// removeLocked drops the player, reassigns ownership to the earliest-joined
// remaining member and broadcasts the new state. Returns true when the room
// is now empty; the caller is responsible for deleting an empty room.
func (r *Room) removeLocked(playerID domain.PlayerID) (empty bool) {
	for i, m := range r.members {
		if m.player.ID == playerID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	if len(r.members) == 0 {
		return true
	}
	if r.ownerID == playerID {
		r.ownerID = r.members[0].player.ID
		log.Info().Str("module", "core.room").Str("code", r.code).Str("owner", string(r.ownerID)).Msg("ownership transferred")
	}
	r.broadcastStateLocked()
	return false
}

func (r *Room) clearRolesLocked() {
	for _, m := range r.members {
		m.player.RoleID = ""
		m.player.HasSubmitted = false
	}
}

func (r *Room) allSubmittedLocked() bool {
	// Every player in the mapping counts, connected or not.
	for _, m := range r.members {
		if !m.player.HasSubmitted {
			return false
		}
	}
	return true
}

func (r *Room) revealForLocked(m *member) RevealPayload {
	roster := make([]*domain.Player, 0, len(r.members))
	for _, mm := range r.members {
		roster = append(roster, mm.player)
	}
	return RevealPayload{
		Type:           EventReveal,
		GameID:         r.gameID,
		VisiblePlayers: ResolveReveal(r.lookup(r.gameID), roster, m.player),
	}
}

func (r *Room) stateLocked() RoomState {
	players := make([]PlayerState, 0, len(r.members))
	for _, m := range r.members {
		players = append(players, PlayerState{
			ID:           m.player.ID,
			Name:         m.player.Name,
			HasSubmitted: m.player.HasSubmitted,
		})
	}
	return RoomState{
		Type:    EventState,
		Code:    r.code,
		OwnerID: r.ownerID,
		GameID:  r.gameID,
		Phase:   r.phase,
		Players: players,
	}
}

func (r *Room) broadcastStateLocked() {
	r.broadcastLocked(Encode(r.stateLocked()))
}

func (r *Room) broadcastLocked(frame Frame) {
	for _, m := range r.members {
		r.unicastLocked(m, frame)
	}
}

func (r *Room) unicastLocked(m *member, frame Frame) {
	if m.link == nil || frame == nil {
		return
	}
	if err := m.link.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "core.room").Str("code", r.code).Str("player", string(m.player.ID)).Msg("send dropped")
	}
}
