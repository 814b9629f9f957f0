package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

// Entry is a back-reference into the room table. It owns nothing: it can go
// stale and must be validated against the RoomManager on every use.
type Entry struct {
	Code     string
	PlayerID domain.PlayerID
	Token    string
}

// Registry maps session tokens and live connection ids to room memberships.
// Token entries survive a disconnect (until grace expiry); connection entries
// are removed the moment the connection drops.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]Entry
	byConn  map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]Entry),
		byConn:  make(map[string]Entry),
	}
}

// Bind upserts both the token-keyed and connection-keyed entries.
func (r *Registry) Bind(token, code string, playerID domain.PlayerID, connID string) {
	e := Entry{Code: code, PlayerID: playerID, Token: token}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[token] = e
	if connID != "" {
		r.byConn[connID] = e
	}
	log.Info().Str("module", "app.registry").Str("code", code).Str("player", string(playerID)).Msg("session bound")
}

func (r *Registry) ResolveByConn(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[connID]
	return e, ok
}

func (r *Registry) ResolveByToken(token string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byToken[token]
	return e, ok
}

// Unbind removes the given entries. Either argument may be empty.
func (r *Registry) Unbind(token, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token != "" {
		delete(r.byToken, token)
	}
	if connID != "" {
		delete(r.byConn, connID)
	}
}

// UnbindIf removes the token entry only while it still describes the same
// membership. A token rebound to another room in the meantime is left alone;
// the fresh binding supersedes the expired one.
func (r *Registry) UnbindIf(entry Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byToken[entry.Token]
	if !ok || cur.Code != entry.Code || cur.PlayerID != entry.PlayerID {
		return false
	}
	delete(r.byToken, entry.Token)
	return true
}
