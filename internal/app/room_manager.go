package app

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/core"
	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

const roomCodeLen = 4

// RoomManager owns the live room table. Code generation and insertion happen
// under one lock so a drawn code can never collide with a live room.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*core.Room
	lookup core.GameLookup
}

func NewRoomManager(lookup core.GameLookup) *RoomManager {
	return &RoomManager{rooms: make(map[string]*core.Room), lookup: lookup}
}

// CreateRoom validates the owner name, draws a unique 4-digit code and
// registers the new lobby-phase room with its first player as owner.
func (rm *RoomManager) CreateRoom(ownerName string, link core.SignalLink) (*core.Room, *domain.Player, error) {
	owner, err := domain.NewPlayer(ownerName)
	if err != nil {
		return nil, nil, core.ErrInvalidName
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	code := generateRoomCode()
	for {
		if _, taken := rm.rooms[code]; !taken {
			break
		}
		code = generateRoomCode()
	}
	room := core.NewRoom(code, owner, link, rm.lookup)
	rm.rooms[code] = room
	log.Info().Str("module", "app.rooms").Str("code", code).Str("owner", string(owner.ID)).Msg("room created")
	return room, owner, nil
}

func (rm *RoomManager) Get(code string) (*core.Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[code]
	return room, ok
}

// Delete removes the room if it exists and has zero players. Idempotent.
func (rm *RoomManager) Delete(code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	room, ok := rm.rooms[code]
	if !ok || !room.Empty() {
		return
	}
	delete(rm.rooms, code)
	log.Info().Str("module", "app.rooms").Str("code", code).Msg("room deleted")
}

func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// generateRoomCode draws a 4-digit decimal string uniformly at random,
// leading zeros allowed.
func generateRoomCode() string {
	code := make([]byte, roomCodeLen)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(10))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = byte('0' + rand.Intn(10))
			continue
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code)
}
