package core

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

type fakeLink struct {
	mu     sync.Mutex
	frames []Frame
}

func (f *fakeLink) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

// eventTypes decodes the type field of every frame delivered so far.
func (f *fakeLink) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(fr, &env)
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeLink) lastReveal(t *testing.T) RevealPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var p RevealPayload
		if err := json.Unmarshal(f.frames[i], &p); err == nil && p.Type == EventReveal {
			return p
		}
	}
	t.Fatal("no reveal frame delivered")
	return RevealPayload{}
}

func lookupFor(games ...*domain.GameDefinition) GameLookup {
	return func(id domain.GameID) *domain.GameDefinition {
		for _, g := range games {
			if g.ID == id {
				return g
			}
		}
		return nil
	}
}

type testRoom struct {
	room  *Room
	owner *domain.Player
	links map[domain.PlayerID]*fakeLink
}

func newTestRoom(t *testing.T) *testRoom {
	t.Helper()
	owner, err := domain.NewPlayer("Alice")
	require.NoError(t, err)
	link := &fakeLink{}
	return &testRoom{
		room:  NewRoom("0042", owner, link, lookupFor(testGame())),
		owner: owner,
		links: map[domain.PlayerID]*fakeLink{owner.ID: link},
	}
}

func (tr *testRoom) join(t *testing.T, name string) *domain.Player {
	t.Helper()
	p, err := domain.NewPlayer(name)
	require.NoError(t, err)
	link := &fakeLink{}
	require.NoError(t, tr.room.Join(p, link, Encode(Notice{Type: EventJoined})))
	tr.links[p.ID] = link
	return p
}

func TestJoinRules(t *testing.T) {
	tr := newTestRoom(t)
	tr.join(t, "Bob")

	t.Run("name collision is case-insensitive", func(t *testing.T) {
		p, err := domain.NewPlayer("  bob ")
		require.NoError(t, err)
		assert.ErrorIs(t, tr.room.Join(p, &fakeLink{}, nil), ErrNameTaken)
	})

	t.Run("free name with different case joins", func(t *testing.T) {
		tr.join(t, "CAROL")
	})

	t.Run("no joins after lobby", func(t *testing.T) {
		require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
		require.NoError(t, tr.room.Start(tr.owner.ID))
		p, err := domain.NewPlayer("Dave")
		require.NoError(t, err)
		assert.ErrorIs(t, tr.room.Join(p, &fakeLink{}, nil), ErrGameStarted)
	})
}

func TestPhaseMachine(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")

	assert.ErrorIs(t, tr.room.Start(bob.ID), ErrNotOwner)
	assert.ErrorIs(t, tr.room.Start(tr.owner.ID), ErrNoGameSelected)
	assert.ErrorIs(t, tr.room.SelectGame(tr.owner.ID, "nope"), ErrUnknownGame)
	assert.ErrorIs(t, tr.room.SubmitRole(bob.ID, "merlin"), ErrRolesNotOpen)

	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	assert.Equal(t, PhaseLobby, tr.room.Snapshot().Phase)

	require.NoError(t, tr.room.Start(tr.owner.ID))
	assert.Equal(t, PhaseRoles, tr.room.Snapshot().Phase)
	assert.ErrorIs(t, tr.room.SelectGame(tr.owner.ID, "avalon"), ErrGameStarted)
	assert.ErrorIs(t, tr.room.Start(tr.owner.ID), ErrGameStarted)

	assert.ErrorIs(t, tr.room.SubmitRole(bob.ID, "ghost"), ErrUnknownRole)
	assert.ErrorIs(t, tr.room.ConfirmReveal(tr.owner.ID), ErrNotAllConfirmed)
}

func TestAutoAdvanceOnLastSubmission(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	carol := tr.join(t, "Carol")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))

	require.NoError(t, tr.room.SubmitRole(tr.owner.ID, "merlin"))
	require.NoError(t, tr.room.SubmitRole(bob.ID, "assassin"))
	assert.Equal(t, PhaseRoles, tr.room.Snapshot().Phase, "N-1 submissions must not advance")

	require.NoError(t, tr.room.SubmitRole(carol.ID, "percival"))
	assert.Equal(t, PhaseReady, tr.room.Snapshot().Phase)
}

func TestConfirmRevealDeliversPerPlayerViews(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	carol := tr.join(t, "Carol")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))
	require.NoError(t, tr.room.SubmitRole(tr.owner.ID, "merlin"))
	require.NoError(t, tr.room.SubmitRole(bob.ID, "assassin"))
	require.NoError(t, tr.room.SubmitRole(carol.ID, "percival"))

	assert.ErrorIs(t, tr.room.ConfirmReveal(bob.ID), ErrNotOwner)
	require.NoError(t, tr.room.ConfirmReveal(tr.owner.ID))
	assert.Equal(t, PhaseReveal, tr.room.Snapshot().Phase)

	merlinView := tr.links[tr.owner.ID].lastReveal(t)
	require.Len(t, merlinView.VisiblePlayers, 1)
	assert.Equal(t, bob.ID, merlinView.VisiblePlayers[0].PlayerID)

	// Assassin has no rule: defaults to seeing only themselves.
	assassinView := tr.links[bob.ID].lastReveal(t)
	require.Len(t, assassinView.VisiblePlayers, 1)
	assert.Equal(t, bob.ID, assassinView.VisiblePlayers[0].PlayerID)

	percivalView := tr.links[carol.ID].lastReveal(t)
	require.Len(t, percivalView.VisiblePlayers, 1)
	assert.Equal(t, bob.ID, percivalView.VisiblePlayers[0].PlayerID)
}

func TestStateBroadcastHidesRoles(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))
	require.NoError(t, tr.room.SubmitRole(bob.ID, "assassin"))

	state := tr.room.Snapshot()
	raw, err := json.Marshal(state)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "assassin")
	for _, p := range state.Players {
		if p.ID == bob.ID {
			assert.True(t, p.HasSubmitted)
		}
	}
}

func TestLeaveTransfersOwnershipToEarliestJoined(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	carol := tr.join(t, "Carol")

	removed, empty := tr.room.Leave(tr.owner.ID, nil)
	assert.True(t, removed)
	assert.False(t, empty)
	assert.Equal(t, bob.ID, tr.room.OwnerID())

	t.Run("second leave is a no-op", func(t *testing.T) {
		removed, _ := tr.room.Leave(tr.owner.ID, nil)
		assert.False(t, removed)
	})

	t.Run("last departure empties the room", func(t *testing.T) {
		_, empty := tr.room.Leave(bob.ID, nil)
		assert.False(t, empty)
		_, empty = tr.room.Leave(carol.ID, nil)
		assert.True(t, empty)
	})
}

func TestDepartureDoesNotChangePhase(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))

	tr.room.Leave(bob.ID, nil)
	assert.Equal(t, PhaseRoles, tr.room.Snapshot().Phase)
}

func TestDisconnectGrace(t *testing.T) {
	t.Run("expiry removes only while still disconnected", func(t *testing.T) {
		tr := newTestRoom(t)
		bob := tr.join(t, "Bob")

		fired := make(chan struct{})
		ok := tr.room.Disconnect(bob.ID, time.Hour, func() { close(fired) })
		require.True(t, ok)

		// Reconnect wins the race: the guard must keep the player.
		require.True(t, tr.room.Restore(bob.ID, &fakeLink{}, nil))
		removed, _ := tr.room.RemoveIfDisconnected(bob.ID)
		assert.False(t, removed)
		select {
		case <-fired:
			t.Fatal("canceled timer fired")
		case <-time.After(20 * time.Millisecond):
		}
	})

	t.Run("expiry removes the player", func(t *testing.T) {
		tr := newTestRoom(t)
		bob := tr.join(t, "Bob")
		require.True(t, tr.room.Disconnect(bob.ID, time.Hour, func() {}))
		removed, empty := tr.room.RemoveIfDisconnected(bob.ID)
		assert.True(t, removed)
		assert.False(t, empty)
	})
}

func TestRestoreKeepsRoleAndRedeliversReveal(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))
	require.NoError(t, tr.room.SubmitRole(tr.owner.ID, "merlin"))
	require.NoError(t, tr.room.SubmitRole(bob.ID, "assassin"))
	require.NoError(t, tr.room.ConfirmReveal(tr.owner.ID))
	before := tr.links[tr.owner.ID].lastReveal(t)

	require.True(t, tr.room.Disconnect(tr.owner.ID, time.Hour, func() {}))
	fresh := &fakeLink{}
	require.True(t, tr.room.Restore(tr.owner.ID, fresh, Encode(Notice{Type: EventJoined})))

	after := fresh.lastReveal(t)
	assert.Equal(t, before.VisiblePlayers, after.VisiblePlayers, "recomputed reveal must match for unchanged room state")
	assert.Equal(t, []string{EventJoined, EventState, EventReveal}, fresh.eventTypes())
}

func TestResetReturnsToCleanLobby(t *testing.T) {
	tr := newTestRoom(t)
	bob := tr.join(t, "Bob")
	require.NoError(t, tr.room.SelectGame(tr.owner.ID, "avalon"))
	require.NoError(t, tr.room.Start(tr.owner.ID))
	require.NoError(t, tr.room.SubmitRole(bob.ID, "assassin"))

	assert.ErrorIs(t, tr.room.Reset(bob.ID), ErrNotOwner)
	require.NoError(t, tr.room.Reset(tr.owner.ID))

	state := tr.room.Snapshot()
	assert.Equal(t, PhaseLobby, state.Phase)
	assert.Empty(t, state.GameID)
	for _, p := range state.Players {
		assert.False(t, p.HasSubmitted)
	}
	assert.Contains(t, tr.links[bob.ID].eventTypes(), EventReset)
}
