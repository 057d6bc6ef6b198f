package engine_test

import (
	"testing"
	"time"

	"battleserver/battleship/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateJoinLookup(t *testing.T) {
	reg := engine.NewRegistry()

	m, err := reg.Create("conn-a", "alice", engine.MatchConfig{})
	require.NoError(t, err)
	assert.Len(t, m.ID(), 5)
	assert.Equal(t, m.ID(), m.Config().MatchID)
	assert.Equal(t, 8, m.Config().BoardSize)

	found, ok := reg.LookupByID(m.ID())
	require.True(t, ok)
	assert.Same(t, m, found)

	found, slot, ok := reg.LookupByParticipant("conn-a")
	require.True(t, ok)
	assert.Same(t, m, found)
	assert.Equal(t, engine.SlotCreator, slot)

	_, _, ok = reg.LookupByParticipant("conn-b")
	assert.False(t, ok)

	joined, err := reg.Join(m.ID(), "conn-b", "bob")
	require.NoError(t, err)
	assert.Same(t, m, joined)
	_, slot, ok = reg.LookupByParticipant("conn-b")
	require.True(t, ok)
	assert.Equal(t, engine.SlotJoiner, slot)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_OneMatchPerParticipant(t *testing.T) {
	reg := engine.NewRegistry()
	m, err := reg.Create("conn-a", "alice", engine.MatchConfig{})
	require.NoError(t, err)

	assert.ErrorIs(t, reg.RejectIfAlreadyInMatch("conn-a"), engine.ErrAlreadyInMatch)
	assert.NoError(t, reg.RejectIfAlreadyInMatch("conn-b"))

	_, err = reg.Create("conn-a", "alice", engine.MatchConfig{})
	assert.ErrorIs(t, err, engine.ErrAlreadyInMatch)
	_, err = reg.Join(m.ID(), "conn-a", "alice")
	assert.ErrorIs(t, err, engine.ErrAlreadyInMatch)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_JoinErrors(t *testing.T) {
	reg := engine.NewRegistry()
	m, err := reg.Create("conn-a", "alice", engine.MatchConfig{})
	require.NoError(t, err)

	_, err = reg.Join("NOPE1", "conn-b", "bob")
	assert.ErrorIs(t, err, engine.ErrUnknownMatch)

	_, err = reg.Join(m.ID(), "conn-b", "bob")
	require.NoError(t, err)
	_, err = reg.Join(m.ID(), "conn-c", "carol")
	assert.ErrorIs(t, err, engine.ErrMatchFull)

	// 失敗した参加者はどのマッチにも属さない
	assert.NoError(t, reg.RejectIfAlreadyInMatch("conn-c"))
}

func TestRegistry_CreateRejectsInvalidConfig(t *testing.T) {
	reg := engine.NewRegistry()
	_, err := reg.Create("conn-a", "alice", engine.MatchConfig{BoardSize: 40})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
	assert.NoError(t, reg.RejectIfAlreadyInMatch("conn-a"))
}

func TestRegistry_IDsNeverCollide(t *testing.T) {
	ids := []string{"AAAAA", "AAAAA", "AAAAA", "BBBBB"}
	next := 0
	reg := engine.NewRegistry(engine.WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first, err := reg.Create("conn-a", "alice", engine.MatchConfig{})
	require.NoError(t, err)
	second, err := reg.Create("conn-b", "bob", engine.MatchConfig{})
	require.NoError(t, err)

	assert.Equal(t, "AAAAA", first.ID())
	assert.Equal(t, "BBBBB", second.ID())
}

func TestRegistry_DestroyIsIdempotent(t *testing.T) {
	reg := engine.NewRegistry()
	m, err := reg.Create("conn-a", "alice", engine.MatchConfig{})
	require.NoError(t, err)
	_, err = reg.Join(m.ID(), "conn-b", "bob")
	require.NoError(t, err)

	assert.True(t, reg.Destroy(m.ID()))
	assert.False(t, reg.Destroy(m.ID()))
	assert.False(t, reg.Destroy("missing"))

	_, ok := reg.LookupByID(m.ID())
	assert.False(t, ok)
	_, _, ok = reg.LookupByParticipant("conn-a")
	assert.False(t, ok)
	_, _, ok = reg.LookupByParticipant("conn-b")
	assert.False(t, ok)
	assert.Equal(t, engine.StateDestroyed, m.State())

	// 破棄後は別のマッチを作れる
	_, err = reg.Create("conn-a", "alice", engine.MatchConfig{})
	assert.NoError(t, err)
}

func TestRegistry_SweepIdle(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := engine.NewRegistry(
		engine.WithClock(func() time.Time { return now }),
		engine.WithRand(&fixedRand{values: []int{0, 1, 2, 3, 4, 5, 6, 7}}),
	)

	stale, err := reg.Create("conn-a", "alice", engine.MatchConfig{ShipDefinitions: twoDestroyers})
	require.NoError(t, err)

	playing, err := reg.Create("conn-c", "carol", engine.MatchConfig{ShipDefinitions: twoDestroyers})
	require.NoError(t, err)
	_, err = reg.Join(playing.ID(), "conn-d", "dave")
	require.NoError(t, err)
	_, err = playing.MarkReady(engine.SlotCreator, []engine.Placement{{PlacementID: 1, Size: 2, X: 0, Y: 0}})
	require.NoError(t, err)
	_, err = playing.MarkReady(engine.SlotJoiner, []engine.Placement{{PlacementID: 1, Size: 2, X: 0, Y: 0}})
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	fresh, err := reg.Create("conn-e", "erin", engine.MatchConfig{})
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	swept := reg.SweepIdle(31 * time.Minute)
	require.Len(t, swept, 1)
	assert.Equal(t, stale.ID(), swept[0].Config.MatchID)
	assert.Equal(t, engine.StateDestroyed, swept[0].State)

	_, ok := reg.LookupByID(stale.ID())
	assert.False(t, ok)
	_, ok = reg.LookupByID(playing.ID())
	assert.True(t, ok, "started matches are never swept")
	_, ok = reg.LookupByID(fresh.ID())
	assert.True(t, ok)
}
