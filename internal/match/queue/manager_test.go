package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func player(b byte) WaitingPlayer {
	return WaitingPlayer{
		UserID:   uuid.UUID{b},
		Username: "player-" + string('a'+rune(b)),
		Rating:   1000,
	}
}

func TestEnqueueFirstPlayerWaits(t *testing.T) {
	m := NewManager(zerolog.Nop())

	pair, err := m.Enqueue(player(1))
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.Equal(t, 1, m.Len())
}

func TestEnqueueSecondPlayerPairs(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Enqueue(player(1))
	require.NoError(t, err)

	pair, err := m.Enqueue(player(2))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, uuid.UUID{1}, pair.Player1.UserID)
	assert.Equal(t, uuid.UUID{2}, pair.Player2.UserID)
	assert.Equal(t, 0, m.Len())
}

func TestEnqueueDuplicateRejected(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Enqueue(player(1))
	require.NoError(t, err)

	_, err = m.Enqueue(player(1))
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, m.Len())
}

func TestPairingIsFIFO(t *testing.T) {
	m := NewManager(zerolog.Nop())

	// Three waiters never happens under immediate pairing, so seed one
	// and verify each new arrival pairs with the longest waiter.
	_, err := m.Enqueue(player(1))
	require.NoError(t, err)

	pair, err := m.Enqueue(player(2))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, uuid.UUID{1}, pair.Player1.UserID)

	_, err = m.Enqueue(player(3))
	require.NoError(t, err)
	pair, err = m.Enqueue(player(4))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, uuid.UUID{3}, pair.Player1.UserID)
	assert.Equal(t, uuid.UUID{4}, pair.Player2.UserID)
}

func TestLeaveRemovesPlayer(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Enqueue(player(1))
	require.NoError(t, err)

	require.NoError(t, m.Leave(uuid.UUID{1}))
	assert.Equal(t, 0, m.Len())

	// Next arrival must not pair with the departed player.
	pair, err := m.Enqueue(player(2))
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestLeaveNotQueued(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.ErrorIs(t, m.Leave(uuid.UUID{9}), ErrNotQueued)
}

func TestPositionSkipsStaleEntries(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Enqueue(player(1))
	require.NoError(t, err)
	pos, err := m.Position(uuid.UUID{1})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	require.NoError(t, m.Leave(uuid.UUID{1}))
	_, err = m.Position(uuid.UUID{1})
	assert.ErrorIs(t, err, ErrNotQueued)

	_, err = m.Enqueue(player(2))
	require.NoError(t, err)
	pos, err = m.Position(uuid.UUID{2})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestReenqueueAfterLeave(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Enqueue(player(1))
	require.NoError(t, err)
	require.NoError(t, m.Leave(uuid.UUID{1}))

	pair, err := m.Enqueue(player(1))
	require.NoError(t, err)
	assert.Nil(t, pair)

	pair, err = m.Enqueue(player(2))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, uuid.UUID{1}, pair.Player1.UserID)
}
