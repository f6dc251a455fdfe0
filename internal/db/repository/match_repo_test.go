package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hectoclash/hectoclash/internal/db"
)

type mockMatchStore struct {
	mock.Mock
}

func (m *mockMatchStore) CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.Match, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Match), args.Error(1)
}

func (m *mockMatchStore) StartMatchIfPending(ctx context.Context, id pgtype.UUID, startedAt pgtype.Timestamptz) (bool, error) {
	args := m.Called(ctx, id, startedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockMatchStore) FinishMatchIfStarted(ctx context.Context, arg db.FinishMatchParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *mockMatchStore) VoidMatchIfUnfinished(ctx context.Context, id pgtype.UUID, endedAt pgtype.Timestamptz) (bool, error) {
	args := m.Called(ctx, id, endedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockMatchStore) GetMatch(ctx context.Context, id pgtype.UUID) (db.Match, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(db.Match), args.Error(1)
}

func (m *mockMatchStore) ListMatchesByUser(ctx context.Context, userID pgtype.UUID, limit int32) ([]db.Match, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]db.Match), args.Error(1)
}

func (m *mockMatchStore) ListLiveMatches(ctx context.Context, limit int32) ([]db.Match, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]db.Match), args.Error(1)
}

func TestMatchRepository_Create(t *testing.T) {
	store := new(mockMatchStore)
	repo := NewMatchRepository(store)

	params := db.CreateMatchParams{
		ID:        uuidFromByte(1),
		Player1ID: uuidFromByte(2),
		Player2ID: uuidFromByte(3),
		Problem:   "123456",
		Status:    "pending",
	}
	expect := db.Match{ID: params.ID, Problem: "123456", Status: "pending"}
	store.On("CreateMatch", mock.Anything, params).Return(expect, nil)

	got, err := repo.Create(context.Background(), params)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}

func TestMatchRepository_FinishIfStarted(t *testing.T) {
	store := new(mockMatchStore)
	repo := NewMatchRepository(store)

	params := db.FinishMatchParams{
		ID:       uuidFromByte(4),
		WinnerID: uuidFromByte(5),
	}
	store.On("FinishMatchIfStarted", mock.Anything, params).Return(true, nil).Once()
	store.On("FinishMatchIfStarted", mock.Anything, params).Return(false, nil).Once()

	// First caller wins the compare-and-set, the second observes it lost.
	won, err := repo.FinishIfStarted(context.Background(), params)
	assert.NoError(t, err)
	assert.True(t, won)

	won, err = repo.FinishIfStarted(context.Background(), params)
	assert.NoError(t, err)
	assert.False(t, won)
	store.AssertExpectations(t)
}

func TestMatchRepository_ListLive(t *testing.T) {
	store := new(mockMatchStore)
	repo := NewMatchRepository(store)

	expect := []db.Match{{ID: uuidFromByte(8), Status: "started"}}
	store.On("ListLiveMatches", mock.Anything, int32(50)).Return(expect, nil)

	got, err := repo.ListLive(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}

func TestMatchRepository_ListByUser(t *testing.T) {
	store := new(mockMatchStore)
	repo := NewMatchRepository(store)

	userID := plainUUIDFromByte(6)
	expect := []db.Match{{ID: uuidFromByte(7), Status: "finished"}}
	store.On("ListMatchesByUser", mock.Anything, uuidFromByte(6), int32(20)).Return(expect, nil)

	got, err := repo.ListByUser(context.Background(), userID, 20)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}
