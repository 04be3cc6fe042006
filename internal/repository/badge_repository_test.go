package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/badge-engine/internal/models"
)

const testBadge = models.BadgeType("consistent_professional")

func TestActivateCreatesRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, testBadge))

	records, err := repo.Query(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testBadge, records[0].BadgeType)
	assert.True(t, records[0].IsActive)
	assert.False(t, records[0].EarnedAt.IsZero())
}

func TestEarnedAtNeverMoves(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, testBadge))
	records, err := repo.Query(1)
	require.NoError(t, err)
	firstEarned := records[0].EarnedAt

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Deactivate(1, testBadge))
	require.NoError(t, repo.Activate(1, testBadge))

	records, err = repo.Query(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsActive)
	assert.True(t, records[0].EarnedAt.Equal(firstEarned))
	assert.True(t, records[0].LastEvaluatedAt.After(firstEarned))
}

func TestDeactivateKeepsHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, testBadge))
	require.NoError(t, repo.Deactivate(1, testBadge))

	records, err := repo.Query(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsActive)
}

func TestDeactivateAbsentRecordIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	// Never qualified: nothing to deactivate, no record created.
	require.NoError(t, repo.Deactivate(1, testBadge))

	records, err := repo.Query(1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryOrdersByEarnedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, models.BadgeType("first_consultation")))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Activate(1, testBadge))

	records, err := repo.Query(1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, testBadge, records[0].BadgeType)
}

func TestCountActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, testBadge))
	require.NoError(t, repo.Activate(1, models.BadgeType("first_consultation")))
	require.NoError(t, repo.Deactivate(1, testBadge))

	count, err := repo.CountActive(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHolderCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	require.NoError(t, repo.Activate(1, testBadge))
	require.NoError(t, repo.Activate(2, testBadge))
	require.NoError(t, repo.Activate(3, testBadge))
	require.NoError(t, repo.Deactivate(3, testBadge))

	count, err := repo.HolderCount(testBadge)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
