package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoscan/backend/internal/domain"
)

func newScan(id, userID, material string, score int) *domain.ScanResult {
	return &domain.ScanResult{
		ID:        id,
		Timestamp: time.Now(),
		UserID:    userID,
		Material:  material,
		Score:     score,
		Grade:     "C",
	}
}

func TestMemoryStoreAddAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	scan := newScan("scan_1", "user-1", "100% Cotton", 47)
	require.NoError(t, s.AddScan(ctx, scan))

	got, err := s.GetScan(ctx, "scan_1")
	require.NoError(t, err)
	assert.Equal(t, scan, got)
	assert.Equal(t, 1, s.Size())
}

func TestMemoryStoreGetScanMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetScan(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestMemoryStoreRejectsInvalidScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.AddScan(ctx, nil), domain.ErrInvalidRequest)
	assert.ErrorIs(t, s.AddScan(ctx, &domain.ScanResult{}), domain.ErrInvalidRequest)
}

func TestMemoryStoreDeleteScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AddScan(ctx, newScan("scan_1", "user-1", "wool", 30)))
	require.NoError(t, s.AddScan(ctx, newScan("scan_2", "user-1", "hemp", 90)))

	require.NoError(t, s.DeleteScan(ctx, "scan_1"))

	_, err := s.GetScan(ctx, "scan_1")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)

	history, err := s.GetHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "scan_2", history[0].ID)

	assert.ErrorIs(t, s.DeleteScan(ctx, "scan_1"), domain.ErrScanNotFound)
}

func TestMemoryStoreHistoryNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		scan := newScan(fmt.Sprintf("scan_%d", i), "user-1", "cotton", i*10)
		require.NoError(t, s.AddScan(ctx, scan))
	}

	history, err := s.GetHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "scan_5", history[0].ID)
	assert.Equal(t, "scan_1", history[4].ID)

	limited, err := s.GetHistory(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "scan_5", limited[0].ID)
	assert.Equal(t, "scan_4", limited[1].ID)
}

func TestMemoryStoreHistoryIsolatedPerUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AddScan(ctx, newScan("scan_1", "user-1", "cotton", 50)))
	require.NoError(t, s.AddScan(ctx, newScan("scan_2", "user-2", "wool", 60)))
	require.NoError(t, s.AddScan(ctx, newScan("scan_3", "", "hemp", 70)))

	history, err := s.GetHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "scan_1", history[0].ID)

	anon, err := s.GetHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "scan_3", anon[0].ID)
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	stats, err := s.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalScans)
	assert.Empty(t, stats.MostCommonMaterial)

	// Oldest to newest: 40, 40, 60, 80. Recent half averages 70,
	// older half averages 40, so the trend is +30.
	scores := []int{40, 40, 60, 80}
	materials := []string{"wool", "Cotton", "cotton", "hemp"}
	for i := range scores {
		scan := newScan(fmt.Sprintf("scan_%d", i), "user-1", materials[i], scores[i])
		require.NoError(t, s.AddScan(ctx, scan))
	}

	stats, err = s.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalScans)
	assert.Equal(t, 55, stats.AverageScore)
	assert.Equal(t, "cotton", stats.MostCommonMaterial)
	assert.Equal(t, 30, stats.ImprovementTrend)
}

func TestMemoryStoreStatsSingleScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AddScan(ctx, newScan("scan_1", "user-1", "linen", 80)))

	stats, err := s.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalScans)
	assert.Equal(t, 80, stats.AverageScore)
	assert.Equal(t, "linen", stats.MostCommonMaterial)
	assert.Equal(t, 0, stats.ImprovementTrend)
}
