package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ecoscan/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory scan repository. Scans are held
// newest-first per user; the process lifetime bounds retention.
type MemoryStore struct {
	byID   map[string]*domain.ScanResult
	byUser map[string][]*domain.ScanResult
	mutex  sync.RWMutex
}

// NewMemoryStore creates an empty scan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*domain.ScanResult),
		byUser: make(map[string][]*domain.ScanResult),
	}
}

// AddScan stores a completed scan, prepending it to the owner's history.
func (s *MemoryStore) AddScan(ctx context.Context, scan *domain.ScanResult) error {
	if scan == nil || scan.ID == "" {
		return domain.ErrInvalidRequest
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.byID[scan.ID] = scan
	user := userKey(scan.UserID)
	s.byUser[user] = append([]*domain.ScanResult{scan}, s.byUser[user]...)
	return nil
}

// GetScan retrieves one scan by ID.
func (s *MemoryStore) GetScan(ctx context.Context, scanID string) (*domain.ScanResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scan, exists := s.byID[scanID]
	if !exists {
		return nil, domain.ErrScanNotFound
	}
	return scan, nil
}

// DeleteScan removes one scan from both indexes.
func (s *MemoryStore) DeleteScan(ctx context.Context, scanID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scan, exists := s.byID[scanID]
	if !exists {
		return domain.ErrScanNotFound
	}
	delete(s.byID, scanID)

	user := userKey(scan.UserID)
	history := s.byUser[user]
	for i, entry := range history {
		if entry.ID == scanID {
			s.byUser[user] = append(history[:i], history[i+1:]...)
			break
		}
	}
	return nil
}

// GetHistory returns the user's scans, newest first, capped at limit when
// limit is positive.
func (s *MemoryStore) GetHistory(ctx context.Context, userID string, limit int) ([]*domain.ScanResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	history := s.byUser[userKey(userID)]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}

	out := make([]*domain.ScanResult, len(history))
	copy(out, history)
	return out, nil
}

// GetStats summarizes the user's history: average score, the material seen
// most often, and the improvement trend (recent-half average minus
// older-half average, so positive means improving).
func (s *MemoryStore) GetStats(ctx context.Context, userID string) (*domain.ScanStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	history := s.byUser[userKey(userID)]
	stats := &domain.ScanStats{TotalScans: len(history)}
	if len(history) == 0 {
		return stats, nil
	}

	total := 0
	materialCounts := make(map[string]int)
	for _, scan := range history {
		total += scan.Score
		if material := strings.TrimSpace(scan.Material); material != "" {
			materialCounts[strings.ToLower(material)]++
		}
	}
	stats.AverageScore = total / len(history)
	stats.MostCommonMaterial = mostCommon(materialCounts)

	if len(history) >= 2 {
		half := len(history) / 2
		recent, older := history[:half], history[half:]
		stats.ImprovementTrend = averageScore(recent) - averageScore(older)
	}
	return stats, nil
}

// Size reports the number of stored scans.
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.byID)
}

func userKey(userID string) string {
	if userID == "" {
		return "anon"
	}
	return userID
}

func averageScore(scans []*domain.ScanResult) int {
	if len(scans) == 0 {
		return 0
	}
	total := 0
	for _, scan := range scans {
		total += scan.Score
	}
	return total / len(scans)
}

// mostCommon picks the highest-count material, breaking ties
// alphabetically so the result is deterministic.
func mostCommon(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, key := range keys {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best
}
