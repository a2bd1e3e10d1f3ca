package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/pomodoro"
	"github.com/arturoeanton/cirkle/internal/port"
)

// LeaderboardService keeps one sorted score list per group. The store is the
// source of truth; the cache only ever absorbs server-confirmed records.
type LeaderboardService struct {
	store port.ScoreStore

	mu    sync.Mutex
	cache map[string][]domain.ScoreRecord
}

// NewLeaderboardService creates a leaderboard service.
func NewLeaderboardService(store port.ScoreStore) *LeaderboardService {
	return &LeaderboardService{store: store, cache: make(map[string][]domain.ScoreRecord)}
}

// Get reloads the group's leaderboard from the store.
func (s *LeaderboardService) Get(ctx context.Context, groupID string) ([]domain.ScoreRecord, error) {
	list, err := s.store.ListScores(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	if list == nil {
		list = []domain.ScoreRecord{}
	}

	s.mu.Lock()
	s.cache[groupID] = list
	s.mu.Unlock()

	return append([]domain.ScoreRecord(nil), list...), nil
}

// Apply merges a confirmed record into the cached list and returns the result.
// A group that was never loaded is fetched first. The read, merge and write
// of the cache happen under one lock so concurrent completions never drop
// each other's records.
func (s *LeaderboardService) Apply(ctx context.Context, rec domain.ScoreRecord) ([]domain.ScoreRecord, error) {
	s.mu.Lock()
	_, ok := s.cache[rec.GroupID]
	s.mu.Unlock()

	var fetched []domain.ScoreRecord
	if !ok {
		list, err := s.store.ListScores(ctx, rec.GroupID)
		if err != nil {
			return nil, fmt.Errorf("list scores: %w", err)
		}
		fetched = list
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[rec.GroupID]
	if !ok {
		cached = fetched
	}
	merged := pomodoro.Merge(cached, rec)
	s.cache[rec.GroupID] = merged

	return append([]domain.ScoreRecord(nil), merged...), nil
}

// Forget drops the cached list of a group, e.g. once its last member left.
func (s *LeaderboardService) Forget(groupID string) {
	s.mu.Lock()
	delete(s.cache, groupID)
	s.mu.Unlock()
}
