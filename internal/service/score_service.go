package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// ScoreService accrues pomodoro points into the per-group leaderboard.
type ScoreService struct {
	store  port.ScoreStore
	atomic port.AtomicScoreStore // nil unless atomic increments are enabled
	now    func() time.Time
}

// NewScoreService creates a score service. With atomic set and a store that
// supports it, awards use a single increment instead of read-modify-write.
func NewScoreService(store port.ScoreStore, atomic bool) *ScoreService {
	s := &ScoreService{store: store, now: func() time.Time { return time.Now().UTC() }}
	if atomic {
		if as, ok := store.(port.AtomicScoreStore); ok {
			s.atomic = as
		} else {
			slog.Warn("score store has no atomic increment, falling back to read-modify-write")
		}
	}
	return s
}

// Award adds points to the user's score in the group and returns the
// confirmed record. A missing record counts as zero; any other read error
// aborts the award, and so does a cancelled ctx: nothing is written once the
// caller has given up. Write errors are returned as-is, with no retry.
func (s *ScoreService) Award(ctx context.Context, groupID string, user domain.UserContext, points int) (domain.ScoreRecord, error) {
	if points < 0 {
		return domain.ScoreRecord{}, fmt.Errorf("%w: points must not be negative", port.ErrInvalidInput)
	}

	rec := domain.ScoreRecord{
		GroupID:     groupID,
		UserID:      user.UserID,
		UserName:    user.Name,
		UserEmail:   user.Email,
		LastUpdated: s.now(),
	}

	if s.atomic != nil {
		if err := ctx.Err(); err != nil {
			return domain.ScoreRecord{}, err
		}
		total, err := s.atomic.IncrementScore(ctx, rec, points)
		if err != nil {
			return domain.ScoreRecord{}, fmt.Errorf("increment score: %w", err)
		}
		rec.Score = total
		slog.Info("points awarded", "group_id", groupID, "user_id", user.UserID, "points", points, "score", total)
		return rec, nil
	}

	current, err := s.store.GetScore(ctx, groupID, user.UserID)
	switch {
	case errors.Is(err, port.ErrScoreNotFound):
		current = 0
	case err != nil:
		return domain.ScoreRecord{}, fmt.Errorf("read score: %w", err)
	}

	// A reset or close may have cancelled the award during the read.
	if err := ctx.Err(); err != nil {
		return domain.ScoreRecord{}, err
	}

	rec.Score = current + points
	if err := s.store.UpsertScore(ctx, rec); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("write score: %w", err)
	}

	slog.Info("points awarded", "group_id", groupID, "user_id", user.UserID, "points", points, "score", rec.Score)
	return rec, nil
}
