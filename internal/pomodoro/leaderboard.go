package pomodoro

import (
	"sort"

	"github.com/arturoeanton/cirkle/internal/domain"
)

// Merge returns a new leaderboard with updated replacing the entry of the same
// user (or appended when absent), sorted by score descending. Equal scores keep
// their prior relative order. entries is not modified.
func Merge(entries []domain.ScoreRecord, updated domain.ScoreRecord) []domain.ScoreRecord {
	out := make([]domain.ScoreRecord, 0, len(entries)+1)
	replaced := false
	for _, e := range entries {
		if e.UserID == updated.UserID {
			out = append(out, updated)
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, updated)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
