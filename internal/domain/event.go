package domain

import "time"

// Event types pushed to group subscribers.
const (
	EventTimerStarted   = "timer_started"
	EventTimerPaused    = "timer_paused"
	EventTimerTick      = "timer_tick"
	EventTimerCompleted = "timer_completed"
	EventTimerReset     = "timer_reset"
	EventTimerDuration  = "timer_duration"
	EventScoreUpdated   = "score_updated"
	EventAwardFailed    = "award_failed"
)

// Event is a group-scoped notification.
type Event struct {
	Type        string        `json:"type"`
	GroupID     string        `json:"group_id"`
	UserID      string        `json:"user_id,omitempty"`
	Timer       *TimerState   `json:"timer,omitempty"`
	Points      int           `json:"points,omitempty"`
	Score       *ScoreRecord  `json:"score,omitempty"`
	Leaderboard []ScoreRecord `json:"leaderboard,omitempty"`
	Error       string        `json:"error,omitempty"`
	At          time.Time     `json:"at"`
}
