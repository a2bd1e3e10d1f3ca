package domain

// TimerState is the countdown state of a single pomodoro session.
type TimerState struct {
	RemainingSeconds          int  `json:"remaining_seconds"`
	Running                   bool `json:"running"`
	ConfiguredDurationSeconds int  `json:"configured_duration_seconds"`
}
