package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrUserNotFound     = errors.New("user not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrAlreadyMember    = errors.New("already a member")
	ErrNotMember        = errors.New("not a member of this group")
	ErrResourceNotFound = errors.New("resource not found")
	ErrScoreNotFound    = errors.New("score not found")
	ErrInvalidDuration  = errors.New("duration must be greater than zero")
	ErrTimerRunning     = errors.New("timer is running")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoDriveToken     = errors.New("no valid Google access token, please authenticate with Google")
	ErrUnknownProvider  = errors.New("unknown auth provider")
)
