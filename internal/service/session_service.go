package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/pomodoro"
	"github.com/arturoeanton/cirkle/internal/port"
)

// SessionConfig configures the pomodoro sessions.
type SessionConfig struct {
	DefaultSeconds int
	Tick           time.Duration
	Scheduler      pomodoro.Scheduler // nil uses pomodoro.TickerScheduler
	Audit          middleware.AuditWriter

	// IdleTimeout closes sessions that are not running and saw no activity
	// for this long. Zero keeps them until they are ended.
	IdleTimeout time.Duration
	Now         func() time.Time
}

type session struct {
	engine *pomodoro.Engine

	mu       sync.Mutex
	user     domain.UserContext // latest identity, used for the score record
	lastSeen time.Time
}

func (s *session) setUser(u domain.UserContext, now time.Time) {
	s.mu.Lock()
	s.user = u
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *session) currentUser() domain.UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SessionService owns one pomodoro engine per (group, user) and routes
// completed sessions into the score store, the leaderboard and the group's
// event stream.
type SessionService struct {
	groups *GroupService
	scores *ScoreService
	board  *LeaderboardService
	events port.EventPublisher
	cfg    SessionConfig

	mu        sync.Mutex
	sessions  map[string]*session
	stopSweep func()
}

// NewSessionService creates a session service.
func NewSessionService(groups *GroupService, scores *ScoreService, board *LeaderboardService,
	events port.EventPublisher, cfg SessionConfig) *SessionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &SessionService{
		groups:   groups,
		scores:   scores,
		board:    board,
		events:   events,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
	if cfg.IdleTimeout > 0 {
		s.stopSweep = pomodoro.TickerScheduler{}.Every(min(cfg.IdleTimeout, time.Minute), func() { s.EvictIdle() })
	}
	return s
}

func sessionKey(groupID, userID string) string {
	return groupID + "_" + userID
}

// engine returns the caller's engine for the group, creating it on first use.
func (s *SessionService) engine(ctx context.Context, groupID string, user domain.UserContext) (*pomodoro.Engine, error) {
	if _, err := s.groups.RequireMember(ctx, groupID, user.UserID); err != nil {
		return nil, err
	}

	key := sessionKey(groupID, user.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	if sess, ok := s.sessions[key]; ok {
		sess.setUser(user, now)
		return sess.engine, nil
	}

	sess := &session{user: user, lastSeen: now}
	engine, err := pomodoro.New(pomodoro.Config{
		Duration:  s.cfg.DefaultSeconds,
		Interval:  s.cfg.Tick,
		Scheduler: s.cfg.Scheduler,
		Award: func(ctx context.Context, points int) (domain.ScoreRecord, error) {
			return s.scores.Award(ctx, groupID, sess.currentUser(), points)
		},
		OnEvent: func(evt pomodoro.Event) {
			sess.touch(s.cfg.Now())
			s.handleEvent(groupID, sess.currentUser().UserID, evt)
		},
	})
	if err != nil {
		return nil, err
	}
	sess.engine = engine
	s.sessions[key] = sess

	slog.Debug("pomodoro session opened", "group_id", groupID, "user_id", user.UserID)
	return engine, nil
}

func (s *SessionService) handleEvent(groupID, userID string, evt pomodoro.Event) {
	state := evt.State
	s.publish(domain.Event{
		Type:    evt.Kind,
		GroupID: groupID,
		UserID:  userID,
		Timer:   &state,
		Points:  evt.Points,
		Score:   evt.Score,
	})

	if evt.Kind != domain.EventTimerCompleted {
		return
	}
	if errors.Is(evt.Err, pomodoro.ErrAwardDiscarded) {
		slog.Info("pomodoro award discarded", "group_id", groupID, "user_id", userID, "points", evt.Points)
		return
	}
	if evt.Err != nil {
		slog.Error("pomodoro award failed", "group_id", groupID, "user_id", userID, "points", evt.Points, "error", evt.Err)
		s.publish(domain.Event{
			Type:    domain.EventAwardFailed,
			GroupID: groupID,
			UserID:  userID,
			Points:  evt.Points,
			Error:   evt.Err.Error(),
		})
		return
	}
	if evt.Score == nil {
		return
	}
	s.auditAward(groupID, userID, evt.Points, evt.Score.Score)

	board, err := s.board.Apply(context.Background(), *evt.Score)
	if err != nil {
		slog.Warn("leaderboard refresh failed", "group_id", groupID, "error", err)
		return
	}
	s.publish(domain.Event{
		Type:        domain.EventScoreUpdated,
		GroupID:     groupID,
		UserID:      userID,
		Score:       evt.Score,
		Leaderboard: board,
	})
}

func (s *SessionService) auditAward(groupID, userID string, points, score int) {
	if s.cfg.Audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]int{"points": points, "score": score})
	if err := s.cfg.Audit.WriteAudit(userID, domain.AuditActionAward, "group", groupID, string(details), "", ""); err != nil {
		slog.Warn("failed to write award audit", "group_id", groupID, "error", err)
	}
}

func (s *SessionService) publish(evt domain.Event) {
	if s.events == nil {
		return
	}
	evt.At = time.Now().UTC()
	s.events.Publish(evt)
}

// State returns the caller's timer in the group.
func (s *SessionService) State(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error) {
	e, err := s.engine(ctx, groupID, user)
	if err != nil {
		return domain.TimerState{}, err
	}
	return e.State(), nil
}

// Start starts or resumes the countdown.
func (s *SessionService) Start(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error) {
	return s.apply(ctx, groupID, user, (*pomodoro.Engine).Start)
}

// Pause pauses the countdown.
func (s *SessionService) Pause(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error) {
	return s.apply(ctx, groupID, user, (*pomodoro.Engine).Pause)
}

// Toggle starts an idle countdown or pauses a running one.
func (s *SessionService) Toggle(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error) {
	return s.apply(ctx, groupID, user, (*pomodoro.Engine).Toggle)
}

// Reset stops the countdown and restores the full duration.
func (s *SessionService) Reset(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error) {
	return s.apply(ctx, groupID, user, (*pomodoro.Engine).Reset)
}

// SetDuration changes the session length of an idle timer.
func (s *SessionService) SetDuration(ctx context.Context, groupID string, user domain.UserContext, seconds int) (domain.TimerState, error) {
	return s.apply(ctx, groupID, user, func(e *pomodoro.Engine) error { return e.SetDuration(seconds) })
}

func (s *SessionService) apply(ctx context.Context, groupID string, user domain.UserContext, op func(*pomodoro.Engine) error) (domain.TimerState, error) {
	e, err := s.engine(ctx, groupID, user)
	if err != nil {
		return domain.TimerState{}, err
	}
	if err := op(e); err != nil {
		return e.State(), err
	}
	return e.State(), nil
}

// End closes the caller's session. It reports whether a session existed.
func (s *SessionService) End(groupID, userID string) bool {
	key := sessionKey(groupID, userID)
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if ok {
		sess.engine.Close()
		slog.Debug("pomodoro session closed", "group_id", groupID, "user_id", userID)
	}
	return ok
}

// Leave removes the user from the group and ends their session. The group's
// cached leaderboard is dropped once nobody is left to read it.
func (s *SessionService) Leave(ctx context.Context, groupID, userID string) error {
	if err := s.groups.Leave(ctx, groupID, userID); err != nil {
		return err
	}
	s.End(groupID, userID)

	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		slog.Warn("group reload after leave failed", "group_id", groupID, "error", err)
		return nil
	}
	if g.MemberCount() == 0 {
		s.board.Forget(groupID)
	}
	return nil
}

// EvictIdle closes the sessions that are not running and were idle for at
// least the configured timeout. It returns how many were closed.
func (s *SessionService) EvictIdle() int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := s.cfg.Now().Add(-s.cfg.IdleTimeout)

	var idle []*session
	s.mu.Lock()
	for key, sess := range s.sessions {
		if sess.engine.State().Running || sess.idleSince().After(cutoff) {
			continue
		}
		delete(s.sessions, key)
		idle = append(idle, sess)
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.engine.Close()
	}
	if len(idle) > 0 {
		slog.Debug("idle pomodoro sessions closed", "count", len(idle))
	}
	return len(idle)
}

// Close ends every session.
func (s *SessionService) Close() {
	if s.stopSweep != nil {
		s.stopSweep()
	}
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.engine.Close()
	}
}
