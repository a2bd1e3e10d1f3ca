package port

import (
	"context"

	"github.com/arturoeanton/cirkle/internal/domain"
)

// ScoreStore persists one numeric score per (group, user).
type ScoreStore interface {
	// GetScore returns the current score or ErrScoreNotFound.
	GetScore(ctx context.Context, groupID, userID string) (int, error)

	// UpsertScore merge-writes the record under its composite key.
	UpsertScore(ctx context.Context, rec domain.ScoreRecord) error

	// ListScores returns the group's records sorted by score descending.
	ListScores(ctx context.Context, groupID string) ([]domain.ScoreRecord, error)
}

// AtomicScoreStore is implemented by stores able to add to a score without
// a separate read, so concurrent awards cannot lose an increment.
type AtomicScoreStore interface {
	ScoreStore

	// IncrementScore adds delta to the record's score, creating it when absent,
	// and returns the new total.
	IncrementScore(ctx context.Context, rec domain.ScoreRecord, delta int) (int, error)
}

// GroupStore persists groups, their members and their resources.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *domain.Group) error
	// GetGroup returns the group or ErrGroupNotFound.
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]domain.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	AddResource(ctx context.Context, groupID, kind string, res domain.Resource) error
	// RemoveResource deletes the resource and returns it, or ErrResourceNotFound.
	RemoveResource(ctx context.Context, groupID, kind, resourceID string) (*domain.Resource, error)
	RenameResource(ctx context.Context, groupID, kind, resourceID, name string) error
}

// UserStore persists user profiles and their OAuth tokens.
type UserStore interface {
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AuditStore persists and lists audit logs.
type AuditStore interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// Store bundles every persistence concern a backend provides.
type Store interface {
	ScoreStore
	GroupStore
	UserStore
	AuditStore
	Close() error
}
