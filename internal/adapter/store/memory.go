package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// MemoryStore keeps everything in process memory. It backs local development
// (STORE_BACKEND=memory) and the service tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.User  // id -> user
	groups map[string]*domain.Group // id -> group
	scores map[string]domain.ScoreRecord
	audit  []domain.AuditLog
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*domain.User),
		groups: make(map[string]*domain.Group),
		scores: make(map[string]domain.ScoreRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close implements port.Store.
func (s *MemoryStore) Close() error { return nil }

// --- Users ---

// UpsertUser inserts or updates a user by provider + provider_id.
func (s *MemoryStore) UpsertUser(_ context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, existing := range s.users {
		if existing.Provider == u.Provider && existing.ProviderID == u.ProviderID {
			existing.Email = u.Email
			existing.Name = u.Name
			existing.AvatarURL = u.AvatarURL
			existing.AccessToken = u.AccessToken
			if u.RefreshToken != "" {
				existing.RefreshToken = u.RefreshToken
			}
			existing.TokenExpiry = u.TokenExpiry
			existing.UpdatedAt = now
			out := *existing
			return &out, nil
		}
	}

	user := *u
	user.ID = uuid.NewString()
	if user.Role == "" {
		user.Role = "user"
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = &user
	out := user
	return &out, nil
}

// GetUserByID retrieves a user by ID.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// --- Groups ---

// CreateGroup stores a new group; the ID is assigned when empty.
func (s *MemoryStore) CreateGroup(_ context.Context, g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	s.groups[g.ID] = cloneGroup(g)
	return nil
}

// GetGroup returns a copy of the group.
func (s *MemoryStore) GetGroup(_ context.Context, groupID string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, port.ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

// ListGroupsByMember returns the groups the user belongs to, oldest first.
func (s *MemoryStore) ListGroupsByMember(_ context.Context, userID string) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Group
	for _, g := range s.groups {
		if g.Members[userID] {
			out = append(out, *cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddMember marks the user as a member.
func (s *MemoryStore) AddMember(_ context.Context, groupID, userID string) error {
	return s.updateGroup(groupID, func(g *domain.Group) error {
		g.Members[userID] = true
		return nil
	})
}

// RemoveMember clears the user's membership flag.
func (s *MemoryStore) RemoveMember(_ context.Context, groupID, userID string) error {
	return s.updateGroup(groupID, func(g *domain.Group) error {
		g.Members[userID] = false
		return nil
	})
}

// AddResource appends a resource to the group's list of the given kind.
func (s *MemoryStore) AddResource(_ context.Context, groupID, kind string, res domain.Resource) error {
	return s.updateGroup(groupID, func(g *domain.Group) error {
		switch kind {
		case domain.ResourceKindDocuments:
			g.Resources.Documents = append(g.Resources.Documents, res)
		case domain.ResourceKindFiles:
			g.Resources.Files = append(g.Resources.Files, res)
		default:
			return port.ErrInvalidInput
		}
		return nil
	})
}

// RemoveResource deletes a resource and returns it.
func (s *MemoryStore) RemoveResource(_ context.Context, groupID, kind, resourceID string) (*domain.Resource, error) {
	var removed *domain.Resource
	err := s.updateGroup(groupID, func(g *domain.Group) error {
		list := g.Resources.Of(kind)
		kept := make([]domain.Resource, 0, len(list))
		for _, r := range list {
			if r.ID == resourceID && removed == nil {
				removed = &r
				continue
			}
			kept = append(kept, r)
		}
		if removed == nil {
			return port.ErrResourceNotFound
		}
		setResources(g, kind, kept)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RenameResource updates a resource's display name.
func (s *MemoryStore) RenameResource(_ context.Context, groupID, kind, resourceID, name string) error {
	return s.updateGroup(groupID, func(g *domain.Group) error {
		list := g.Resources.Of(kind)
		for i := range list {
			if list[i].ID == resourceID {
				list[i].Name = name
				return nil
			}
		}
		return port.ErrResourceNotFound
	})
}

func (s *MemoryStore) updateGroup(groupID string, fn func(g *domain.Group) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return port.ErrGroupNotFound
	}
	if g.Members == nil {
		g.Members = make(map[string]bool)
	}
	if err := fn(g); err != nil {
		return err
	}
	g.UpdatedAt = s.now()
	return nil
}

func setResources(g *domain.Group, kind string, list []domain.Resource) {
	if kind == domain.ResourceKindDocuments {
		g.Resources.Documents = list
	} else {
		g.Resources.Files = list
	}
}

func cloneGroup(g *domain.Group) *domain.Group {
	out := *g
	out.Members = make(map[string]bool, len(g.Members))
	for k, v := range g.Members {
		out.Members[k] = v
	}
	out.Resources.Documents = append([]domain.Resource(nil), g.Resources.Documents...)
	out.Resources.Files = append([]domain.Resource(nil), g.Resources.Files...)
	return &out
}

// --- Scores ---

// GetScore returns the stored score or port.ErrScoreNotFound.
func (s *MemoryStore) GetScore(ctx context.Context, groupID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.scores[domain.ScoreKey(groupID, userID)]
	if !ok {
		return 0, port.ErrScoreNotFound
	}
	return rec.Score, nil
}

// UpsertScore merge-writes the record; empty name/email keep the stored values.
func (s *MemoryStore) UpsertScore(ctx context.Context, rec domain.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[rec.Key()] = mergeScore(s.scores[rec.Key()], rec)
	return nil
}

// IncrementScore implements port.AtomicScoreStore.
func (s *MemoryStore) IncrementScore(ctx context.Context, rec domain.ScoreRecord, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.scores[rec.Key()]
	rec.Score = prev.Score + delta
	s.scores[rec.Key()] = mergeScore(prev, rec)
	return rec.Score, nil
}

// ListScores returns the group's scores sorted by score descending.
func (s *MemoryStore) ListScores(ctx context.Context, groupID string) ([]domain.ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScoreRecord
	for _, rec := range s.scores {
		if rec.GroupID == groupID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func mergeScore(prev, rec domain.ScoreRecord) domain.ScoreRecord {
	if rec.UserName == "" {
		rec.UserName = prev.UserName
	}
	if rec.UserEmail == "" {
		rec.UserEmail = prev.UserEmail
	}
	return rec
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *MemoryStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, domain.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  s.now(),
	})
	return nil
}

// ListAuditLogs returns recent audit logs, newest first.
func (s *MemoryStore) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		if action != "" && s.audit[i].Action != action {
			continue
		}
		out = append(out, s.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
