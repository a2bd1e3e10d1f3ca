package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// MaxNameLength bounds group and resource names.
const MaxNameLength = 100

// GroupService manages groups and their membership.
type GroupService struct {
	store port.GroupStore
	now   func() time.Time
}

// NewGroupService creates a new group service.
func NewGroupService(store port.GroupStore) *GroupService {
	return &GroupService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", port.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", port.ErrInvalidInput, MaxNameLength)
	}
	return name, nil
}

// Create stores a new group with the creator as its first member.
func (s *GroupService) Create(ctx context.Context, name, creatorID string) (*domain.Group, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	g := &domain.Group{
		Name:      name,
		CreatedBy: creatorID,
		Members:   map[string]bool{creatorID: true},
		Resources: domain.Resources{Documents: []domain.Resource{}, Files: []domain.Resource{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	slog.Info("group created", "group_id", g.ID, "user_id", creatorID)
	return g, nil
}

// Get returns the group or port.ErrGroupNotFound.
func (s *GroupService) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// ListForUser returns the groups the user currently belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	groups, err := s.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	return groups, nil
}

// Join adds the user to the group.
func (s *GroupService) Join(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.IsMember(userID) {
		return nil, port.ErrAlreadyMember
	}
	if err := s.store.AddMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("join group: %w", err)
	}
	g.Members[userID] = true

	slog.Info("group joined", "group_id", groupID, "user_id", userID)
	return g, nil
}

// Leave removes the user from the group.
func (s *GroupService) Leave(ctx context.Context, groupID, userID string) error {
	if _, err := s.RequireMember(ctx, groupID, userID); err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	slog.Info("group left", "group_id", groupID, "user_id", userID)
	return nil
}

// InviteCode returns the code other users join with. It is the group id.
func (s *GroupService) InviteCode(groupID string) string {
	return groupID
}

// RequireMember loads the group and checks the user belongs to it.
func (s *GroupService) RequireMember(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.IsMember(userID) {
		return nil, port.ErrNotMember
	}
	return g, nil
}

// RenameResource changes the display name of a group resource.
func (s *GroupService) RenameResource(ctx context.Context, groupID, userID, kind, resourceID, name string) error {
	if !domain.ValidResourceKind(kind) {
		return fmt.Errorf("%w: unknown resource kind %q", port.ErrInvalidInput, kind)
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, err := s.RequireMember(ctx, groupID, userID); err != nil {
		return err
	}
	return s.store.RenameResource(ctx, groupID, kind, resourceID, name)
}
