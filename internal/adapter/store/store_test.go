package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// backend is the full surface every store implementation provides.
type backend interface {
	port.Store
	port.AtomicScoreStore
}

// runStoreSuite exercises the behaviour shared by all backends.
func runStoreSuite(t *testing.T, s backend) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		providerID := uuid.NewString()
		created, err := s.UpsertUser(ctx, &domain.User{
			Email: "ana@example.com", Name: "Ana", Provider: "google", ProviderID: providerID,
			AccessToken: "at-1", RefreshToken: "rt-1", TokenExpiry: time.Now().Add(time.Hour).UTC(),
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, "user", created.Role)

		updated, err := s.UpsertUser(ctx, &domain.User{
			Email: "ana@example.com", Name: "Ana B", Provider: "google", ProviderID: providerID,
			AccessToken: "at-2",
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)

		got, err := s.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana B", got.Name)
		assert.Equal(t, "at-2", got.AccessToken)
		assert.Equal(t, "rt-1", got.RefreshToken, "empty refresh token keeps the stored one")

		_, err = s.GetUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, port.ErrUserNotFound)
	})

	t.Run("groups", func(t *testing.T) {
		alice, bob := uuid.NewString(), uuid.NewString()
		now := time.Now().UTC()
		g := &domain.Group{
			Name: "Study", CreatedBy: alice, Members: map[string]bool{alice: true},
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.CreateGroup(ctx, g))
		require.NotEmpty(t, g.ID)

		got, err := s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "Study", got.Name)
		assert.True(t, got.IsMember(alice))
		assert.False(t, got.IsMember(bob))

		require.NoError(t, s.AddMember(ctx, g.ID, bob))
		groups, err := s.ListGroupsByMember(ctx, bob)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, g.ID, groups[0].ID)

		require.NoError(t, s.RemoveMember(ctx, g.ID, alice))
		got, err = s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.False(t, got.IsMember(alice))
		assert.True(t, got.IsMember(bob))

		groups, err = s.ListGroupsByMember(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, groups)

		missing := uuid.NewString()
		_, err = s.GetGroup(ctx, missing)
		assert.ErrorIs(t, err, port.ErrGroupNotFound)
		assert.ErrorIs(t, s.AddMember(ctx, missing, bob), port.ErrGroupNotFound)
	})

	t.Run("resources", func(t *testing.T) {
		owner := uuid.NewString()
		g := &domain.Group{Name: "Docs", CreatedBy: owner, Members: map[string]bool{owner: true}}
		require.NoError(t, s.CreateGroup(ctx, g))

		doc := domain.Resource{ID: "doc-1", Name: "Notes", URL: "https://docs/1", Type: domain.ResourceTypeGoogleDoc, CreatedBy: owner}
		file := domain.Resource{ID: "file-1", Name: "slides.pdf", MimeType: "application/pdf", Size: 42, CreatedBy: owner}
		require.NoError(t, s.AddResource(ctx, g.ID, domain.ResourceKindDocuments, doc))
		require.NoError(t, s.AddResource(ctx, g.ID, domain.ResourceKindFiles, file))

		require.NoError(t, s.RenameResource(ctx, g.ID, domain.ResourceKindDocuments, "doc-1", "Lecture notes"))
		assert.ErrorIs(t, s.RenameResource(ctx, g.ID, domain.ResourceKindFiles, "doc-1", "x"), port.ErrResourceNotFound)

		got, err := s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, got.Resources.Documents, 1)
		require.Len(t, got.Resources.Files, 1)
		assert.Equal(t, "Lecture notes", got.Resources.Documents[0].Name)
		assert.Equal(t, int64(42), got.Resources.Files[0].Size)

		removed, err := s.RemoveResource(ctx, g.ID, domain.ResourceKindFiles, "file-1")
		require.NoError(t, err)
		assert.Equal(t, "slides.pdf", removed.Name)

		_, err = s.RemoveResource(ctx, g.ID, domain.ResourceKindFiles, "file-1")
		assert.ErrorIs(t, err, port.ErrResourceNotFound)

		got, err = s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Resources.Files)
		assert.Len(t, got.Resources.Documents, 1)
	})

	t.Run("scores", func(t *testing.T) {
		group := uuid.NewString()
		u1, u2 := "user-a", "user-b"

		_, err := s.GetScore(ctx, group, u1)
		assert.ErrorIs(t, err, port.ErrScoreNotFound)

		now := time.Now().UTC()
		require.NoError(t, s.UpsertScore(ctx, domain.ScoreRecord{
			GroupID: group, UserID: u1, UserName: "Ana", UserEmail: "ana@example.com", Score: 25, LastUpdated: now,
		}))
		score, err := s.GetScore(ctx, group, u1)
		require.NoError(t, err)
		assert.Equal(t, 25, score)

		// A merge write without a name keeps the stored one.
		require.NoError(t, s.UpsertScore(ctx, domain.ScoreRecord{GroupID: group, UserID: u1, Score: 30, LastUpdated: now}))

		total, err := s.IncrementScore(ctx, domain.ScoreRecord{GroupID: group, UserID: u2, UserName: "Ben", LastUpdated: now}, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		total, err = s.IncrementScore(ctx, domain.ScoreRecord{GroupID: group, UserID: u2, LastUpdated: now}, 40)
		require.NoError(t, err)
		assert.Equal(t, 45, total)

		list, err := s.ListScores(ctx, group)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, u2, list[0].UserID)
		assert.Equal(t, 45, list[0].Score)
		assert.Equal(t, "Ben", list[0].UserName)
		assert.Equal(t, u1, list[1].UserID)
		assert.Equal(t, 30, list[1].Score)
		assert.Equal(t, "Ana", list[1].UserName)

		other, err := s.ListScores(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("audit", func(t *testing.T) {
		user := uuid.NewString()
		require.NoError(t, s.WriteAudit(user, domain.AuditActionLogin, "auth", "", `{}`, "127.0.0.1", "test"))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, s.WriteAudit(user, domain.AuditActionGroupCreate, "group", "g1", `{}`, "127.0.0.1", "test"))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, s.WriteAudit(user, domain.AuditActionGroupJoin, "group", "g1", `{}`, "127.0.0.1", "test"))

		logs, err := s.ListAuditLogs(ctx, 2, "")
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, domain.AuditActionGroupJoin, logs[0].Action)
		assert.Equal(t, domain.AuditActionGroupCreate, logs[1].Action)

		logs, err = s.ListAuditLogs(ctx, 0, domain.AuditActionLogin)
		require.NoError(t, err)
		require.NotEmpty(t, logs)
		for _, l := range logs {
			assert.Equal(t, domain.AuditActionLogin, l.Action)
		}
	})
}
