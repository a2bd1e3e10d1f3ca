package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/internal/service"
)

func TestGroupService_Create(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGroupService(store.NewMemoryStore())

	g, err := svc.Create(ctx, "  CMPT 276  ", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "CMPT 276", g.Name)
	assert.Equal(t, "alice", g.CreatedBy)
	assert.True(t, g.IsMember("alice"))
	assert.Equal(t, g.ID, svc.InviteCode(g.ID))

	for _, name := range []string{"", "   ", strings.Repeat("x", service.MaxNameLength+1)} {
		_, err := svc.Create(ctx, name, "alice")
		assert.ErrorIs(t, err, port.ErrInvalidInput, "name %q", name)
	}
}

func TestGroupService_Membership(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGroupService(store.NewMemoryStore())
	g, err := svc.Create(ctx, "Study", "alice")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "missing", "bob")
	assert.ErrorIs(t, err, port.ErrGroupNotFound)

	joined, err := svc.Join(ctx, g.ID, "bob")
	require.NoError(t, err)
	assert.True(t, joined.IsMember("bob"))

	_, err = svc.Join(ctx, g.ID, "bob")
	assert.ErrorIs(t, err, port.ErrAlreadyMember)

	groups, err := svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, groups, 1)

	_, err = svc.RequireMember(ctx, g.ID, "carol")
	assert.ErrorIs(t, err, port.ErrNotMember)
	assert.ErrorIs(t, svc.Leave(ctx, g.ID, "carol"), port.ErrNotMember)

	require.NoError(t, svc.Leave(ctx, g.ID, "bob"))
	groups, err = svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)

	// Rejoining after leaving is allowed.
	_, err = svc.Join(ctx, g.ID, "bob")
	require.NoError(t, err)
}

func TestGroupService_RenameResource(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := service.NewGroupService(s)
	g, err := svc.Create(ctx, "Study", "alice")
	require.NoError(t, err)
	require.NoError(t, s.AddResource(ctx, g.ID, domain.ResourceKindDocuments, domain.Resource{ID: "d1", Name: "Old"}))

	assert.ErrorIs(t, svc.RenameResource(ctx, g.ID, "alice", "videos", "d1", "New"), port.ErrInvalidInput)
	assert.ErrorIs(t, svc.RenameResource(ctx, g.ID, "alice", domain.ResourceKindDocuments, "d1", " "), port.ErrInvalidInput)
	assert.ErrorIs(t, svc.RenameResource(ctx, g.ID, "bob", domain.ResourceKindDocuments, "d1", "New"), port.ErrNotMember)
	assert.ErrorIs(t, svc.RenameResource(ctx, g.ID, "alice", domain.ResourceKindDocuments, "nope", "New"), port.ErrResourceNotFound)

	require.NoError(t, svc.RenameResource(ctx, g.ID, "alice", domain.ResourceKindDocuments, "d1", " New "))
	got, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Resources.Documents[0].Name)
}
