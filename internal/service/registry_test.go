package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
	"github.com/cellarclub/cellar-server/internal/store"
)

func TestRegisterCreatesUnassignedTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tag, created, err := env.registry.Register(ctx, "04:a1:b2:c3:d4:e5:f6", "Box 1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "04A1B2C3D4E5F6", tag.NfcUID)
	assert.Equal(t, "Box 1", tag.Label)
	assert.Equal(t, domain.TagStatusUnassigned, tag.Status)
	assert.Nil(t, tag.RegisteredToUserID)
}

func TestRegisterIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, created, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "Box 1")
	require.NoError(t, err)
	require.True(t, created)

	// Same UID in a different raw form resolves to the same tag.
	second, created, err := env.registry.Register(ctx, "04:a1:b2:c3:d4:e5:f6", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Box 1", second.Label, "empty label leaves the existing one")

	tags, err := env.registry.List(ctx, store.TagFilter{})
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestRegisterExistingUpdatesLabelOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "Box 1")
	require.NoError(t, err)

	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	// Re-registering touches the label, never the ownership.
	updated, created, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "Box 2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Box 2", updated.Label)

	got, err := env.registry.Get(ctx, tag.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RegisteredToUserID)
	assert.Equal(t, alice.ID, *got.RegisteredToUserID)
	assert.Equal(t, "Box 2", got.Label)
}

func TestRegisterMalformedUID(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.registry.Register(context.Background(), "not hex at all", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestGetUnknownTag(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Get(context.Background(), "tag-missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.List(context.Background(), store.TagFilter{Status: "retired"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
