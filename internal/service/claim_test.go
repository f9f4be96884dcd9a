package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
)

func TestLookupUnknownUID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.claims.Lookup(context.Background(), "04DEADBEEF", "user-any")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestLookupMalformedUID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.claims.Lookup(context.Background(), "!!!", "user-any")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestLookupStatesAcrossLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	item := env.inventory(t, alice.ID, "Margaux 2015")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)

	res, err := env.claims.Lookup(ctx, "04A1B2C3D4E5F6", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateUnassigned, res.State)

	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	res, err = env.claims.Lookup(ctx, "04A1B2C3D4E5F6", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateMineUnlinked, res.State)
	assert.Nil(t, res.Inventory)

	// Bob scanning Alice's bottle sees owned_by_other and nothing more.
	res, err = env.claims.Lookup(ctx, "04A1B2C3D4E5F6", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateOwnedByOther, res.State)
	assert.Nil(t, res.Inventory)

	_, err = env.claims.Assign(ctx, tag.ID, alice.ID, item.ID)
	require.NoError(t, err)

	res, err = env.claims.Lookup(ctx, "04A1B2C3D4E5F6", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateMineLinked, res.State)
	require.NotNil(t, res.Inventory)
	assert.Equal(t, "Margaux 2015", res.Inventory.BottleName)

	res, err = env.claims.Lookup(ctx, "04A1B2C3D4E5F6", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateOwnedByOther, res.State)
	assert.Nil(t, res.Inventory)
}

func TestClaimUnassignedTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)

	claimed, err := env.claims.Claim(ctx, tag.ID, alice.ID, "My bottle")
	require.NoError(t, err)
	assert.Equal(t, domain.TagStatusClaimed, claimed.Status)
	require.NotNil(t, claimed.RegisteredToUserID)
	assert.Equal(t, alice.ID, *claimed.RegisteredToUserID)
	assert.Equal(t, "My bottle", claimed.Label)
}

func TestClaimOwnTagIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)

	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	again, err := env.claims.Claim(ctx, tag.ID, alice.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, *again.RegisteredToUserID)
	assert.Equal(t, "Renamed", again.Label)
}

func TestClaimTagOwnedByOther(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)

	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	_, err = env.claims.Claim(ctx, tag.ID, bob.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestClaimUnknownTag(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.claims.Claim(context.Background(), "tag-missing", "user-any", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAssignRequiresClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	item := env.inventory(t, alice.ID, "Margaux 2015")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)

	_, err = env.claims.Assign(ctx, tag.ID, alice.ID, item.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestAssignForeignInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	bobsItem := env.inventory(t, bob.ID, "Barolo 2018")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	// Someone else's bottle: a validation error, not a permission one, since
	// the tag itself is the viewer's.
	_, err = env.claims.Assign(ctx, tag.ID, alice.ID, bobsItem.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = env.claims.Assign(ctx, tag.ID, alice.ID, "inv-missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestAssignOtherUsersTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	bobsItem := env.inventory(t, bob.ID, "Barolo 2018")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	_, err = env.claims.Assign(ctx, tag.ID, bob.ID, bobsItem.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestAssignRelink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	first := env.inventory(t, alice.ID, "Margaux 2015")
	second := env.inventory(t, alice.ID, "Barolo 2018")

	tag, _, err := env.registry.Register(ctx, "04A1B2C3D4E5F6", "")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	assigned, err := env.claims.Assign(ctx, tag.ID, alice.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *assigned.RegisteredToInventoryID)

	// Moving the tag to another bottle is just another assign.
	reassigned, err := env.claims.Assign(ctx, tag.ID, alice.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *reassigned.RegisteredToInventoryID)
}
