package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
)

func TestPackGiftFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	ops := env.user(t, "ops@example.com")

	pack, err := env.packs.Create(ctx, "PACK-2026-0042", "Holiday bundle", 3, nil, ops.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PackStatusActive, pack.Status)

	uids := []string{"04AAAA0001", "04AAAA0002", "04AAAA0003"}
	for _, uid := range uids {
		_, _, err := env.registry.Register(ctx, uid, "")
		require.NoError(t, err)
	}

	result, err := env.packs.AddTags(ctx, pack.ID, uids)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Reasons)

	assigned, err := env.packs.AssignToUser(ctx, pack.ID, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, assigned.TagsClaimed)

	// Every member tag now resolves as Alice's.
	for _, uid := range uids {
		res, err := env.claims.Lookup(ctx, uid, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ClaimStateMineUnlinked, res.State)
	}

	detail, err := env.packs.Get(ctx, pack.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PackStatusClaimed, detail.Pack.Status)
	assert.Equal(t, 3, detail.Pack.ActualTagCount)
	assert.Equal(t, "alice@example.com", detail.ClaimedByEmail)

	// The claimed pack accepts no further members.
	_, _, err = env.registry.Register(ctx, "04AAAA0004", "")
	require.NoError(t, err)
	_, err = env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0004"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestCreatePackValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.packs.Create(ctx, "", "x", 1, nil, "user-ops")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = env.packs.Create(ctx, "PACK-X", "x", -1, nil, "user-ops")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestCreatePackDuplicateCodeConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.packs.Create(ctx, "PACK-2026-0042", "", 1, nil, "user-ops")
	require.NoError(t, err)

	_, err = env.packs.Create(ctx, "PACK-2026-0042", "", 1, nil, "user-ops")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestAddTagsSkipReasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")

	packA, err := env.packs.Create(ctx, "PACK-A", "", 10, nil, "user-ops")
	require.NoError(t, err)
	packB, err := env.packs.Create(ctx, "PACK-B", "", 10, nil, "user-ops")
	require.NoError(t, err)

	claimed, _, err := env.registry.Register(ctx, "04AAAA0001", "")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, claimed.ID, alice.ID, "")
	require.NoError(t, err)

	_, _, err = env.registry.Register(ctx, "04AAAA0002", "")
	require.NoError(t, err)
	res, err := env.packs.AddTags(ctx, packB.ID, []string{"04AAAA0002"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	_, _, err = env.registry.Register(ctx, "04AAAA0003", "")
	require.NoError(t, err)

	result, err := env.packs.AddTags(ctx, packA.ID, []string{
		"04AAAA0001", // claimed by alice
		"04AAAA0002", // member of pack B
		"04AAAA0003", // fine
		"04DEADBEEF", // never registered
		"not-hex!",   // malformed
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 4, result.Skipped)

	reasons := map[string]domain.SkipReason{}
	for _, r := range result.Reasons {
		reasons[r.NfcUID] = r.Reason
	}
	assert.Equal(t, domain.SkipReasonAlreadyClaimed, reasons["04AAAA0001"])
	assert.Equal(t, domain.SkipReasonInOtherPack, reasons["04AAAA0002"])
	assert.Equal(t, domain.SkipReasonNotFound, reasons["04DEADBEEF"])
	assert.Equal(t, domain.SkipReasonNotFound, reasons["not-hex!"])
}

func TestAddTagsReattachSamePack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pack, err := env.packs.Create(ctx, "PACK-A", "", 10, nil, "user-ops")
	require.NoError(t, err)

	_, _, err = env.registry.Register(ctx, "04AAAA0001", "")
	require.NoError(t, err)

	for range 2 {
		result, err := env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0001"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 0, result.Skipped)
	}

	detail, err := env.packs.Get(ctx, pack.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Pack.ActualTagCount)
}

func TestRemoveTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pack, err := env.packs.Create(ctx, "PACK-A", "", 10, nil, "user-ops")
	require.NoError(t, err)

	tag, _, err := env.registry.Register(ctx, "04AAAA0001", "")
	require.NoError(t, err)
	_, err = env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0001"})
	require.NoError(t, err)

	removed, err := env.packs.RemoveTags(ctx, pack.ID, []string{tag.ID, "tag-missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = env.packs.Void(ctx, pack.ID, "misprint")
	require.NoError(t, err)

	_, err = env.packs.RemoveTags(ctx, pack.ID, []string{tag.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestVoidPack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pack, err := env.packs.Create(ctx, "PACK-A", "", 10, nil, "user-ops")
	require.NoError(t, err)

	_, err = env.packs.Void(ctx, pack.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	voided, err := env.packs.Void(ctx, pack.ID, "lost shipment")
	require.NoError(t, err)
	assert.Equal(t, domain.PackStatusVoid, voided.Status)
	assert.Equal(t, "lost shipment", voided.VoidReason)

	_, err = env.packs.Void(ctx, pack.ID, "again")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	_, err = env.packs.Void(ctx, "pack-missing", "whatever")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestVoidPackKeepsIndividualClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice@example.com")
	pack, err := env.packs.Create(ctx, "PACK-A", "", 10, nil, "user-ops")
	require.NoError(t, err)

	tag, _, err := env.registry.Register(ctx, "04AAAA0001", "")
	require.NoError(t, err)
	_, err = env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0001"})
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, tag.ID, alice.ID, "")
	require.NoError(t, err)

	_, err = env.packs.Void(ctx, pack.ID, "recall")
	require.NoError(t, err)

	// Ownership already granted survives the void.
	res, err := env.claims.Lookup(ctx, "04AAAA0001", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStateMineUnlinked, res.State)
}

func TestAssignToUserSkipsClaimedMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")

	pack, err := env.packs.Create(ctx, "PACK-A", "", 3, nil, "user-ops")
	require.NoError(t, err)

	for _, uid := range []string{"04AAAA0001", "04AAAA0002", "04AAAA0003"} {
		_, _, err := env.registry.Register(ctx, uid, "")
		require.NoError(t, err)
	}
	_, err = env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0001", "04AAAA0002", "04AAAA0003"})
	require.NoError(t, err)

	// Bob scanned one of the bottles himself before the pack was gifted.
	bobsTag, err := env.store.GetTagByUID(ctx, "04AAAA0002")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, bobsTag.ID, bob.ID, "")
	require.NoError(t, err)

	result, err := env.packs.AssignToUser(ctx, pack.ID, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TagsClaimed)

	got, err := env.store.GetTagByUID(ctx, "04AAAA0002")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, *got.RegisteredToUserID)
}

func TestAssignToUserErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.user(t, "alice@example.com")
	pack, err := env.packs.Create(ctx, "PACK-A", "", 3, nil, "user-ops")
	require.NoError(t, err)

	_, err = env.packs.AssignToUser(ctx, pack.ID, "nobody@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = env.packs.AssignToUser(ctx, "pack-missing", "alice@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = env.packs.Void(ctx, pack.ID, "recall")
	require.NoError(t, err)

	_, err = env.packs.AssignToUser(ctx, pack.ID, "alice@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestListPacksWithActualCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pack, err := env.packs.Create(ctx, "PACK-A", "", 5, nil, "user-ops")
	require.NoError(t, err)

	for _, uid := range []string{"04AAAA0001", "04AAAA0002"} {
		_, _, err := env.registry.Register(ctx, uid, "")
		require.NoError(t, err)
	}
	_, err = env.packs.AddTags(ctx, pack.ID, []string{"04AAAA0001", "04AAAA0002"})
	require.NoError(t, err)

	packs, err := env.packs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, 5, packs[0].TagCount)
	assert.Equal(t, 2, packs[0].ActualTagCount)
}
