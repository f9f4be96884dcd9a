package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/id"
	"github.com/cellarclub/cellar-server/internal/store"
)

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	created := seedUser(t, st, "Alice@Example.com")

	got, err := st.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = st.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	st := openTestStore(t)

	seedUser(t, st, "alice@example.com")

	dup := &domain.User{
		ID:        id.MustGenerate("user"),
		Email:     "ALICE@example.com",
		CreatedAt: time.Now().UTC(),
	}
	err := st.CreateUser(context.Background(), dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestListUserInventory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice@example.com")
	bob := seedUser(t, st, "bob@example.com")

	now := time.Now().UTC()
	items := []*domain.InventoryItem{
		{ID: id.MustGenerate("inv"), UserID: alice.ID, BottleName: "Margaux 2015", Vintage: 2015, CreatedAt: now},
		{ID: id.MustGenerate("inv"), UserID: alice.ID, BottleName: "Barolo 2018", Vintage: 2018, CreatedAt: now.Add(time.Second)},
		{ID: id.MustGenerate("inv"), UserID: bob.ID, BottleName: "Rioja 2019", CreatedAt: now},
	}
	for _, item := range items {
		require.NoError(t, st.CreateInventoryItem(ctx, item))
	}

	got, err := st.ListUserInventory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Barolo 2018", got[0].BottleName)
	assert.Equal(t, "Margaux 2015", got[1].BottleName)

	single, err := st.GetInventoryItem(ctx, items[2].ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, single.UserID)
	assert.Zero(t, single.Vintage)

	_, err = st.GetInventoryItem(ctx, "inv-missing")
	assert.ErrorIs(t, err, store.ErrInventoryItemNotFound)
}
