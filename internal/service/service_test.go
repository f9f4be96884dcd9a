package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/id"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/store/sqlite"
)

// testEnv wires all services against a throwaway SQLite store.
type testEnv struct {
	store    *sqlite.Store
	registry *RegistryService
	claims   *ClaimService
	packs    *PackService
	imports  *BulkImportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard, Level: slog.LevelError})
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := NewRegistryService(st, log)
	return &testEnv{
		store:    st,
		registry: registry,
		claims:   NewClaimService(st, log),
		packs:    NewPackService(st, log),
		imports:  NewBulkImportService(st, registry, domain.DuplicateReconfirm, log),
	}
}

func (e *testEnv) user(t *testing.T, email string) *domain.User {
	t.Helper()

	u := &domain.User{
		ID:        id.MustGenerate("user"),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) inventory(t *testing.T, userID, bottleName string) *domain.InventoryItem {
	t.Helper()

	item := &domain.InventoryItem{
		ID:         id.MustGenerate("inv"),
		UserID:     userID,
		BottleName: bottleName,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateInventoryItem(context.Background(), item))
	return item
}
