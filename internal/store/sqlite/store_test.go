package sqlite

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
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard, Level: slog.LevelError})
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func seedUser(t *testing.T, st *Store, email string) *domain.User {
	t.Helper()

	u := &domain.User{
		ID:        id.MustGenerate("user"),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func seedTag(t *testing.T, st *Store, uid string) *domain.Tag {
	t.Helper()

	now := time.Now().UTC()
	tag := &domain.Tag{
		ID:        id.MustGenerate("tag"),
		NfcUID:    uid,
		Status:    domain.TagStatusUnassigned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateTag(context.Background(), tag))
	return tag
}

func seedPack(t *testing.T, st *Store, code string) *domain.TagPack {
	t.Helper()

	p := &domain.TagPack{
		ID:        id.MustGenerate("pack"),
		PackCode:  code,
		Status:    domain.PackStatusActive,
		CreatedBy: "user-ops",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreatePack(context.Background(), p))
	return p
}

func seedSession(t *testing.T, st *Store, startedBy string) *domain.BulkImportSession {
	t.Helper()

	bs := &domain.BulkImportSession{
		ID:              id.MustGenerate("session"),
		Status:          domain.SessionStatusActive,
		DuplicatePolicy: domain.DuplicateReconfirm,
		StartedBy:       startedBy,
		StartedAt:       time.Now().UTC(),
	}
	require.NoError(t, st.CreateSession(context.Background(), bs))
	return bs
}
