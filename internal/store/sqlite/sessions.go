package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/store"
)

// sessionColumns is the ordered list of columns selected in session queries.
// Must match the scan order in scanSession.
const sessionColumns = `id, pack_id, status, duplicate_policy, tags_added, tags_failed, started_by, started_at, ended_at, notes`

// scanSession scans a sql.Row (or sql.Rows) into a domain.BulkImportSession.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.BulkImportSession, error) {
	var bs domain.BulkImportSession

	var (
		packID    sql.NullString
		status    string
		policy    string
		startedAt string
		endedAt   sql.NullString
	)

	err := scanner.Scan(
		&bs.ID,
		&packID,
		&status,
		&policy,
		&bs.TagsAdded,
		&bs.TagsFailed,
		&bs.StartedBy,
		&startedAt,
		&endedAt,
		&bs.Notes,
	)
	if err != nil {
		return nil, err
	}

	bs.PackID = stringPtr(packID)
	bs.Status = domain.SessionStatus(status)
	bs.DuplicatePolicy = domain.DuplicatePolicy(policy)

	bs.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	bs.EndedAt, err = parseNullableTime(endedAt)
	if err != nil {
		return nil, err
	}

	return &bs, nil
}

// scanEntry scans a sql.Row (or sql.Rows) into a domain.BulkImportEntry.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.BulkImportEntry, error) {
	var e domain.BulkImportEntry

	var (
		success     int
		errorReason sql.NullString
		idemKey     sql.NullString
		createdAt   string
	)

	err := scanner.Scan(
		&e.SessionID,
		&e.SequenceNumber,
		&e.NfcUID,
		&success,
		&errorReason,
		&idemKey,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Success = success != 0
	if errorReason.Valid {
		e.ErrorReason = errorReason.String
	}
	e.IdempotencyKey = stringPtr(idemKey)

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// CreateSession inserts a new bulk import session.
// Returns store.ErrActiveSessionExists when the operator already has an
// active session, via the partial unique index on started_by.
func (s *Store) CreateSession(ctx context.Context, bs *domain.BulkImportSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bulk_import_sessions (id, pack_id, status, duplicate_policy, tags_added, tags_failed, started_by, started_at, ended_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bs.ID,
		nullableString(bs.PackID),
		string(bs.Status),
		string(bs.DuplicatePolicy),
		bs.TagsAdded,
		bs.TagsFailed,
		bs.StartedBy,
		formatTime(bs.StartedAt),
		nullTimeString(bs.EndedAt),
		bs.Notes,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrActiveSessionExists
		}
		return err
	}
	return nil
}

// GetSession retrieves a session by its ID.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.BulkImportSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM bulk_import_sessions WHERE id = ?`, id)

	bs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return bs, nil
}

// GetActiveSession retrieves the operator's active session, if any.
// Returns store.ErrSessionNotFound when the operator has none.
func (s *Store) GetActiveSession(ctx context.Context, startedBy string) (*domain.BulkImportSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM bulk_import_sessions WHERE started_by = ? AND status = ?`,
		startedBy, string(domain.SessionStatusActive))

	bs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return bs, nil
}

// ListRecentSessions returns sessions newest first.
func (s *Store) ListRecentSessions(ctx context.Context, limit int) ([]*domain.BulkImportSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM bulk_import_sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.BulkImportSession
	for rows.Next() {
		bs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sessions == nil {
		sessions = []*domain.BulkImportSession{}
	}

	return sessions, nil
}

// EndSession transitions a session from active to the given end status.
// Returns false when the session was not active at write time.
func (s *Store) EndSession(ctx context.Context, id string, status domain.SessionStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bulk_import_sessions
		SET status = ?, ended_at = ?
		WHERE id = ? AND status = ?`,
		string(status),
		formatTime(at),
		id,
		string(domain.SessionStatusActive),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordScan inserts a bulk import entry and bumps the matching session
// counter in one transaction. The counter update is guarded on the session
// still being active, so a concurrent end call invalidates the whole write.
func (s *Store) RecordScan(ctx context.Context, rec store.ScanRecord) error {
	e := rec.Entry

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	success := 0
	counterColumn := "tags_failed"
	if e.Success {
		success = 1
		counterColumn = "tags_added"
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bulk_import_entries (session_id, sequence_number, nfc_uid, success, error_reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		e.SequenceNumber,
		e.NfcUID,
		success,
		nullString(e.ErrorReason),
		nullableString(e.IdempotencyKey),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert entry: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bulk_import_sessions SET `+counterColumn+` = `+counterColumn+` + 1 WHERE id = ? AND status = ?`,
		e.SessionID, string(domain.SessionStatusActive))
	if err != nil {
		return fmt.Errorf("update session counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}

	return tx.Commit()
}

// GetEntryByUID retrieves the first entry for a UID within one session.
// Returns store.ErrNotFound if the session has no entry for the UID.
func (s *Store) GetEntryByUID(ctx context.Context, sessionID, uid string) (*domain.BulkImportEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, sequence_number, nfc_uid, success, error_reason, idempotency_key, created_at
		FROM bulk_import_entries
		WHERE session_id = ? AND nfc_uid = ?
		ORDER BY sequence_number ASC LIMIT 1`,
		sessionID, uid)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntryByIdempotencyKey retrieves the entry recorded under an idempotency
// key within one session. Returns store.ErrNotFound when no such entry exists.
func (s *Store) GetEntryByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.BulkImportEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, sequence_number, nfc_uid, success, error_reason, idempotency_key, created_at
		FROM bulk_import_entries
		WHERE session_id = ? AND idempotency_key = ?`,
		sessionID, key)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListSessionEntries returns a session's entries in scan order.
func (s *Store) ListSessionEntries(ctx context.Context, sessionID string) ([]*domain.BulkImportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sequence_number, nfc_uid, success, error_reason, idempotency_key, created_at
		FROM bulk_import_entries
		WHERE session_id = ?
		ORDER BY sequence_number ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.BulkImportEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*domain.BulkImportEntry{}
	}

	return entries, nil
}
