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

// packColumns is the ordered list of columns selected in pack queries.
// Must match the scan order in scanPack.
const packColumns = `id, pack_code, name, tag_count, retail_price_cents, status, claimed_by_user_id, claimed_at, void_reason, voided_at, created_by, created_at`

// scanPack scans a sql.Row (or sql.Rows) into a domain.TagPack.
// ActualTagCount is left as 0; callers join in CountPackTags when they need it.
func scanPack(scanner interface{ Scan(dest ...any) error }) (*domain.TagPack, error) {
	var p domain.TagPack

	var (
		retailPrice sql.NullInt64
		status      string
		claimedBy   sql.NullString
		claimedAt   sql.NullString
		voidReason  sql.NullString
		voidedAt    sql.NullString
		createdAt   string
	)

	err := scanner.Scan(
		&p.ID,
		&p.PackCode,
		&p.Name,
		&p.TagCount,
		&retailPrice,
		&status,
		&claimedBy,
		&claimedAt,
		&voidReason,
		&voidedAt,
		&p.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.RetailPriceCents = int64Ptr(retailPrice)
	p.Status = domain.PackStatus(status)
	p.ClaimedByUserID = stringPtr(claimedBy)
	if voidReason.Valid {
		p.VoidReason = voidReason.String
	}

	p.ClaimedAt, err = parseNullableTime(claimedAt)
	if err != nil {
		return nil, err
	}
	p.VoidedAt, err = parseNullableTime(voidedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreatePack inserts a new tag pack.
// Returns store.ErrAlreadyExists on duplicate pack_code.
func (s *Store) CreatePack(ctx context.Context, p *domain.TagPack) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_packs (id, pack_code, name, tag_count, retail_price_cents, status, claimed_by_user_id, claimed_at, void_reason, voided_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.PackCode,
		p.Name,
		p.TagCount,
		nullableInt64(p.RetailPriceCents),
		string(p.Status),
		nullableString(p.ClaimedByUserID),
		nullTimeString(p.ClaimedAt),
		nullString(p.VoidReason),
		nullTimeString(p.VoidedAt),
		p.CreatedBy,
		formatTime(p.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetPack retrieves a pack by its ID.
// Returns store.ErrPackNotFound if the pack does not exist.
func (s *Store) GetPack(ctx context.Context, id string) (*domain.TagPack, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+packColumns+` FROM tag_packs WHERE id = ?`, id)

	p, err := scanPack(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrPackNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPackByCode retrieves a pack by its human-facing pack code.
// Returns store.ErrPackNotFound if the pack does not exist.
func (s *Store) GetPackByCode(ctx context.Context, code string) (*domain.TagPack, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+packColumns+` FROM tag_packs WHERE pack_code = ?`, code)

	p, err := scanPack(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrPackNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPacks returns packs newest first.
func (s *Store) ListPacks(ctx context.Context, limit int) ([]*domain.TagPack, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+packColumns+` FROM tag_packs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []*domain.TagPack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if packs == nil {
		packs = []*domain.TagPack{}
	}

	return packs, nil
}

// CountPackTags returns the number of tags attached to a pack.
func (s *Store) CountPackTags(ctx context.Context, packID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE pack_id = ?`, packID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// VoidPack transitions a pack from active to void. The WHERE clause rejects
// already-claimed and already-void packs; callers distinguish via a re-read.
func (s *Store) VoidPack(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tag_packs
		SET status = ?, void_reason = ?, voided_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.PackStatusVoid),
		reason,
		formatTime(at),
		id,
		string(domain.PackStatusActive),
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

// AssignPack claims a pack and all of its unowned tags in one transaction.
// The pack row update doubles as the guard: zero rows affected means the pack
// was not active at write time and the transaction leaves no trace.
func (s *Store) AssignPack(ctx context.Context, packID, userID string, at time.Time) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tag_packs
		SET status = ?, claimed_by_user_id = ?, claimed_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.PackStatusClaimed),
		userID,
		formatTime(at),
		packID,
		string(domain.PackStatusActive),
	)
	if err != nil {
		return 0, false, fmt.Errorf("update pack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE tags
		SET registered_to_user_id = ?, status = ?, updated_at = ?
		WHERE pack_id = ? AND registered_to_user_id IS NULL AND status = ?`,
		userID,
		string(domain.TagStatusClaimed),
		formatTime(at),
		packID,
		string(domain.TagStatusUnassigned),
	)
	if err != nil {
		return 0, false, fmt.Errorf("claim pack tags: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return int(claimed), true, nil
}
