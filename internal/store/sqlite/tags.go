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

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, nfc_uid, label, status, registered_to_user_id, registered_to_inventory_id, pack_id, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		status      string
		ownerID     sql.NullString
		inventoryID sql.NullString
		packID      sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&t.ID,
		&t.NfcUID,
		&t.Label,
		&status,
		&ownerID,
		&inventoryID,
		&packID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TagStatus(status)
	t.RegisteredToUserID = stringPtr(ownerID)
	t.RegisteredToInventoryID = stringPtr(inventoryID)
	t.PackID = stringPtr(packID)

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists on duplicate nfc_uid.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, nfc_uid, label, status, registered_to_user_id, registered_to_inventory_id, pack_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.NfcUID,
		t.Label,
		string(t.Status),
		nullableString(t.RegisteredToUserID),
		nullableString(t.RegisteredToInventoryID),
		nullableString(t.PackID),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrTagNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByUID retrieves a tag by its normalized NFC UID.
// Returns store.ErrTagNotFound if the tag does not exist.
func (s *Store) GetTagByUID(ctx context.Context, uid string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE nfc_uid = ?`, uid)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns tags matching the filter, newest first.
func (s *Store) ListTags(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags`
	var (
		conds []string
		args  []any
	)
	if filter.OwnerID != "" {
		conds = append(conds, "registered_to_user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.PackID != "" {
		conds = append(conds, "pack_id = ?")
		args = append(args, filter.PackID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}

	return tags, nil
}

// UpdateTagLabel sets the tag's label.
// Returns store.ErrTagNotFound if the tag does not exist.
func (s *Store) UpdateTagLabel(ctx context.Context, id, label string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET label = ?, updated_at = ? WHERE id = ?`,
		label, formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTagNotFound
	}
	return nil
}

// ClaimTag atomically assigns an unowned tag to a user. The WHERE clause is
// the compare-and-swap: only one concurrent claimer can match the NULL owner.
func (s *Store) ClaimTag(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET registered_to_user_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND registered_to_user_id IS NULL AND status = ?`,
		userID,
		string(domain.TagStatusClaimed),
		formatTime(time.Now().UTC()),
		id,
		string(domain.TagStatusUnassigned),
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

// AssignTagInventory links a tag to an inventory item, guarded on ownership.
func (s *Store) AssignTagInventory(ctx context.Context, id, userID, inventoryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET registered_to_inventory_id = ?, updated_at = ?
		WHERE id = ? AND registered_to_user_id = ?`,
		inventoryID,
		formatTime(time.Now().UTC()),
		id,
		userID,
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

// AttachTagToPack sets pack_id on a tag that is unclaimed and either packless
// or already in the same pack. The same-pack case makes re-attachment a no-op.
func (s *Store) AttachTagToPack(ctx context.Context, id, packID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET pack_id = ?, updated_at = ?
		WHERE id = ?
		  AND registered_to_user_id IS NULL
		  AND status = ?
		  AND (pack_id IS NULL OR pack_id = ?)`,
		packID,
		formatTime(time.Now().UTC()),
		id,
		string(domain.TagStatusUnassigned),
		packID,
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

// DetachTagsFromPack clears pack_id on the given tags of one pack.
// Returns the number of tags detached.
func (s *Store) DetachTagsFromPack(ctx context.Context, packID string, tagIDs []string) (int, error) {
	if len(tagIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(tagIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(tagIDs)+2)
	args = append(args, formatTime(time.Now().UTC()), packID)
	for _, tagID := range tagIDs {
		args = append(args, tagID)
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE tags
		SET pack_id = NULL, updated_at = ?
		WHERE pack_id = ? AND id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
