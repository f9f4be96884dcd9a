package sqlite

import (
	"context"
	"database/sql"

	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/store"
)

const inventoryColumns = `id, user_id, bottle_name, vintage, created_at`

func scanInventoryItem(scanner interface{ Scan(dest ...any) error }) (*domain.InventoryItem, error) {
	var item domain.InventoryItem

	var (
		vintage   sql.NullInt64
		createdAt string
	)

	err := scanner.Scan(&item.ID, &item.UserID, &item.BottleName, &vintage, &createdAt)
	if err != nil {
		return nil, err
	}

	if vintage.Valid {
		item.Vintage = int(vintage.Int64)
	}
	item.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// CreateInventoryItem inserts an inventory projection row.
func (s *Store) CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	var vintage sql.NullInt64
	if item.Vintage != 0 {
		vintage = sql.NullInt64{Int64: int64(item.Vintage), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, user_id, bottle_name, vintage, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.BottleName,
		vintage,
		formatTime(item.CreatedAt),
	)
	return err
}

// GetInventoryItem retrieves an inventory item by ID.
// Returns store.ErrInventoryItemNotFound if the item does not exist.
func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`, id)

	item, err := scanInventoryItem(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrInventoryItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListUserInventory returns a user's inventory items, newest first.
func (s *Store) ListUserInventory(ctx context.Context, userID string) ([]*domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*domain.InventoryItem{}
	}

	return items, nil
}
