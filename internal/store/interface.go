// Package store defines the persistence interface for the tag service.
package store

import (
	"context"
	"time"

	"github.com/cellarclub/cellar-server/internal/domain"
)

// TagFilter narrows ListTags results. Zero values mean "no constraint".
type TagFilter struct {
	OwnerID string           // Tags registered to this user
	PackID  string           // Tags belonging to this pack
	Status  domain.TagStatus // Tags in this lifecycle status
	Limit   int              // Max rows; 0 means the store default
}

// ScanRecord bundles a bulk import entry with the counter increment it
// implies. Recorded atomically with the session counter update.
type ScanRecord struct {
	Entry domain.BulkImportEntry
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	GetTagByUID(ctx context.Context, uid string) (*domain.Tag, error)
	ListTags(ctx context.Context, filter TagFilter) ([]*domain.Tag, error)
	UpdateTagLabel(ctx context.Context, id, label string) error
	// ClaimTag performs a compare-and-swap claim: the owner column is set
	// only if it is currently NULL. Returns false when another user won.
	ClaimTag(ctx context.Context, id, userID string) (bool, error)
	// AssignTagInventory links a tag to an inventory item, guarded on the
	// tag still being owned by userID. Returns false when the guard fails.
	AssignTagInventory(ctx context.Context, id, userID, inventoryID string) (bool, error)
	// AttachTagToPack sets pack_id, guarded on the tag being unclaimed and
	// not already in a different pack. Returns false when the guard fails.
	AttachTagToPack(ctx context.Context, id, packID string) (bool, error)
	// DetachTagsFromPack clears pack_id on the given tags of one pack.
	DetachTagsFromPack(ctx context.Context, packID string, tagIDs []string) (int, error)

	// Packs
	CreatePack(ctx context.Context, pack *domain.TagPack) error
	GetPack(ctx context.Context, id string) (*domain.TagPack, error)
	GetPackByCode(ctx context.Context, code string) (*domain.TagPack, error)
	ListPacks(ctx context.Context, limit int) ([]*domain.TagPack, error)
	CountPackTags(ctx context.Context, packID string) (int, error)
	// VoidPack transitions active → void. Returns false when the pack was
	// not active at write time.
	VoidPack(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// AssignPack atomically transitions the pack to claimed and claims all
	// member tags with no owner, in one transaction. Returns the number of
	// tags claimed. Returns ErrPackNotFound / false-equivalent semantics via
	// (0, ok=false) when the pack was not active.
	AssignPack(ctx context.Context, packID, userID string, at time.Time) (claimed int, ok bool, err error)

	// Bulk import sessions
	CreateSession(ctx context.Context, session *domain.BulkImportSession) error
	GetSession(ctx context.Context, id string) (*domain.BulkImportSession, error)
	GetActiveSession(ctx context.Context, startedBy string) (*domain.BulkImportSession, error)
	ListRecentSessions(ctx context.Context, limit int) ([]*domain.BulkImportSession, error)
	// EndSession transitions active → completed/abandoned. Returns false
	// when the session was not active at write time.
	EndSession(ctx context.Context, id string, status domain.SessionStatus, at time.Time) (bool, error)
	// RecordScan inserts a bulk import entry and bumps the matching session
	// counter in one transaction. Fails when the session is not active.
	RecordScan(ctx context.Context, rec ScanRecord) error
	GetEntryByUID(ctx context.Context, sessionID, uid string) (*domain.BulkImportEntry, error)
	GetEntryByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.BulkImportEntry, error)
	ListSessionEntries(ctx context.Context, sessionID string) ([]*domain.BulkImportEntry, error)

	// Users (platform directory projection)
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Inventory (platform inventory projection)
	CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListUserInventory(ctx context.Context, userID string) ([]*domain.InventoryItem, error)
}
