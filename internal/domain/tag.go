package domain

import (
	"strings"
	"time"
)

// TagStatus is the lifecycle state of a physical NFC tag's identity record.
type TagStatus string

const (
	// TagStatusUnassigned means the tag is registered but owned by nobody.
	TagStatusUnassigned TagStatus = "unassigned"
	// TagStatusClaimed means a user has taken ownership of the tag.
	TagStatusClaimed TagStatus = "claimed"
	// TagStatusVoid means the tag was retired and can no longer be claimed.
	TagStatusVoid TagStatus = "void"
)

// Valid reports whether the status is a known value.
func (s TagStatus) Valid() bool {
	switch s {
	case TagStatusUnassigned, TagStatusClaimed, TagStatusVoid:
		return true
	}
	return false
}

// Tag is the canonical identity record for a physical NFC tag,
// keyed by the globally unique UID burned into the chip.
type Tag struct {
	ID                      string    `json:"id"`
	NfcUID                  string    `json:"nfc_uid"` // Immutable once registered
	Label                   string    `json:"label"`
	Status                  TagStatus `json:"status"`
	RegisteredToUserID      *string   `json:"registered_to_user_id"`
	RegisteredToInventoryID *string   `json:"registered_to_inventory_id"`
	PackID                  *string   `json:"pack_id"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// ClaimState is the viewer-relative resolution of a tag's ownership.
type ClaimState string

const (
	// ClaimStateUnassigned means nobody owns the tag; the viewer may claim it.
	ClaimStateUnassigned ClaimState = "unassigned"
	// ClaimStateMineUnlinked means the viewer owns the tag but hasn't linked
	// it to an inventory item yet.
	ClaimStateMineUnlinked ClaimState = "mine_unlinked"
	// ClaimStateMineLinked means the viewer owns the tag and it points at one
	// of their inventory items.
	ClaimStateMineLinked ClaimState = "mine_linked"
	// ClaimStateOwnedByOther means another user owns the tag; no claim or
	// assign action is permitted for the viewer.
	ClaimStateOwnedByOther ClaimState = "owned_by_other"
)

// ClaimStateFor derives the viewer-relative claim state of the tag.
func (t *Tag) ClaimStateFor(viewerID string) ClaimState {
	switch {
	case t.RegisteredToUserID == nil:
		return ClaimStateUnassigned
	case *t.RegisteredToUserID != viewerID:
		return ClaimStateOwnedByOther
	case t.RegisteredToInventoryID == nil:
		return ClaimStateMineUnlinked
	default:
		return ClaimStateMineLinked
	}
}

// OwnedBy reports whether the given user owns the tag.
func (t *Tag) OwnedBy(userID string) bool {
	return t.RegisteredToUserID != nil && *t.RegisteredToUserID == userID
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// UID constraints. Real NTAG UIDs are 7 bytes (14 hex chars), but readers and
// manual entry produce colon/dash-separated and mixed-case forms, so we accept
// a range and normalize.
const (
	minUIDLength = 4
	maxUIDLength = 64
)

// NormalizeUID canonicalizes a raw UID string: trims whitespace, strips colon
// and dash separators, uppercases. Returns false if the result is empty, out
// of bounds, or contains non-hex characters.
func NormalizeUID(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r == ':' || r == '-':
			// Separator, drop it.
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'F':
			b.WriteRune(r)
		default:
			return "", false
		}
	}

	uid := b.String()
	if len(uid) < minUIDLength || len(uid) > maxUIDLength {
		return "", false
	}
	return uid, true
}
