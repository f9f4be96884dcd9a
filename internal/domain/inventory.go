package domain

import "time"

// InventoryItem is the local projection of a bottle in a user's inventory.
// Inventory CRUD lives in the platform inventory service; the tag service
// only validates ownership when linking a tag and denormalizes the bottle
// name into lookup responses.
type InventoryItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	BottleName string    `json:"bottle_name"`
	Vintage    int       `json:"vintage,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OwnedBy reports whether the item belongs to the given user.
func (i *InventoryItem) OwnedBy(userID string) bool {
	return i.UserID == userID
}
