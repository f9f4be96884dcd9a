package service

import (
	"context"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/store"
)

// ClaimService computes viewer-relative claim state and performs claim and
// assign transitions on individual tags.
type ClaimService struct {
	store  store.Store
	logger *logger.Logger
}

// NewClaimService creates a new claim service.
func NewClaimService(store store.Store, logger *logger.Logger) *ClaimService {
	return &ClaimService{
		store:  store,
		logger: logger,
	}
}

// LookupResult is the viewer-relative resolution of a scanned UID.
type LookupResult struct {
	State     domain.ClaimState     `json:"state"`
	Tag       *domain.Tag           `json:"tag"`
	Inventory *domain.InventoryItem `json:"inventory,omitempty"`
}

// Lookup resolves a UID for a viewer: the claim state, the tag, and (when the
// viewer owns the tag and has linked it) the inventory item.
func (s *ClaimService) Lookup(ctx context.Context, rawUID, viewerID string) (*LookupResult, error) {
	// 1. Normalize the UID.
	uid, ok := domain.NormalizeUID(rawUID)
	if !ok {
		return nil, apperrors.Validationf("malformed nfc uid %q", rawUID)
	}

	// 2. Fetch the tag.
	tag, err := s.store.GetTagByUID(ctx, uid)
	if apperrors.Is(err, store.ErrTagNotFound) {
		return nil, apperrors.NotFoundf("tag with uid %s not found", uid)
	}
	if err != nil {
		return nil, err
	}

	result := &LookupResult{
		State: tag.ClaimStateFor(viewerID),
		Tag:   tag,
	}

	// 3. Denormalize the linked inventory item for the owner only.
	if result.State == domain.ClaimStateMineLinked {
		item, err := s.store.GetInventoryItem(ctx, *tag.RegisteredToInventoryID)
		if err != nil && !apperrors.Is(err, store.ErrInventoryItemNotFound) {
			return nil, err
		}
		result.Inventory = item
	}

	return result, nil
}

// Claim takes ownership of an unassigned tag for the viewer, or updates the
// label on a tag the viewer already owns. Exactly one of two concurrent
// claimers of the same unassigned tag wins; the loser gets ErrForbidden.
func (s *ClaimService) Claim(ctx context.Context, tagID, viewerID, label string) (*domain.Tag, error) {
	// 1. Fetch the tag.
	tag, err := s.store.GetTag(ctx, tagID)
	if apperrors.Is(err, store.ErrTagNotFound) {
		return nil, apperrors.NotFoundf("tag %s not found", tagID)
	}
	if err != nil {
		return nil, err
	}

	if tag.Status == domain.TagStatusVoid {
		return nil, apperrors.InvalidState("tag is void and cannot be claimed")
	}

	switch tag.ClaimStateFor(viewerID) {
	case domain.ClaimStateOwnedByOther:
		return nil, apperrors.Forbidden("tag is already claimed by another user")

	case domain.ClaimStateMineUnlinked, domain.ClaimStateMineLinked:
		// 2. Already mine: idempotent no-op on ownership, label update only.
		if label != "" && label != tag.Label {
			if err := s.store.UpdateTagLabel(ctx, tag.ID, label); err != nil {
				return nil, err
			}
			tag.Label = label
			tag.Touch()
		}
		return tag, nil
	}

	// 3. Unassigned: compare-and-swap claim.
	won, err := s.store.ClaimTag(ctx, tag.ID, viewerID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race. Re-read to distinguish "someone else won" from a
		// concurrent void.
		current, err := s.store.GetTag(ctx, tag.ID)
		if err != nil {
			return nil, err
		}
		if current.OwnedBy(viewerID) {
			return current, nil
		}
		if current.Status == domain.TagStatusVoid {
			return nil, apperrors.InvalidState("tag is void and cannot be claimed")
		}
		return nil, apperrors.Forbidden("tag is already claimed by another user")
	}

	// 4. Optional label update piggybacks on the claim.
	if label != "" && label != tag.Label {
		if err := s.store.UpdateTagLabel(ctx, tag.ID, label); err != nil {
			return nil, err
		}
	}

	claimed, err := s.store.GetTag(ctx, tag.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag claimed", "tag_id", tag.ID, "user_id", viewerID)
	return claimed, nil
}

// Assign links a tag the viewer owns to one of their inventory items.
func (s *ClaimService) Assign(ctx context.Context, tagID, viewerID, inventoryID string) (*domain.Tag, error) {
	// 1. Fetch the tag and check ownership.
	tag, err := s.store.GetTag(ctx, tagID)
	if apperrors.Is(err, store.ErrTagNotFound) {
		return nil, apperrors.NotFoundf("tag %s not found", tagID)
	}
	if err != nil {
		return nil, err
	}

	switch tag.ClaimStateFor(viewerID) {
	case domain.ClaimStateUnassigned:
		return nil, apperrors.InvalidState("tag must be claimed before it can be assigned")
	case domain.ClaimStateOwnedByOther:
		return nil, apperrors.Forbidden("tag is claimed by another user")
	}

	// 2. The inventory item must exist and belong to the viewer.
	item, err := s.store.GetInventoryItem(ctx, inventoryID)
	if apperrors.Is(err, store.ErrInventoryItemNotFound) {
		return nil, apperrors.Validationf("inventory item %s not found", inventoryID)
	}
	if err != nil {
		return nil, err
	}
	if !item.OwnedBy(viewerID) {
		return nil, apperrors.Validation("inventory item is not owned by you")
	}

	// 3. Write, guarded on the tag still being owned by the viewer.
	ok, err := s.store.AssignTagInventory(ctx, tag.ID, viewerID, inventoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("tag is no longer claimed by you")
	}

	assigned, err := s.store.GetTag(ctx, tag.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag assigned to inventory",
		"tag_id", tag.ID,
		"user_id", viewerID,
		"inventory_id", inventoryID,
	)
	return assigned, nil
}
