package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
	"github.com/cellarclub/cellar-server/internal/id"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/store"
)

// PackService manages tag pack lifecycle: creation, membership, voiding, and
// atomic batch assignment to a user.
type PackService struct {
	store  store.Store
	logger *logger.Logger
}

// NewPackService creates a new pack service.
func NewPackService(store store.Store, logger *logger.Logger) *PackService {
	return &PackService{
		store:  store,
		logger: logger,
	}
}

// PackDetail is a pack with its member tags and the resolved claimer email.
type PackDetail struct {
	Pack           *domain.TagPack `json:"pack"`
	Tags           []*domain.Tag   `json:"tags"`
	ClaimedByEmail string          `json:"claimed_by_email,omitempty"`
}

// Create creates an empty active pack against a target tag count.
func (s *PackService) Create(ctx context.Context, packCode, name string, tagCount int, retailPriceCents *int64, createdBy string) (*domain.TagPack, error) {
	// 1. Validate.
	if packCode == "" {
		return nil, apperrors.Validation("pack_code is required")
	}
	if tagCount < 0 {
		return nil, apperrors.Validation("tag_count must not be negative")
	}

	packID, err := id.Generate("pack")
	if err != nil {
		return nil, fmt.Errorf("generate pack id: %w", err)
	}

	pack := &domain.TagPack{
		ID:               packID,
		PackCode:         packCode,
		Name:             name,
		TagCount:         tagCount,
		RetailPriceCents: retailPriceCents,
		Status:           domain.PackStatusActive,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now().UTC(),
	}

	// 2. Insert; the unique pack_code index is the duplicate guard.
	if err := s.store.CreatePack(ctx, pack); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflictf("pack code %q already exists", packCode)
		}
		return nil, err
	}

	s.logger.Info("pack created", "pack_id", pack.ID, "pack_code", packCode, "tag_count", tagCount)
	return pack, nil
}

// Get returns a pack with its member tags and the claimer email when claimed.
func (s *PackService) Get(ctx context.Context, packID string) (*PackDetail, error) {
	pack, err := s.store.GetPack(ctx, packID)
	if apperrors.Is(err, store.ErrPackNotFound) {
		return nil, apperrors.NotFoundf("pack %s not found", packID)
	}
	if err != nil {
		return nil, err
	}

	tags, err := s.store.ListTags(ctx, store.TagFilter{PackID: pack.ID, Limit: 1000})
	if err != nil {
		return nil, err
	}
	pack.ActualTagCount = len(tags)

	detail := &PackDetail{Pack: pack, Tags: tags}

	if pack.ClaimedByUserID != nil {
		user, err := s.store.GetUser(ctx, *pack.ClaimedByUserID)
		if err == nil {
			detail.ClaimedByEmail = user.Email
		} else if !apperrors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
	}

	return detail, nil
}

// List returns packs newest first, with actual tag counts.
func (s *PackService) List(ctx context.Context, limit int) ([]*domain.TagPack, error) {
	packs, err := s.store.ListPacks(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, pack := range packs {
		n, err := s.store.CountPackTags(ctx, pack.ID)
		if err != nil {
			return nil, err
		}
		pack.ActualTagCount = n
	}
	return packs, nil
}

// AddTags attaches previously-registered tags to an active pack. Partial
// success: each rejected UID is reported with a machine-readable reason
// instead of failing the batch.
func (s *PackService) AddTags(ctx context.Context, packID string, rawUIDs []string) (*domain.AddTagsResult, error) {
	// 1. The pack must exist and be active.
	pack, err := s.store.GetPack(ctx, packID)
	if apperrors.Is(err, store.ErrPackNotFound) {
		return nil, apperrors.NotFoundf("pack %s not found", packID)
	}
	if err != nil {
		return nil, err
	}
	if pack.Status != domain.PackStatusActive {
		return nil, apperrors.InvalidStatef("pack is %s; tags can only be added to an active pack", pack.Status)
	}

	// 2. Attach each UID independently.
	result := &domain.AddTagsResult{Reasons: []domain.SkippedUID{}}
	for _, rawUID := range rawUIDs {
		reason, err := s.addOne(ctx, pack.ID, rawUID)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			result.Added++
			continue
		}
		result.Skipped++
		result.Reasons = append(result.Reasons, domain.SkippedUID{NfcUID: rawUID, Reason: reason})
	}

	s.logger.Info("pack tags added",
		"pack_id", pack.ID,
		"added", result.Added,
		"skipped", result.Skipped,
	)
	return result, nil
}

// addOne attaches a single UID to the pack. Returns an empty reason on
// success, or the skip reason. Only returns an error for storage failures.
func (s *PackService) addOne(ctx context.Context, packID, rawUID string) (domain.SkipReason, error) {
	uid, ok := domain.NormalizeUID(rawUID)
	if !ok {
		return domain.SkipReasonNotFound, nil
	}

	tag, err := s.store.GetTagByUID(ctx, uid)
	if apperrors.Is(err, store.ErrTagNotFound) {
		return domain.SkipReasonNotFound, nil
	}
	if err != nil {
		return "", err
	}

	if reason := packSkipReason(tag, packID); reason != "" {
		return reason, nil
	}

	attached, err := s.store.AttachTagToPack(ctx, tag.ID, packID)
	if err != nil {
		return "", err
	}
	if attached {
		return "", nil
	}

	// Guard failed: the tag changed under us. Re-read for the reason.
	current, err := s.store.GetTag(ctx, tag.ID)
	if err != nil {
		return "", err
	}
	if reason := packSkipReason(current, packID); reason != "" {
		return reason, nil
	}
	return domain.SkipReasonAlreadyClaimed, nil
}

// packSkipReason returns why the tag cannot join the pack, or "" if it can.
// A tag already in the same pack is a no-op success.
func packSkipReason(tag *domain.Tag, packID string) domain.SkipReason {
	switch {
	case tag.Status == domain.TagStatusVoid:
		return domain.SkipReasonVoid
	case tag.RegisteredToUserID != nil:
		return domain.SkipReasonAlreadyClaimed
	case tag.PackID != nil && *tag.PackID != packID:
		return domain.SkipReasonInOtherPack
	}
	return ""
}

// RemoveTags detaches the given tags from an active pack. Returns the number
// of tags actually detached; IDs not in the pack are ignored.
func (s *PackService) RemoveTags(ctx context.Context, packID string, tagIDs []string) (int, error) {
	pack, err := s.store.GetPack(ctx, packID)
	if apperrors.Is(err, store.ErrPackNotFound) {
		return 0, apperrors.NotFoundf("pack %s not found", packID)
	}
	if err != nil {
		return 0, err
	}
	if pack.Status != domain.PackStatusActive {
		return 0, apperrors.InvalidStatef("pack is %s; tags can only be removed from an active pack", pack.Status)
	}

	removed, err := s.store.DetachTagsFromPack(ctx, pack.ID, tagIDs)
	if err != nil {
		return 0, err
	}

	s.logger.Info("pack tags removed", "pack_id", pack.ID, "removed", removed)
	return removed, nil
}

// Void retires an active pack. Member tags' individual claim states are left
// untouched: voiding controls distribution, not ownership already granted.
func (s *PackService) Void(ctx context.Context, packID, reason string) (*domain.TagPack, error) {
	if reason == "" {
		return nil, apperrors.Validation("void reason is required")
	}

	voided, err := s.store.VoidPack(ctx, packID, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !voided {
		// Zero rows: missing pack or a non-active state. Re-read to tell.
		pack, err := s.store.GetPack(ctx, packID)
		if apperrors.Is(err, store.ErrPackNotFound) {
			return nil, apperrors.NotFoundf("pack %s not found", packID)
		}
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidStatef("pack is %s; only active packs can be voided", pack.Status)
	}

	pack, err := s.store.GetPack(ctx, packID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pack voided", "pack_id", packID, "reason", reason)
	return pack, nil
}

// AssignToUser claims all unowned member tags of an active pack for the user
// resolved by email, and marks the pack claimed, in one transaction. Member
// tags already claimed individually are skipped, not errors.
func (s *PackService) AssignToUser(ctx context.Context, packID, userEmail string) (*domain.AssignResult, error) {
	// 1. Resolve the user.
	user, err := s.store.GetUserByEmail(ctx, userEmail)
	if apperrors.Is(err, store.ErrUserNotFound) {
		return nil, apperrors.NotFoundf("no user with email %s", userEmail)
	}
	if err != nil {
		return nil, err
	}

	// 2. The pack must exist; the atomic write checks active status itself.
	if _, err := s.store.GetPack(ctx, packID); err != nil {
		if apperrors.Is(err, store.ErrPackNotFound) {
			return nil, apperrors.NotFoundf("pack %s not found", packID)
		}
		return nil, err
	}

	// 3. One transaction: pack row transition + batch tag ownership writes.
	claimed, ok, err := s.store.AssignPack(ctx, packID, user.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		pack, err := s.store.GetPack(ctx, packID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidStatef("pack is %s; only active packs can be assigned", pack.Status)
	}

	s.logger.Info("pack assigned",
		"pack_id", packID,
		"user_id", user.ID,
		"tags_claimed", claimed,
	)
	return &domain.AssignResult{TagsClaimed: claimed}, nil
}
