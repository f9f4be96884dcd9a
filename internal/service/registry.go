// Package service contains the business logic of the cellar tag service.
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

// RegistryService is the canonical store of tag identities keyed by NFC UID.
type RegistryService struct {
	store  store.Store
	logger *logger.Logger
}

// NewRegistryService creates a new registry service.
func NewRegistryService(store store.Store, logger *logger.Logger) *RegistryService {
	return &RegistryService{
		store:  store,
		logger: logger,
	}
}

// Register creates a tag for the given UID, or updates its label when the UID
// is already known. Idempotent: registering the same UID twice never creates a
// duplicate. Returns (tag, created, error).
func (s *RegistryService) Register(ctx context.Context, rawUID, label string) (*domain.Tag, bool, error) {
	// 1. Normalize and validate the UID.
	uid, ok := domain.NormalizeUID(rawUID)
	if !ok {
		return nil, false, apperrors.Validationf("malformed nfc uid %q", rawUID)
	}

	// 2. Existing tag: label update only, ownership untouched.
	existing, err := s.store.GetTagByUID(ctx, uid)
	if err == nil {
		if label != "" && label != existing.Label {
			if err := s.store.UpdateTagLabel(ctx, existing.ID, label); err != nil {
				return nil, false, err
			}
			existing.Label = label
		}
		return existing, false, nil
	}
	if !apperrors.Is(err, store.ErrTagNotFound) {
		return nil, false, err
	}

	// 3. New tag.
	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	tag := &domain.Tag{
		ID:        tagID,
		NfcUID:    uid,
		Label:     label,
		Status:    domain.TagStatusUnassigned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTag(ctx, tag); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			// Race: another request registered the UID first.
			existing, err := s.store.GetTagByUID(ctx, uid)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("tag registered", "tag_id", tag.ID, "nfc_uid", uid)
	return tag, true, nil
}

// Get returns a tag by its ID.
func (s *RegistryService) Get(ctx context.Context, tagID string) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if apperrors.Is(err, store.ErrTagNotFound) {
		return nil, apperrors.NotFoundf("tag %s not found", tagID)
	}
	return tag, err
}

// List returns tags matching the filter.
func (s *RegistryService) List(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validationf("unknown tag status %q", filter.Status)
	}
	return s.store.ListTags(ctx, filter)
}
