package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
	"github.com/cellarclub/cellar-server/internal/id"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/store"
)

// BulkImportService runs scoped, high-throughput sessions for registering
// many tags in rapid sequence, optionally attaching each to a pack.
// At most one active session exists per operator.
type BulkImportService struct {
	store         store.Store
	registry      *RegistryService
	logger        *logger.Logger
	defaultPolicy domain.DuplicatePolicy
}

// NewBulkImportService creates a new bulk import service.
func NewBulkImportService(store store.Store, registry *RegistryService, defaultPolicy domain.DuplicatePolicy, logger *logger.Logger) *BulkImportService {
	if !defaultPolicy.Valid() {
		defaultPolicy = domain.DuplicateReconfirm
	}
	return &BulkImportService{
		store:         store,
		registry:      registry,
		logger:        logger,
		defaultPolicy: defaultPolicy,
	}
}

// SessionView is a session with its target pack code resolved for responses.
type SessionView struct {
	Session  *domain.BulkImportSession `json:"session"`
	PackCode string                    `json:"pack_code,omitempty"`
}

// ScanOutcome is the structured per-item result of an add call. Rejections
// are reported here, not raised: one bad scan must not halt the stream.
type ScanOutcome struct {
	Entry     *domain.BulkImportEntry   `json:"entry"`
	Session   *domain.BulkImportSession `json:"session"`
	Tag       *domain.Tag               `json:"tag,omitempty"`
	Duplicate bool                      `json:"duplicate,omitempty"`
}

// SessionSummary is the final tally returned when a session ends.
type SessionSummary struct {
	Session         *domain.BulkImportSession `json:"session"`
	TagsAdded       int                       `json:"tags_added"`
	TagsFailed      int                       `json:"tags_failed"`
	DurationSeconds float64                   `json:"duration_seconds"`
}

// Start begins a bulk import session for the operator, or resumes the
// operator's existing active session when its target pack matches. Starting
// against a different pack while one is active fails with ErrConflict.
func (s *BulkImportService) Start(ctx context.Context, operatorID string, packID *string, policy domain.DuplicatePolicy, notes string) (*SessionView, bool, error) {
	// 1. Validate the target pack up front.
	if packID != nil {
		pack, err := s.store.GetPack(ctx, *packID)
		if apperrors.Is(err, store.ErrPackNotFound) {
			return nil, false, apperrors.NotFoundf("pack %s not found", *packID)
		}
		if err != nil {
			return nil, false, err
		}
		if pack.Status != domain.PackStatusActive {
			return nil, false, apperrors.InvalidStatef("pack is %s; sessions can only target an active pack", pack.Status)
		}
	}

	if policy == "" {
		policy = s.defaultPolicy
	}
	if !policy.Valid() {
		return nil, false, apperrors.Validationf("unknown duplicate policy %q", policy)
	}

	// 2. Resume the existing active session when the pack matches.
	existing, err := s.store.GetActiveSession(ctx, operatorID)
	if err == nil {
		return s.resume(ctx, existing, packID)
	}
	if !apperrors.Is(err, store.ErrSessionNotFound) {
		return nil, false, err
	}

	// 3. Create a fresh session.
	sessionID, err := id.Generate("session")
	if err != nil {
		return nil, false, fmt.Errorf("generate session id: %w", err)
	}

	session := &domain.BulkImportSession{
		ID:              sessionID,
		PackID:          packID,
		Status:          domain.SessionStatusActive,
		DuplicatePolicy: policy,
		StartedBy:       operatorID,
		StartedAt:       time.Now().UTC(),
		Notes:           notes,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		if apperrors.Is(err, store.ErrActiveSessionExists) {
			// Race: a concurrent start won. Resume against its session.
			existing, err := s.store.GetActiveSession(ctx, operatorID)
			if err != nil {
				return nil, false, err
			}
			return s.resume(ctx, existing, packID)
		}
		return nil, false, err
	}

	s.logger.Info("bulk import session started",
		"session_id", session.ID,
		"operator_id", operatorID,
		"duplicate_policy", string(policy),
	)

	view, err := s.describe(ctx, session)
	return view, false, err
}

// resume returns the existing active session when the requested pack matches,
// or ErrConflict when the operator asked for a different pack.
func (s *BulkImportService) resume(ctx context.Context, existing *domain.BulkImportSession, packID *string) (*SessionView, bool, error) {
	if !samePack(existing.PackID, packID) {
		return nil, false, apperrors.Conflictf("an active session already exists (id %s); end or abandon it before starting one for another pack", existing.ID)
	}
	view, err := s.describe(ctx, existing)
	return view, true, err
}

func samePack(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Active returns the operator's active session.
func (s *BulkImportService) Active(ctx context.Context, operatorID string) (*SessionView, error) {
	session, err := s.store.GetActiveSession(ctx, operatorID)
	if apperrors.Is(err, store.ErrSessionNotFound) {
		return nil, apperrors.NotFound("no active bulk import session")
	}
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, session)
}

// Get returns a session by ID.
func (s *BulkImportService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if apperrors.Is(err, store.ErrSessionNotFound) {
		return nil, apperrors.NotFoundf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, session)
}

// ListRecent returns recent sessions, newest first.
func (s *BulkImportService) ListRecent(ctx context.Context, limit int) ([]*SessionView, error) {
	sessions, err := s.store.ListRecentSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*SessionView, 0, len(sessions))
	for _, session := range sessions {
		view, err := s.describe(ctx, session)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Entries returns a session's scan log in sequence order.
func (s *BulkImportService) Entries(ctx context.Context, sessionID string) ([]*domain.BulkImportEntry, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if apperrors.Is(err, store.ErrSessionNotFound) {
			return nil, apperrors.NotFoundf("session %s not found", sessionID)
		}
		return nil, err
	}
	return s.store.ListSessionEntries(ctx, sessionID)
}

// Add processes one scanned UID against the operator's active session. The
// tag is registered (created unassigned if new) and, when the session targets
// a pack, attached to it. Per-item rejections land in the entry log and the
// tags_failed counter instead of failing the call. A retried scan carrying
// the same idempotency key returns the original entry without recounting.
func (s *BulkImportService) Add(ctx context.Context, sessionID, operatorID, rawUID string, idempotencyKey *string) (*ScanOutcome, error) {
	// 1. Load the session and gate on ownership and state.
	session, err := s.store.GetSession(ctx, sessionID)
	if apperrors.Is(err, store.ErrSessionNotFound) {
		return nil, apperrors.NotFoundf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.StartedBy != operatorID {
		return nil, apperrors.Forbidden("session belongs to another operator")
	}
	if session.Status != domain.SessionStatusActive {
		return nil, apperrors.InvalidStatef("session is %s; scans require an active session", session.Status)
	}

	// 2. Network-retry dedupe: a key we've seen returns the original entry.
	if idempotencyKey != nil {
		entry, err := s.store.GetEntryByIdempotencyKey(ctx, session.ID, *idempotencyKey)
		if err == nil {
			return s.replay(session, entry), nil
		}
		if !apperrors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	// 3. Evaluate the scan. Rejections become failed entries, not errors.
	uid, validUID := domain.NormalizeUID(rawUID)
	if !validUID {
		return s.record(ctx, session, strings.TrimSpace(rawUID), domain.ScanFailureMalformedUID, nil, idempotencyKey)
	}

	// 4. Same-UID re-scan within the session, per the session's policy.
	prior, err := s.store.GetEntryByUID(ctx, session.ID, uid)
	if err == nil {
		if session.DuplicatePolicy == domain.DuplicateReconfirm {
			return s.replay(session, prior), nil
		}
		return s.record(ctx, session, uid, domain.ScanFailureDuplicate, nil, idempotencyKey)
	}
	if !apperrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// 5. Register the tag (idempotent; creates it unassigned if new).
	tag, _, err := s.registry.Register(ctx, uid, "")
	if err != nil {
		return nil, err
	}

	if reason := s.scanFailureReason(ctx, session, tag); reason != "" {
		return s.record(ctx, session, uid, reason, nil, idempotencyKey)
	}

	// 6. Attach to the session's pack, if any.
	if session.PackID != nil {
		reason, err := s.attachToPack(ctx, *session.PackID, tag)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return s.record(ctx, session, uid, reason, nil, idempotencyKey)
		}
		tag, err = s.store.GetTag(ctx, tag.ID)
		if err != nil {
			return nil, err
		}
	}

	return s.record(ctx, session, uid, "", tag, idempotencyKey)
}

// scanFailureReason rejects scans of tags that can never be onboarded:
// void identities and tags already owned by a user.
func (s *BulkImportService) scanFailureReason(_ context.Context, _ *domain.BulkImportSession, tag *domain.Tag) string {
	switch {
	case tag.Status == domain.TagStatusVoid:
		return domain.ScanFailureTagVoid
	case tag.RegisteredToUserID != nil:
		return domain.ScanFailureTagClaimed
	}
	return ""
}

// attachToPack attaches the tag to the session's target pack. Returns a scan
// failure reason on rejection, or "" on success.
func (s *BulkImportService) attachToPack(ctx context.Context, packID string, tag *domain.Tag) (string, error) {
	pack, err := s.store.GetPack(ctx, packID)
	if apperrors.Is(err, store.ErrPackNotFound) {
		return domain.ScanFailurePackClosed, nil
	}
	if err != nil {
		return "", err
	}
	if pack.Status != domain.PackStatusActive {
		return domain.ScanFailurePackClosed, nil
	}

	attached, err := s.store.AttachTagToPack(ctx, tag.ID, packID)
	if err != nil {
		return "", err
	}
	if attached {
		return "", nil
	}

	// Guard failed under our feet. Re-read for the reason.
	current, err := s.store.GetTag(ctx, tag.ID)
	if err != nil {
		return "", err
	}
	switch {
	case current.Status == domain.TagStatusVoid:
		return domain.ScanFailureTagVoid, nil
	case current.RegisteredToUserID != nil:
		return domain.ScanFailureTagClaimed, nil
	case current.PackID != nil && *current.PackID != packID:
		return domain.ScanFailureOtherPack, nil
	}
	return domain.ScanFailureTagClaimed, nil
}

// record writes the entry and counter bump, then returns the fresh tally.
// The sequence number is the session's add-call count after the increment;
// a concurrent add colliding on it triggers a reload-and-retry.
func (s *BulkImportService) record(ctx context.Context, session *domain.BulkImportSession, uid, failureReason string, tag *domain.Tag, idempotencyKey *string) (*ScanOutcome, error) {
	const maxAttempts = 3

	entry := domain.BulkImportEntry{
		SessionID:      session.ID,
		NfcUID:         uid,
		Success:        failureReason == "",
		ErrorReason:    failureReason,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	for attempt := 0; ; attempt++ {
		entry.SequenceNumber = session.NextSequence()

		err := s.store.RecordScan(ctx, store.ScanRecord{Entry: entry})
		if err == nil {
			break
		}
		if apperrors.Is(err, store.ErrSessionNotFound) {
			return nil, apperrors.InvalidState("session ended while recording the scan")
		}
		if !apperrors.Is(err, store.ErrAlreadyExists) || attempt == maxAttempts-1 {
			return nil, err
		}

		// A concurrent retry carrying the same key may have landed first.
		if idempotencyKey != nil {
			existing, err := s.store.GetEntryByIdempotencyKey(ctx, session.ID, *idempotencyKey)
			if err == nil {
				return s.replay(session, existing), nil
			}
			if !apperrors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}

		// Sequence collision. Reload counters and try again.
		session, err = s.store.GetSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if session.Status != domain.SessionStatusActive {
			return nil, apperrors.InvalidState("session ended while recording the scan")
		}
	}

	updated, err := s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &ScanOutcome{Entry: &entry, Session: updated, Tag: tag}, nil
}

// replay returns a previously recorded entry without moving any counter.
func (s *BulkImportService) replay(session *domain.BulkImportSession, entry *domain.BulkImportEntry) *ScanOutcome {
	entry.Duplicate = true
	return &ScanOutcome{Entry: entry, Session: session, Duplicate: true}
}

// End completes the operator's session and returns the final tally.
func (s *BulkImportService) End(ctx context.Context, sessionID, operatorID string) (*SessionSummary, error) {
	return s.finish(ctx, sessionID, operatorID, domain.SessionStatusCompleted)
}

// Abandon cancels the operator's session. Already-added tags are kept:
// abandonment stops the stream, it does not reverse durable progress.
func (s *BulkImportService) Abandon(ctx context.Context, sessionID, operatorID string) (*SessionSummary, error) {
	return s.finish(ctx, sessionID, operatorID, domain.SessionStatusAbandoned)
}

func (s *BulkImportService) finish(ctx context.Context, sessionID, operatorID string, status domain.SessionStatus) (*SessionSummary, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if apperrors.Is(err, store.ErrSessionNotFound) {
		return nil, apperrors.NotFoundf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.StartedBy != operatorID {
		return nil, apperrors.Forbidden("session belongs to another operator")
	}
	if !session.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidStatef("session is %s; only active sessions can be %s", session.Status, status)
	}

	now := time.Now().UTC()
	ended, err := s.store.EndSession(ctx, session.ID, status, now)
	if err != nil {
		return nil, err
	}
	if !ended {
		// Lost a race with another end/abandon call.
		current, err := s.store.GetSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidStatef("session is %s; only active sessions can be %s", current.Status, status)
	}

	final, err := s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk import session ended",
		"session_id", final.ID,
		"status", string(status),
		"tags_added", final.TagsAdded,
		"tags_failed", final.TagsFailed,
	)

	return &SessionSummary{
		Session:         final,
		TagsAdded:       final.TagsAdded,
		TagsFailed:      final.TagsFailed,
		DurationSeconds: final.Duration(now).Seconds(),
	}, nil
}

// describe resolves the target pack code for response payloads.
func (s *BulkImportService) describe(ctx context.Context, session *domain.BulkImportSession) (*SessionView, error) {
	view := &SessionView{Session: session}
	if session.PackID != nil {
		pack, err := s.store.GetPack(ctx, *session.PackID)
		if err == nil {
			view.PackCode = pack.PackCode
		} else if !apperrors.Is(err, store.ErrPackNotFound) {
			return nil, err
		}
	}
	return view, nil
}
