package domain

import "time"

// SessionStatus is the lifecycle state of a bulk import session.
// active → completed and active → abandoned are the only legal transitions;
// both end states are terminal.
type SessionStatus string

const (
	// SessionStatusActive means the session accepts scans.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusCompleted means the operator finished the session normally.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusAbandoned means the operator cancelled; progress is kept.
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Valid reports whether the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusAbandoned:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition is legal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s == SessionStatusActive && (next == SessionStatusCompleted || next == SessionStatusAbandoned)
}

// DuplicatePolicy controls what happens when a UID is scanned twice within
// one session. Chosen at session start; deliberate rather than inferred.
type DuplicatePolicy string

const (
	// DuplicateReconfirm treats a re-scan as a harmless reconfirmation: the
	// original entry is returned unchanged and counters do not move.
	DuplicateReconfirm DuplicatePolicy = "reconfirm"
	// DuplicateReject records a re-scan as a failed entry with reason
	// duplicate_uid.
	DuplicateReject DuplicatePolicy = "reject"
)

// Valid reports whether the policy is a known value.
func (p DuplicatePolicy) Valid() bool {
	return p == DuplicateReconfirm || p == DuplicateReject
}

// BulkImportSession is a scoped, time-boxed operation for rapidly registering
// many tags in sequence, optionally attaching each to a pack. At most one
// active session exists per operator.
type BulkImportSession struct {
	ID              string          `json:"id"`
	PackID          *string         `json:"pack_id"`
	Status          SessionStatus   `json:"status"`
	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy"`
	TagsAdded       int             `json:"tags_added"`
	TagsFailed      int             `json:"tags_failed"`
	StartedBy       string          `json:"started_by"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at"`
	Notes           string          `json:"notes,omitempty"`
}

// NextSequence returns the sequence number the next add call will receive.
// sequence_number = tags_added + tags_failed after the increment, 1-based.
func (s *BulkImportSession) NextSequence() int {
	return s.TagsAdded + s.TagsFailed + 1
}

// Duration returns the session's elapsed time, using now for open sessions.
func (s *BulkImportSession) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Scan failure reasons recorded on bulk import entries.
const (
	ScanFailureMalformedUID = "malformed_uid"
	ScanFailureTagClaimed   = "already_claimed"
	ScanFailureOtherPack    = "in_other_pack"
	ScanFailurePackClosed   = "pack_not_active"
	ScanFailureDuplicate    = "duplicate_uid"
	ScanFailureTagVoid      = "tag_void"
)

// BulkImportEntry is the per-scan record of an add call within a session.
type BulkImportEntry struct {
	SessionID      string    `json:"session_id"`
	SequenceNumber int       `json:"sequence_number"` // 1-based, strictly increasing per session
	NfcUID         string    `json:"nfc_uid"`
	Success        bool      `json:"success"`
	ErrorReason    string    `json:"error,omitempty"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	Duplicate      bool      `json:"duplicate,omitempty"` // True when returned as a reconfirmation
	CreatedAt      time.Time `json:"created_at"`
}
