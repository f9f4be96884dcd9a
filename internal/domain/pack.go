package domain

import "time"

// PackStatus is the lifecycle state of a tag pack.
// active → claimed and active → void are the only legal transitions;
// claimed and void are terminal.
type PackStatus string

const (
	// PackStatusActive means the pack accepts membership changes and assignment.
	PackStatusActive PackStatus = "active"
	// PackStatusClaimed means the pack's unclaimed tags were bulk-assigned to a user.
	PackStatusClaimed PackStatus = "claimed"
	// PackStatusVoid means the pack was retired (lost shipment, misprint, recall).
	PackStatusVoid PackStatus = "void"
)

// Valid reports whether the status is a known value.
func (s PackStatus) Valid() bool {
	switch s {
	case PackStatusActive, PackStatusClaimed, PackStatusVoid:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition is legal.
func (s PackStatus) CanTransitionTo(next PackStatus) bool {
	return s == PackStatusActive && (next == PackStatusClaimed || next == PackStatusVoid)
}

// Terminal reports whether the status permits no further transitions.
func (s PackStatus) Terminal() bool {
	return s == PackStatusClaimed || s == PackStatusVoid
}

// TagPack is a batch of physically co-packaged tags distributed under one code.
type TagPack struct {
	ID               string     `json:"id"`
	PackCode         string     `json:"pack_code"` // Human-readable unique label, e.g. "PACK-2026-0042"
	Name             string     `json:"name"`
	TagCount         int        `json:"tag_count"` // Expected capacity, not enforced as a cap
	ActualTagCount   int        `json:"actual_tag_count"`
	RetailPriceCents *int64     `json:"retail_price,omitempty"`
	Status           PackStatus `json:"status"`
	ClaimedByUserID  *string    `json:"claimed_by_user_id"`
	ClaimedAt        *time.Time `json:"claimed_at"`
	VoidReason       string     `json:"void_reason,omitempty"`
	VoidedAt         *time.Time `json:"voided_at"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SkipReason explains why a UID was rejected from a pack membership change.
type SkipReason string

const (
	// SkipReasonNotFound means the UID has never been registered.
	SkipReasonNotFound SkipReason = "not_found"
	// SkipReasonAlreadyClaimed means a user already owns the tag.
	SkipReasonAlreadyClaimed SkipReason = "already_claimed"
	// SkipReasonInOtherPack means the tag belongs to a different pack.
	SkipReasonInOtherPack SkipReason = "in_other_pack"
	// SkipReasonVoid means the tag identity was retired.
	SkipReasonVoid SkipReason = "void"
)

// SkippedUID pairs a rejected UID with its machine-readable reason.
type SkippedUID struct {
	NfcUID string     `json:"nfc_uid"`
	Reason SkipReason `json:"reason"`
}

// AddTagsResult is the partial-success breakdown of a pack membership change.
type AddTagsResult struct {
	Added   int          `json:"added"`
	Skipped int          `json:"skipped"`
	Reasons []SkippedUID `json:"reasons"`
}

// AssignResult reports the outcome of a pack assignment.
type AssignResult struct {
	TagsClaimed int `json:"tags_claimed"`
}
