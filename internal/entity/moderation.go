package entity

import (
	"context"
	"time"
)

// ModerationStatus is the admin-facing review state of a leaderboard row.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationShadow   ModerationStatus = "shadow"
	ModerationBanned   ModerationStatus = "banned"
)

// ModerationFlag is an admin decision recorded against a user (spec.md
// §3.1 "ModerationFlag", §6.3 table moderation_flags).
type ModerationFlag struct {
	ID        int64            `json:"id"`
	UserHash  string           `json:"userHash"`
	Status    ModerationStatus `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ModerationFlagRepository defines the data access interface for admin
// moderation decisions.
type ModerationFlagRepository interface {
	// Insert records a new moderation decision.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	Insert(ctx context.Context, f *ModerationFlag) (*ModerationFlag, error)

	// ListByUser returns all moderation decisions for userHash, newest
	// first.
	ListByUser(ctx context.Context, userHash string) ([]ModerationFlag, error)
}
