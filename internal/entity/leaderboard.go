package entity

import (
	"context"
	"encoding/json"
	"time"
)

// LeaderboardEntry is one player's row on the cross-player RKS leaderboard.
//
// Corresponds to spec.md §3.1 "LeaderboardEntry". TotalRks is
// monotonic non-decreasing across updates (spec.md §4.5.3); IsHidden is a
// one-way latch until an admin resolve clears it (spec.md §9).
type LeaderboardEntry struct {
	UserHash       string    `json:"userHash"`
	TotalRks       float64   `json:"totalRks"`
	UserKind       string    `json:"userKind"`
	SuspicionScore float64   `json:"suspicionScore,omitempty"`
	IsHidden       bool      `json:"isHidden"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// LeaderboardPage is one page of leaderboard rows plus the seek cursor for
// the next page (spec.md §4.5.5).
type LeaderboardPage struct {
	Items            []LeaderboardEntry `json:"items"`
	Total            int                `json:"total"`
	NextAfterScore   *float64           `json:"nextAfterScore,omitempty"`
	NextAfterUpdated *time.Time         `json:"nextAfterUpdated,omitempty"`
	NextAfterUser    *string            `json:"nextAfterUser,omitempty"`
}

// LeaderboardRepository defines the data access interface for leaderboard
// rows, backed by the embedded SQL store (spec.md §6.3, table
// leaderboard_rks).
type LeaderboardRepository interface {
	// UpsertIfGreater writes newScore for userHash only if it exceeds the
	// currently stored TotalRks (or no row exists yet). hide, if true, ORs
	// into the stored IsHidden latch. Returns the post-state row.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	UpsertIfGreater(ctx context.Context, userHash string, newScore float64, userKind string, suspicionScore float64, hide bool) (*LeaderboardEntry, error)

	// Get retrieves a single row by user hash.
	//
	// # Possible errors
	//
	//  - NotFound: if no row exists for userHash.
	Get(ctx context.Context, userHash string) (*LeaderboardEntry, error)

	// Top returns a page of non-hidden rows ordered by
	// (TotalRks DESC, UpdatedAt ASC, UserHash ASC), per spec.md §4.5.5.
	// Rows are filtered on IsHidden only; the owner's profile visibility
	// (UserProfile.IsPublic) is not consulted.
	//
	// Exactly one of (offset) or (afterScore, afterUpdated, afterUser) is
	// honored; offset-based pagination is used when afterUser == nil.
	Top(ctx context.Context, limit, offset int, afterScore *float64, afterUpdated *time.Time, afterUser *string) (*LeaderboardPage, error)

	// RankOf computes the competitive rank and total row count used to
	// derive percentile for userHash (spec.md §4.5.5 "/leaderboard/rks/me").
	//
	// # Possible errors
	//
	//  - NotFound: if no row exists for userHash.
	RankOf(ctx context.Context, userHash string) (rank int, total int, err error)

	// ByRank returns rows within a 1-based rank range [fromRank, toRank],
	// ordered identically to Top.
	ByRank(ctx context.Context, fromRank, toRank int) ([]LeaderboardEntry, error)

	// Suspicious lists rows whose SuspicionScore is at or above
	// reviewThreshold, for the admin review queue (spec.md §6.1).
	Suspicious(ctx context.Context, reviewThreshold float64, limit, offset int) ([]LeaderboardEntry, error)

	// SetModeration updates IsHidden for userHash as part of an admin
	// resolve action (spec.md §4.6, moderation_flags table).
	//
	// # Possible errors
	//
	//  - NotFound: if no row exists for userHash.
	SetModeration(ctx context.Context, userHash string, hidden bool) error
}

// LeaderboardDetails is the cached, read-path-optimized text/JSON blob of
// Best-Top-3, AP-Top-3, and RKS composition for one player (spec.md
// §4.5.3 step 3, table leaderboard_details in §6.3).
type LeaderboardDetails struct {
	UserHash        string          `json:"userHash"`
	BestTop3JSON    json.RawMessage `json:"bestTop3,omitempty"`
	APTop3JSON      json.RawMessage `json:"apTop3,omitempty"`
	CompositionJSON json.RawMessage `json:"composition,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// LeaderboardDetailsRepository defines the data access interface for the
// cached composition blob accompanying a leaderboard row.
type LeaderboardDetailsRepository interface {
	// Upsert replaces the stored details for userHash.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	Upsert(ctx context.Context, details *LeaderboardDetails) error

	// Get retrieves the stored details for userHash.
	//
	// # Possible errors
	//
	//  - NotFound: if no details are stored for userHash.
	Get(ctx context.Context, userHash string) (*LeaderboardDetails, error)
}
