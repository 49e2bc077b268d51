package entity

import (
	"context"
	"time"
)

// UserProfile holds a player's public alias and visibility preferences.
//
// Corresponds to spec.md §3.1 "UserProfile". Alias is unique,
// case-insensitively, across all profiles.
type UserProfile struct {
	UserHash           string    `json:"userHash"`
	Alias              *string   `json:"alias,omitempty"`
	IsPublic           bool      `json:"isPublic"`
	ShowRksComposition bool      `json:"showRksComposition"`
	ShowBestTop3       bool      `json:"showBestTop3"`
	ShowApTop3         bool      `json:"showApTop3"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// UserProfileRepository defines the data access interface for player
// profiles (spec.md §6.3, table user_profile).
type UserProfileRepository interface {
	// Get retrieves a profile by user hash, creating a default (private,
	// no alias) row on first access.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	Get(ctx context.Context, userHash string) (*UserProfile, error)

	// GetByAlias retrieves a profile by its case-insensitive alias.
	//
	// # Possible errors
	//
	//  - NotFound: if no profile has that alias.
	GetByAlias(ctx context.Context, alias string) (*UserProfile, error)

	// SetAlias idempotently assigns alias to userHash. Setting a user's
	// current alias to its existing value is a no-op success. Assigning an
	// alias already held by a different user fails.
	//
	// # Possible errors
	//
	//  - AlreadyExists: if alias is held by a different user.
	SetAlias(ctx context.Context, userHash, alias string) (*UserProfile, error)

	// ForceAlias reassigns alias to userHash, clearing it from any previous
	// holder atomically (spec.md §4.5.6, admin-only).
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	ForceAlias(ctx context.Context, userHash, alias string) (*UserProfile, error)

	// SetVisibility updates the four visibility toggles for userHash.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	SetVisibility(ctx context.Context, userHash string, isPublic, showComposition, showBestTop3, showApTop3 bool) (*UserProfile, error)
}
