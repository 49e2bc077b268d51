package entity

import (
	"context"
	"encoding/json"
	"time"
)

// Submission is one append-only history row produced each time a player's
// /save RKS is recomputed (spec.md §3.1 "Submission", §4.5.3).
type Submission struct {
	ID             int64           `json:"id"`
	UserHash       string          `json:"userHash"`
	TotalRks       float64         `json:"totalRks"`
	RksJump        float64         `json:"rksJump"`
	SuspicionScore float64         `json:"suspicionScore,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	Details        json.RawMessage `json:"details,omitempty"`
}

// SubmissionRepository defines the data access interface for submission
// history (spec.md §6.3, table save_submissions).
type SubmissionRepository interface {
	// Insert appends a new submission row.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	Insert(ctx context.Context, s *Submission) (*Submission, error)

	// Last retrieves the most recent submission for userHash, used to
	// compute RksJump for the next submission (spec.md §4.5.3 step 1).
	//
	// # Possible errors
	//
	//  - NotFound: if userHash has no prior submissions.
	Last(ctx context.Context, userHash string) (*Submission, error)

	// RecentCount counts submissions for userHash within the last window,
	// used by the suspicion score's update-frequency signal (spec.md §4.5.4).
	RecentCount(ctx context.Context, userHash string, window time.Duration) (int, error)

	// History returns a page of submissions for userHash, newest first,
	// for /rks/history (spec.md §6.1).
	History(ctx context.Context, userHash string, limit, offset int) ([]Submission, int, error)
}
