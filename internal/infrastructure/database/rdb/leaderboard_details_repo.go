package rdb

import (
	"context"
	"log/slog"

	"github.com/liverty-music/backend/internal/entity"
)

// LeaderboardDetailsRepository implements entity.LeaderboardDetailsRepository
// over the leaderboard_details table.
type LeaderboardDetailsRepository struct {
	db *Database
}

// NewLeaderboardDetailsRepository creates a new details repository instance.
func NewLeaderboardDetailsRepository(db *Database) *LeaderboardDetailsRepository {
	return &LeaderboardDetailsRepository{db: db}
}

var _ entity.LeaderboardDetailsRepository = (*LeaderboardDetailsRepository)(nil)

// Upsert replaces the stored details for userHash.
func (r *LeaderboardDetailsRepository) Upsert(ctx context.Context, details *entity.LeaderboardDetails) error {
	m := &LeaderboardDetails{
		UserHash:        details.UserHash,
		BestTop3JSON:    string(details.BestTop3JSON),
		APTop3JSON:      string(details.APTop3JSON),
		CompositionJSON: string(details.CompositionJSON),
	}

	_, err := r.db.DB.NewInsert().Model(m).
		On("CONFLICT (user_hash) DO UPDATE").
		Set("best_top3_json = EXCLUDED.best_top3_json").
		Set("ap_top3_json = EXCLUDED.ap_top3_json").
		Set("composition_json = EXCLUDED.composition_json").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	if err != nil {
		return toAppErr(err, "failed to upsert leaderboard details", slog.String("user_hash", details.UserHash))
	}
	return nil
}

// Get retrieves the stored details for userHash.
func (r *LeaderboardDetailsRepository) Get(ctx context.Context, userHash string) (*entity.LeaderboardDetails, error) {
	m := new(LeaderboardDetails)
	err := r.db.DB.NewSelect().Model(m).Where("user_hash = ?", userHash).Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to get leaderboard details", slog.String("user_hash", userHash))
	}
	return m.ToEntity(), nil
}
