package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/uptrace/bun"

	"github.com/liverty-music/backend/internal/entity"
)

// LeaderboardRepository implements entity.LeaderboardRepository over the
// leaderboard_rks table.
type LeaderboardRepository struct {
	db *Database
}

// NewLeaderboardRepository creates a new leaderboard repository instance.
func NewLeaderboardRepository(db *Database) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

var _ entity.LeaderboardRepository = (*LeaderboardRepository)(nil)

// UpsertIfGreater writes newScore only if it exceeds the stored TotalRks,
// matching spec.md §4.5.3's monotonic-non-decreasing rule: a worse save
// re-submission never lowers a player's public standing.
func (r *LeaderboardRepository) UpsertIfGreater(ctx context.Context, userHash string, newScore float64, userKind string, suspicionScore float64, hide bool) (*entity.LeaderboardEntry, error) {
	err := r.db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(LeaderboardRks)
		err := tx.NewSelect().Model(existing).Where("user_hash = ?", userHash).Scan(ctx)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			existing = &LeaderboardRks{
				UserHash:       userHash,
				TotalRks:       newScore,
				UserKind:       userKind,
				SuspicionScore: suspicionScore,
				IsHidden:       hide,
			}
			_, err := tx.NewInsert().Model(existing).Exec(ctx)
			return err
		case err != nil:
			return err
		}

		score := existing.TotalRks
		if newScore > score {
			score = newScore
		}

		_, err = tx.NewUpdate().Model((*LeaderboardRks)(nil)).
			Set("total_rks = ?", score).
			Set("user_kind = ?", userKind).
			Set("suspicion_score = ?", suspicionScore).
			Set("is_hidden = ?", existing.IsHidden || hide).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("user_hash = ?", userHash).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, toAppErr(err, "failed to upsert leaderboard entry", slog.String("user_hash", userHash))
	}

	return r.Get(ctx, userHash)
}

// Get retrieves a single row by user hash.
func (r *LeaderboardRepository) Get(ctx context.Context, userHash string) (*entity.LeaderboardEntry, error) {
	m := new(LeaderboardRks)
	err := r.db.DB.NewSelect().Model(m).Where("user_hash = ?", userHash).Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to get leaderboard entry", slog.String("user_hash", userHash))
	}
	return m.ToEntity(), nil
}

// Top returns a page of public, non-hidden rows ordered by
// (TotalRks DESC, UpdatedAt ASC, UserHash ASC).
func (r *LeaderboardRepository) Top(ctx context.Context, limit, offset int, afterScore *float64, afterUpdated *time.Time, afterUser *string) (*entity.LeaderboardPage, error) {
	q := r.db.DB.NewSelect().Model((*LeaderboardRks)(nil)).Where("is_hidden = FALSE")

	if afterUser != nil && afterScore != nil && afterUpdated != nil {
		q = q.Where("(total_rks < ? OR (total_rks = ? AND (updated_at > ? OR (updated_at = ? AND user_hash > ?))))",
			*afterScore, *afterScore, *afterUpdated, *afterUpdated, *afterUser)
	} else {
		q = q.Offset(offset)
	}

	total, err := r.db.DB.NewSelect().Model((*LeaderboardRks)(nil)).Where("is_hidden = FALSE").Count(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to count leaderboard rows")
	}

	var rows []LeaderboardRks
	if err := q.Order("total_rks DESC", "updated_at ASC", "user_hash ASC").Limit(limit).Scan(ctx, &rows); err != nil {
		return nil, toAppErr(err, "failed to list leaderboard rows")
	}

	items := make([]entity.LeaderboardEntry, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToEntity()
	}

	page := &entity.LeaderboardPage{Items: items, Total: total}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextAfterScore = &last.TotalRks
		page.NextAfterUpdated = &last.UpdatedAt
		page.NextAfterUser = &last.UserHash
	}
	return page, nil
}

// RankOf computes the competitive rank and total row count for userHash.
func (r *LeaderboardRepository) RankOf(ctx context.Context, userHash string) (int, int, error) {
	entry, err := r.Get(ctx, userHash)
	if err != nil {
		return 0, 0, err
	}

	rank, err := r.db.DB.NewSelect().Model((*LeaderboardRks)(nil)).
		Where("is_hidden = FALSE").
		Where("total_rks > ?", entry.TotalRks).
		Count(ctx)
	if err != nil {
		return 0, 0, toAppErr(err, "failed to compute leaderboard rank", slog.String("user_hash", userHash))
	}

	total, err := r.db.DB.NewSelect().Model((*LeaderboardRks)(nil)).Where("is_hidden = FALSE").Count(ctx)
	if err != nil {
		return 0, 0, toAppErr(err, "failed to count leaderboard rows")
	}

	return rank + 1, total, nil
}

// ByRank returns rows within a 1-based rank range [fromRank, toRank].
func (r *LeaderboardRepository) ByRank(ctx context.Context, fromRank, toRank int) ([]entity.LeaderboardEntry, error) {
	if fromRank < 1 || toRank < fromRank {
		return nil, apperr.New(codes.InvalidArgument, "invalid rank range", slog.Int("from", fromRank), slog.Int("to", toRank))
	}

	var rows []LeaderboardRks
	err := r.db.DB.NewSelect().Model(&rows).
		Where("is_hidden = FALSE").
		Order("total_rks DESC", "updated_at ASC", "user_hash ASC").
		Limit(toRank - fromRank + 1).
		Offset(fromRank - 1).
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to fetch leaderboard rank range")
	}

	out := make([]entity.LeaderboardEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToEntity()
	}
	return out, nil
}

// Suspicious lists rows whose SuspicionScore is at or above reviewThreshold.
func (r *LeaderboardRepository) Suspicious(ctx context.Context, reviewThreshold float64, limit, offset int) ([]entity.LeaderboardEntry, error) {
	var rows []LeaderboardRks
	err := r.db.DB.NewSelect().Model(&rows).
		Where("suspicion_score >= ?", reviewThreshold).
		Order("suspicion_score DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to list suspicious leaderboard rows")
	}

	out := make([]entity.LeaderboardEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToEntity()
	}
	return out, nil
}

// SetModeration updates IsHidden for userHash.
func (r *LeaderboardRepository) SetModeration(ctx context.Context, userHash string, hidden bool) error {
	res, err := r.db.DB.NewUpdate().Model((*LeaderboardRks)(nil)).
		Set("is_hidden = ?", hidden).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("user_hash = ?", userHash).
		Exec(ctx)
	if err != nil {
		return toAppErr(err, "failed to set leaderboard moderation state", slog.String("user_hash", userHash))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return toAppErr(err, "failed to read rows affected")
	}
	if affected == 0 {
		return apperr.New(codes.NotFound, fmt.Sprintf("leaderboard entry for %s not found", userHash))
	}
	return nil
}
