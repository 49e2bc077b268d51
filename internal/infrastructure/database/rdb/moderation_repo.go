package rdb

import (
	"context"
	"log/slog"

	"github.com/liverty-music/backend/internal/entity"
)

// ModerationRepository implements entity.ModerationFlagRepository over the
// moderation_flags table.
type ModerationRepository struct {
	db *Database
}

// NewModerationRepository creates a new moderation repository instance.
func NewModerationRepository(db *Database) *ModerationRepository {
	return &ModerationRepository{db: db}
}

var _ entity.ModerationFlagRepository = (*ModerationRepository)(nil)

// Insert records a new moderation decision.
func (r *ModerationRepository) Insert(ctx context.Context, f *entity.ModerationFlag) (*entity.ModerationFlag, error) {
	m := &ModerationFlag{
		UserHash: f.UserHash,
		Status:   string(f.Status),
		Reason:   f.Reason,
	}
	if _, err := r.db.DB.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, toAppErr(err, "failed to insert moderation flag", slog.String("user_hash", f.UserHash))
	}
	return m.ToEntity(), nil
}

// ListByUser returns all moderation decisions for userHash, newest first.
func (r *ModerationRepository) ListByUser(ctx context.Context, userHash string) ([]entity.ModerationFlag, error) {
	var rows []ModerationFlag
	err := r.db.DB.NewSelect().Model(&rows).
		Where("user_hash = ?", userHash).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to list moderation flags", slog.String("user_hash", userHash))
	}

	out := make([]entity.ModerationFlag, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToEntity()
	}
	return out, nil
}
