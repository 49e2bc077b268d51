package rdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"

	"github.com/liverty-music/backend/internal/entity"
)

// ProfileRepository implements entity.UserProfileRepository over the
// user_profile table.
type ProfileRepository struct {
	db *Database
}

// NewProfileRepository creates a new profile repository instance.
func NewProfileRepository(db *Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var _ entity.UserProfileRepository = (*ProfileRepository)(nil)

// Get retrieves a profile by user hash, creating a default (private, no
// alias) row on first access.
func (r *ProfileRepository) Get(ctx context.Context, userHash string) (*entity.UserProfile, error) {
	m := new(UserProfile)
	err := r.db.DB.NewSelect().Model(m).Where("user_hash = ?", userHash).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		m = &UserProfile{UserHash: userHash}
		if _, err := r.db.DB.NewInsert().Model(m).
			On("CONFLICT (user_hash) DO NOTHING").
			Exec(ctx); err != nil {
			return nil, toAppErr(err, "failed to create default user profile", slog.String("user_hash", userHash))
		}
		return r.Get(ctx, userHash)
	case err != nil:
		return nil, toAppErr(err, "failed to get user profile", slog.String("user_hash", userHash))
	}
	return m.ToEntity(), nil
}

// GetByAlias retrieves a profile by its case-insensitive alias.
func (r *ProfileRepository) GetByAlias(ctx context.Context, alias string) (*entity.UserProfile, error) {
	m := new(UserProfile)
	err := r.db.DB.NewSelect().Model(m).Where("alias_ci = ?", strings.ToLower(alias)).Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to get user profile by alias", slog.String("alias", alias))
	}
	return m.ToEntity(), nil
}

// SetAlias idempotently assigns alias to userHash.
func (r *ProfileRepository) SetAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	aliasCI := strings.ToLower(alias)

	existing := new(UserProfile)
	err := r.db.DB.NewSelect().Model(existing).Where("alias_ci = ?", aliasCI).Scan(ctx)
	if err == nil && existing.UserHash != userHash {
		return nil, apperrAlreadyExists("alias", alias)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, toAppErr(err, "failed to check alias uniqueness", slog.String("alias", alias))
	}

	if _, err := r.Get(ctx, userHash); err != nil {
		return nil, err
	}

	_, err = r.db.DB.NewUpdate().Model((*UserProfile)(nil)).
		Set("alias = ?", alias).
		Set("alias_ci = ?", aliasCI).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("user_hash = ?", userHash).
		Exec(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to set alias", slog.String("user_hash", userHash), slog.String("alias", alias))
	}
	return r.Get(ctx, userHash)
}

// ForceAlias reassigns alias to userHash, clearing it from any previous
// holder atomically.
func (r *ProfileRepository) ForceAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	aliasCI := strings.ToLower(alias)

	err := r.db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model((*UserProfile)(nil)).
			Set("alias = NULL").
			Set("alias_ci = NULL").
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("alias_ci = ?", aliasCI).
			Where("user_hash != ?", userHash).
			Exec(ctx); err != nil {
			return err
		}

		count, err := tx.NewSelect().Model((*UserProfile)(nil)).Where("user_hash = ?", userHash).Count(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			m := &UserProfile{UserHash: userHash}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return err
			}
		}

		_, err := tx.NewUpdate().Model((*UserProfile)(nil)).
			Set("alias = ?", alias).
			Set("alias_ci = ?", aliasCI).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("user_hash = ?", userHash).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, toAppErr(err, "failed to force alias", slog.String("user_hash", userHash), slog.String("alias", alias))
	}
	return r.Get(ctx, userHash)
}

// SetVisibility updates the four visibility toggles for userHash.
func (r *ProfileRepository) SetVisibility(ctx context.Context, userHash string, isPublic, showComposition, showBestTop3, showApTop3 bool) (*entity.UserProfile, error) {
	if _, err := r.Get(ctx, userHash); err != nil {
		return nil, err
	}

	_, err := r.db.DB.NewUpdate().Model((*UserProfile)(nil)).
		Set("is_public = ?", isPublic).
		Set("show_rks_composition = ?", showComposition).
		Set("show_best_top3 = ?", showBestTop3).
		Set("show_ap_top3 = ?", showApTop3).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("user_hash = ?", userHash).
		Exec(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to set visibility", slog.String("user_hash", userHash))
	}
	return r.Get(ctx, userHash)
}
