package rdb

import (
	"context"
	"log/slog"
	"time"

	"github.com/liverty-music/backend/internal/entity"
)

// SubmissionRepository implements entity.SubmissionRepository over the
// save_submissions table.
type SubmissionRepository struct {
	db *Database
}

// NewSubmissionRepository creates a new submission repository instance.
func NewSubmissionRepository(db *Database) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

var _ entity.SubmissionRepository = (*SubmissionRepository)(nil)

// Insert appends a new submission row.
func (r *SubmissionRepository) Insert(ctx context.Context, s *entity.Submission) (*entity.Submission, error) {
	m := &SaveSubmission{
		UserHash:       s.UserHash,
		TotalRks:       s.TotalRks,
		RksJump:        s.RksJump,
		SuspicionScore: s.SuspicionScore,
		Details:        string(s.Details),
	}
	if _, err := r.db.DB.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, toAppErr(err, "failed to insert submission", slog.String("user_hash", s.UserHash))
	}
	return m.ToEntity(), nil
}

// Last retrieves the most recent submission for userHash.
func (r *SubmissionRepository) Last(ctx context.Context, userHash string) (*entity.Submission, error) {
	m := new(SaveSubmission)
	err := r.db.DB.NewSelect().Model(m).
		Where("user_hash = ?", userHash).
		Order("created_at DESC", "id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to get last submission", slog.String("user_hash", userHash))
	}
	return m.ToEntity(), nil
}

// RecentCount counts submissions for userHash within the last window.
func (r *SubmissionRepository) RecentCount(ctx context.Context, userHash string, window time.Duration) (int, error) {
	since := time.Now().Add(-window)
	count, err := r.db.DB.NewSelect().Model((*SaveSubmission)(nil)).
		Where("user_hash = ?", userHash).
		Where("created_at >= ?", since).
		Count(ctx)
	if err != nil {
		return 0, toAppErr(err, "failed to count recent submissions", slog.String("user_hash", userHash))
	}
	return count, nil
}

// History returns a page of submissions for userHash, newest first.
func (r *SubmissionRepository) History(ctx context.Context, userHash string, limit, offset int) ([]entity.Submission, int, error) {
	total, err := r.db.DB.NewSelect().Model((*SaveSubmission)(nil)).Where("user_hash = ?", userHash).Count(ctx)
	if err != nil {
		return nil, 0, toAppErr(err, "failed to count submission history", slog.String("user_hash", userHash))
	}

	var rows []SaveSubmission
	err = r.db.DB.NewSelect().Model(&rows).
		Where("user_hash = ?", userHash).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, toAppErr(err, "failed to list submission history", slog.String("user_hash", userHash))
	}

	out := make([]entity.Submission, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToEntity()
	}
	return out, total, nil
}
