package rdb

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/liverty-music/backend/internal/entity"
)

// LeaderboardRks is the database model for the leaderboard_rks table.
type LeaderboardRks struct {
	bun.BaseModel `bun:"table:leaderboard_rks,alias:l"`

	UserHash       string `bun:",pk"`
	TotalRks       float64
	UserKind       string
	SuspicionScore float64
	IsHidden       bool
	CreatedAt      time.Time `bun:",nullzero,default:current_timestamp"`
	UpdatedAt      time.Time `bun:",nullzero,default:current_timestamp"`
}

// ToEntity converts the database model to the domain entity.
func (l *LeaderboardRks) ToEntity() *entity.LeaderboardEntry {
	return &entity.LeaderboardEntry{
		UserHash:       l.UserHash,
		TotalRks:       l.TotalRks,
		UserKind:       l.UserKind,
		SuspicionScore: l.SuspicionScore,
		IsHidden:       l.IsHidden,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

// LeaderboardDetails is the database model for the leaderboard_details table.
type LeaderboardDetails struct {
	bun.BaseModel `bun:"table:leaderboard_details,alias:ld"`

	UserHash        string `bun:",pk"`
	BestTop3JSON    string `bun:"best_top3_json"`
	APTop3JSON      string `bun:"ap_top3_json"`
	CompositionJSON string `bun:"composition_json"`
	UpdatedAt       time.Time `bun:",nullzero,default:current_timestamp"`
}

func (d *LeaderboardDetails) ToEntity() *entity.LeaderboardDetails {
	return &entity.LeaderboardDetails{
		UserHash:        d.UserHash,
		BestTop3JSON:    json.RawMessage(d.BestTop3JSON),
		APTop3JSON:      json.RawMessage(d.APTop3JSON),
		CompositionJSON: json.RawMessage(d.CompositionJSON),
		UpdatedAt:       d.UpdatedAt,
	}
}

// UserProfile is the database model for the user_profile table.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profile,alias:up"`

	UserHash           string `bun:",pk"`
	Alias              *string
	AliasCI            *string `bun:"alias_ci"`
	IsPublic           bool    `bun:"is_public"`
	ShowRksComposition bool    `bun:"show_rks_composition"`
	ShowBestTop3       bool    `bun:"show_best_top3"`
	ShowApTop3         bool    `bun:"show_ap_top3"`
	CreatedAt          time.Time `bun:",nullzero,default:current_timestamp"`
	UpdatedAt          time.Time `bun:",nullzero,default:current_timestamp"`
}

func (p *UserProfile) ToEntity() *entity.UserProfile {
	return &entity.UserProfile{
		UserHash:           p.UserHash,
		Alias:              p.Alias,
		IsPublic:           p.IsPublic,
		ShowRksComposition: p.ShowRksComposition,
		ShowBestTop3:       p.ShowBestTop3,
		ShowApTop3:         p.ShowApTop3,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// SaveSubmission is the database model for the save_submissions table.
type SaveSubmission struct {
	bun.BaseModel `bun:"table:save_submissions,alias:s"`

	ID             int64 `bun:",pk,autoincrement"`
	UserHash       string
	TotalRks       float64 `bun:"total_rks"`
	RksJump        float64 `bun:"rks_jump"`
	SuspicionScore float64
	Details        string
	CreatedAt      time.Time `bun:",nullzero,default:current_timestamp"`
}

func (s *SaveSubmission) ToEntity() *entity.Submission {
	return &entity.Submission{
		ID:             s.ID,
		UserHash:       s.UserHash,
		TotalRks:       s.TotalRks,
		RksJump:        s.RksJump,
		SuspicionScore: s.SuspicionScore,
		Details:        json.RawMessage(s.Details),
		CreatedAt:      s.CreatedAt,
	}
}

// ModerationFlag is the database model for the moderation_flags table.
type ModerationFlag struct {
	bun.BaseModel `bun:"table:moderation_flags,alias:mf"`

	ID        int64 `bun:",pk,autoincrement"`
	UserHash  string
	Status    string
	Reason    string
	CreatedAt time.Time `bun:",nullzero,default:current_timestamp"`
}

func (f *ModerationFlag) ToEntity() *entity.ModerationFlag {
	return &entity.ModerationFlag{
		ID:        f.ID,
		UserHash:  f.UserHash,
		Status:    entity.ModerationStatus(f.Status),
		Reason:    f.Reason,
		CreatedAt: f.CreatedAt,
	}
}

// Event is the database model for the events table.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID           int64     `bun:",pk,autoincrement"`
	TsUTC        time.Time `bun:"ts_utc"`
	Route        string
	Feature      string
	Action       string
	Method       string
	Status       int
	DurationMs   int64   `bun:"duration_ms"`
	UserHash     *string `bun:"user_hash"`
	ClientIPHash *string `bun:"client_ip_hash"`
	Instance     string
	ExtraJSON    *string `bun:"extra_json"`
}

func eventModelFromEntity(e entity.Event) *Event {
	return &Event{
		TsUTC:        e.TsUTC,
		Route:        e.Route,
		Feature:      e.Feature,
		Action:       e.Action,
		Method:       e.Method,
		Status:       e.Status,
		DurationMs:   e.DurationMs,
		UserHash:     e.UserHash,
		ClientIPHash: e.ClientIPHash,
		Instance:     e.Instance,
		ExtraJSON:    e.ExtraJSON,
	}
}

func (m *Event) ToEntity() entity.Event {
	return entity.Event{
		TsUTC:        m.TsUTC,
		Route:        m.Route,
		Feature:      m.Feature,
		Action:       m.Action,
		Method:       m.Method,
		Status:       m.Status,
		DurationMs:   m.DurationMs,
		UserHash:     m.UserHash,
		ClientIPHash: m.ClientIPHash,
		Instance:     m.Instance,
		ExtraJSON:    m.ExtraJSON,
	}
}
