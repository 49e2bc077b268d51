package entity

import "time"

// Record is one chart score, either parsed from a cloud save or self-reported.
//
// Corresponds to spec.md §3.1 "Record". RKS is derived, never stored on the
// wire — see the rks package.
type Record struct {
	SongID     string     `json:"songId"`
	Difficulty Difficulty `json:"difficulty"`
	Score      int32      `json:"score"`
	Acc        float64    `json:"acc"`
	IsFC       bool       `json:"isFc"`
	IsPhi      bool       `json:"isPhi"`
}

// IsAP reports whether the record is an "All Perfect" (acc == 100.0).
func (r Record) IsAP() bool {
	return r.Acc == 100.0
}

// GameKey mirrors the decrypted `gameKey` save entry. Fields beyond the
// version prefix are opaque to this implementation; spec.md does not
// define their semantics beyond "preserved verbatim".
type GameKey struct {
	Version byte   `json:"version"`
	Payload []byte `json:"payload"`
}

// GameProgress mirrors the decrypted `gameProgress` save entry.
type GameProgress struct {
	Version byte   `json:"version"`
	Payload []byte `json:"payload"`
}

// SaveSettings mirrors the decrypted `settings` save entry.
type SaveSettings struct {
	Version byte   `json:"version"`
	Payload []byte `json:"payload"`
}

// SaveUser mirrors the decrypted `user` save entry.
type SaveUser struct {
	Version byte   `json:"version"`
	Payload []byte `json:"payload"`
}

// ParsedSave is the fully decoded, request-scoped result of fetching and
// decrypting a player's cloud save.
//
// Corresponds to spec.md §3.1 "ParsedSave" / §4.2.6. Any of the five
// entries may be nil when the corresponding zip entry was absent
// (spec.md §4.2.4: "A missing entry is tolerated").
type ParsedSave struct {
	User          *SaveUser              `json:"user,omitempty"`
	GameKey       *GameKey               `json:"gameKey,omitempty"`
	GameProgress  *GameProgress          `json:"gameProgress,omitempty"`
	GameRecord    map[string][4]*Record  `json:"gameRecord,omitempty"`
	Settings      *SaveSettings          `json:"settings,omitempty"`
	SummaryParsed *SaveSummary           `json:"summary,omitempty"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// SaveSummary is the decoded `summary` blob returned alongside the save
// download URL (spec.md §4.2.2): a compact snapshot of save-wide counters.
type SaveSummary struct {
	Version            int                `json:"version"`
	ChallengeRank      int                `json:"challengeRank"`
	ClearedChartCounts map[Difficulty]int `json:"clearedChartCounts"`
	RecordCount        int                `json:"recordCount"`
}
