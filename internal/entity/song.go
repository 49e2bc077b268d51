package entity

import (
	"encoding/json"
	"fmt"
)

// Difficulty identifies one of the four chart difficulties tracked per song.
type Difficulty int

const (
	DifficultyEZ Difficulty = iota
	DifficultyHD
	DifficultyIN
	DifficultyAT
)

// String returns the canonical three-letter code for d.
func (d Difficulty) String() string {
	switch d {
	case DifficultyEZ:
		return "EZ"
	case DifficultyHD:
		return "HD"
	case DifficultyIN:
		return "IN"
	case DifficultyAT:
		return "AT"
	default:
		return "UNKNOWN"
	}
}

// ParseDifficulty parses the three-letter code String produces, case
// sensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("entity: unknown difficulty %q", s)
}

// MarshalJSON renders d as its three-letter code rather than its
// underlying int, so every wire response stays in the "EZ"/"HD"/"IN"/"AT"
// vocabulary the rest of the API uses.
func (d Difficulty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a three-letter difficulty code.
func (d *Difficulty) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText and UnmarshalText back map[Difficulty]* keys: encoding/json
// only consults MarshalJSON for values, never for map keys, so without
// these SaveSummary.ClearedChartCounts would serialize with integer keys.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	parsed, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Difficulties lists every tracked difficulty in fixed, stable order.
var Difficulties = [4]Difficulty{DifficultyEZ, DifficultyHD, DifficultyIN, DifficultyAT}

// ChartConstants holds the per-difficulty constant rating of a chart.
// A nil entry means the song has no chart at that difficulty.
type ChartConstants struct {
	EZ *float64 `json:"ez,omitempty"`
	HD *float64 `json:"hd,omitempty"`
	IN *float64 `json:"in,omitempty"`
	AT *float64 `json:"at,omitempty"`
}

// Get returns the chart constant for d, or nil if the song has no chart there.
func (c ChartConstants) Get(d Difficulty) *float64 {
	switch d {
	case DifficultyEZ:
		return c.EZ
	case DifficultyHD:
		return c.HD
	case DifficultyIN:
		return c.IN
	case DifficultyAT:
		return c.AT
	default:
		return nil
	}
}

// Song is immutable, process-wide metadata for one tracked chart set.
//
// Corresponds to spec.md §3.1 "Song". Loaded once at startup by the
// catalog package and never mutated afterward.
type Song struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Composer    string         `json:"composer"`
	Illustrator string         `json:"illustrator"`
	Constants   ChartConstants `json:"constants"`
}
