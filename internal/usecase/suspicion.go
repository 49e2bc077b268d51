package usecase

import (
	"time"

	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/rks"
)

// recentWindow is the lookback window for the jump/frequency/IP signals
// of spec.md §4.5.4.
const recentWindow = 10 * time.Minute

// updateFrequencyWindow is the lookback window for the update-frequency
// signal.
const updateFrequencyWindow = time.Minute

// lowChartCountThreshold is the "<15 charts" cutoff of spec.md §4.5.4.
const lowChartCountThreshold = 15

// apRatioThreshold implements the "AP ratio > 30% with
// <K effective charts" signal.
const apRatioThreshold = 0.30

// topDecileFraction approximates "top-decile rks" as a fraction of the
// catalog-derived plausibility cap; spec.md does not define the decile
// boundary precisely, so this is the suspicion score's one documented
// approximation (see DESIGN.md).
const topDecileFraction = 0.90

// suspicionInput carries every signal suspicionScore needs, gathered by
// the leaderboard use case from the submission history and recent
// telemetry before the write-path transaction (spec.md §4.5.3 step 1).
type suspicionInput struct {
	PlayerRks       entity.PlayerRks
	PlausibilityCap float64 // mean of the top (len(Best)+len(APTop3)) catalog constants
	LastSubmission  *entity.Submission
	Now             time.Time
	RecentSubmissionCount int // submissions in the last minute, including this one
	RecentIPHashCount     int // distinct client IP hashes in the last 10 minutes
	IsOfficialSession     bool
}

// suspicionScore computes the additive anti-cheat signal of spec.md
// §4.5.4, bounded to [0, +inf).
func suspicionScore(in suspicionInput) float64 {
	var score float64

	for _, r := range append(append([]entity.Record{}, in.PlayerRks.Best...), in.PlayerRks.APTop3...) {
		if r.Acc < 70.0 || r.Acc > 100.0 {
			score += 0.3
			break
		}
	}

	if in.PlausibilityCap > 0 && in.PlayerRks.PlayerRks > in.PlausibilityCap {
		score += 0.5
	}

	if in.LastSubmission != nil && in.Now.Sub(in.LastSubmission.CreatedAt) <= recentWindow {
		jump := in.PlayerRks.PlayerRks - in.LastSubmission.TotalRks
		if jump < 0 {
			jump = -jump
		}
		switch {
		case jump > 1.0:
			score += 0.8
		case jump > 0.5:
			score += 0.3
		}
	}

	if in.RecentSubmissionCount > 1 {
		score += 0.2
	}

	effectiveCharts := len(in.PlayerRks.Best)
	if effectiveCharts > 0 {
		apCount := 0
		for _, r := range in.PlayerRks.Best {
			if r.IsAP() {
				apCount++
			}
		}
		apRatio := float64(apCount) / float64(effectiveCharts)
		if apRatio > apRatioThreshold && effectiveCharts < rks.DefaultBestK {
			score += 0.3
		}
	}

	if effectiveCharts < lowChartCountThreshold && in.PlausibilityCap > 0 &&
		in.PlayerRks.PlayerRks > topDecileFraction*in.PlausibilityCap {
		score += 0.4
	}

	if in.RecentIPHashCount > 1 {
		score += 0.2
	}

	if in.IsOfficialSession {
		score -= 0.2
		if score < 0 {
			score = 0
		}
	}

	return score
}
