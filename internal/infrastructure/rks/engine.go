// Package rks computes per-chart and per-player RKS scores.
//
// Corresponds to spec.md §4.3. Pure and allocation-conscious: no I/O, no
// logging, no error returns beyond what the math itself can produce (there
// is none — every input is already validated by its caller).
package rks

import (
	"container/heap"
	"math"

	"github.com/liverty-music/backend/internal/entity"
)

// DefaultBestK is the default size of the Best-K selection (spec.md §4.3.2).
const DefaultBestK = 27

// apTop3Size is fixed by spec.md §4.3.2; it is not configurable.
const apTop3Size = 3

// minPassAcc is the accuracy floor below which rks is always zero
// (spec.md §4.3.1).
const minPassAcc = 70.0

// Chart computes the rks of one chart score from its accuracy and chart
// constant (spec.md §4.3.1/§8: the boundary property requires acc==70.0
// to yield rks==0, so the floor is inclusive). acc must be in [0, 100];
// constant is the chart's intrinsic rating.
//
// rks(acc, constant) = 0                         if acc <= 70
//
//	= ((acc - 55) / 45)^2 * constant   otherwise
func Chart(acc, constant float64) float64 {
	if acc <= minPassAcc {
		return 0
	}
	norm := (acc - 55) / 45
	return norm * norm * constant
}

// scored pairs a record with its precomputed rks, to avoid recomputing it
// during selection and tie-breaking.
type scored struct {
	rec entity.Record
	rks float64
}

// less implements the stable tie-break order of spec.md §4.3.2: greatest
// rks first, then (acc desc, score desc, songId asc, difficulty asc).
func less(a, b scored) bool {
	if a.rks != b.rks {
		return a.rks > b.rks
	}
	if a.rec.Acc != b.rec.Acc {
		return a.rec.Acc > b.rec.Acc
	}
	if a.rec.Score != b.rec.Score {
		return a.rec.Score > b.rec.Score
	}
	if a.rec.SongID != b.rec.SongID {
		return a.rec.SongID < b.rec.SongID
	}
	return a.rec.Difficulty < b.rec.Difficulty
}

// topKHeap is a bounded min-heap (by the `less` order, inverted) used to
// select the top K scored records in O(n log k) time and O(k) memory,
// satisfying spec.md §4.3.3's "MUST NOT materialize a fully sorted copy"
// requirement structurally.
type topKHeap []scored

func (h topKHeap) Len() int { return len(h) }

// Less is inverted: the heap's root (index 0) is the WORST of the kept
// elements, so pushing a better element evicts it in O(log k).
func (h topKHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h topKHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// selectTopK returns the k best-scoring candidates in stable-sorted order,
// using a bounded min-heap. If len(candidates) <= k, all are returned
// sorted.
func selectTopK(candidates []scored, k int) []scored {
	if k <= 0 {
		return nil
	}

	h := make(topKHeap, 0, k)
	for _, c := range candidates {
		if h.Len() < k {
			heap.Push(&h, c)
			continue
		}
		// h[0] is the worst kept element (heap root under the inverted Less).
		if less(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]scored, h.Len())
	copy(out, h)
	// Sort the (at most k) survivors into final stable order. k is bounded
	// (27 default, a small configured max), so this is not the "fully
	// sorted copy of all records" spec.md §4.3.3 forbids.
	insertionSortStable(out)
	return out
}

// insertionSortStable sorts a small slice in-place using the `less` order.
// Insertion sort is used deliberately: the slice is bounded by K (≤ a few
// hundred at most), making it both fast and trivially stable.
func insertionSortStable(s []scored) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && less(v, s[j]) {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// Candidate is one (record, chart constant) pair eligible for selection:
// a known chart constant and a present record (spec.md §4.3.2).
type Candidate struct {
	Record   entity.Record
	Constant float64
}

// Select computes the Best-K and AP-Top-3 sets plus the aggregate
// PlayerRks and B27Mean over candidates (spec.md §4.3.2). k is the
// requested Best-K size (callers apply the configured default/max before
// calling Select).
func Select(candidates []Candidate, k int) entity.PlayerRks {
	scoredAll := make([]scored, 0, len(candidates))
	apCandidates := make([]scored, 0)

	for _, c := range candidates {
		s := scored{rec: c.Record, rks: Chart(c.Record.Acc, c.Constant)}
		scoredAll = append(scoredAll, s)
		if c.Record.IsAP() {
			apCandidates = append(apCandidates, s)
		}
	}

	best := selectTopK(scoredAll, k)
	apTop3 := selectTopK(apCandidates, apTop3Size)

	// Union WITH multiplicity per spec.md §4.3.2/§9: do not de-duplicate.
	sum := 0.0
	count := 0
	for _, s := range best {
		sum += s.rks
		count++
	}
	for _, s := range apTop3 {
		sum += s.rks
		count++
	}

	var mean float64
	if count > 0 {
		mean = sum / float64(count)
	}

	return entity.PlayerRks{
		Best:      recordsOf(best),
		APTop3:    recordsOf(apTop3),
		PlayerRks: mean,
		B27Mean:   mean,
	}
}

func recordsOf(s []scored) []entity.Record {
	out := make([]entity.Record, len(s))
	for i, v := range s {
		out[i] = v.rec
	}
	return out
}

// PushAccAdvice computes, for each candidate not already in best or AP,
// the minimum acc that would raise the player's overall rks, per spec.md
// §4.3.4. kthRks is the rks of the current K-th (worst) Best-K member
// (0 if Best-K has fewer than k members); constant is the candidate
// chart's constant.
//
// Returns nil for charts that would require acc > 100 to improve anything.
func PushAccAdvice(candidate Candidate, kthRks float64, constant float64) *entity.PushAccAdvice {
	if candidate.Record.Acc >= 100.0 {
		return nil
	}

	// Solve ((acc-55)/45)^2 * constant = target for acc, where target is
	// the rks the candidate would need to just exceed kthRks.
	target := kthRks
	if target <= 0 || constant <= 0 {
		return nil
	}

	ratio := target / constant
	if ratio < 0 {
		return nil
	}

	acc := 55 + 45*math.Sqrt(ratio)
	if acc > 100.0 {
		return nil
	}
	if acc <= candidate.Record.Acc {
		// Already above the bar; no push needed.
		acc = candidate.Record.Acc
	}

	return &entity.PushAccAdvice{
		SongID:      candidate.Record.SongID,
		Difficulty:  candidate.Record.Difficulty,
		RequiredAcc: acc,
		CurrentAcc:  candidate.Record.Acc,
		CurrentRks:  Chart(candidate.Record.Acc, constant),
	}
}
