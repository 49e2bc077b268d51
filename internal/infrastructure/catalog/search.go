package catalog

import (
	"sort"
	"strings"

	"github.com/liverty-music/backend/internal/entity"
)

// matchRank orders match kinds strongest-first, per spec.md §4.1:
// "exact-id > exact-name > exact-alias > case-insensitive substring".
type matchRank int

const (
	rankExactID matchRank = iota
	rankExactName
	rankExactAlias
	rankSubstring
)

// maxAmbiguousPreview bounds the candidate preview returned by Ambiguous
// (spec.md §4.1: "Ambiguous(candidates≤8, candidatesTotal)").
const maxAmbiguousPreview = 8

// maxSearchLimit is the hard ceiling on the requested page size
// (spec.md §4.1: "limit≤100").
const maxSearchLimit = 100

// SearchOptions configures Search (spec.md §4.1).
type SearchOptions struct {
	Unique bool
	Limit  int
	Offset int
}

// SearchResult is the outcome of Search: exactly one of Page, Unique,
// Ambiguous, or NotFound is set. NotFound (with the other three nil) is
// only produced when opts.Unique finds no match.
type SearchResult struct {
	Page      *SearchPage
	Unique    *entity.Song
	Ambiguous *AmbiguousResult
	NotFound  bool
}

// SearchPage is the paginated match list returned when Unique is false.
type SearchPage struct {
	Items      []*entity.Song
	Total      int
	NextOffset *int
}

// AmbiguousResult is returned when Unique is requested but ≥2 songs match.
type AmbiguousResult struct {
	Candidates      []*entity.Song
	CandidatesTotal int
}

type match struct {
	song *entity.Song
	rank matchRank
}

// Search finds songs matching query, ranked exact-id > exact-name >
// exact-alias > substring, ties broken by song id ascending (spec.md
// §4.1). When opts.Unique is set, 0 matches returns NotFound and ≥2
// matches returns a bounded Ambiguous preview instead of a page.
func (c *Catalog) Search(query string, opts SearchOptions) SearchResult {
	q := normalize(query)
	matches := c.matchAll(q)

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].song.ID < matches[j].song.ID
	})

	songs := make([]*entity.Song, len(matches))
	for i, m := range matches {
		songs[i] = m.song
	}

	if opts.Unique {
		switch len(songs) {
		case 0:
			return SearchResult{NotFound: true}
		case 1:
			return SearchResult{Unique: songs[0]}
		default:
			n := len(songs)
			if n > maxAmbiguousPreview {
				n = maxAmbiguousPreview
			}
			return SearchResult{Ambiguous: &AmbiguousResult{
				Candidates:      songs[:n],
				CandidatesTotal: len(songs),
			}}
		}
	}

	limit := opts.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(songs)
	var page []*entity.Song
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = songs[offset:end]
	}

	var next *int
	if offset+len(page) < total {
		v := offset + len(page)
		next = &v
	}

	return SearchResult{Page: &SearchPage{Items: page, Total: total, NextOffset: next}}
}

// matchAll finds every song matching q, keeping only the strongest rank
// each song qualifies under (a song exact-matching its id never also
// appears as a substring match).
func (c *Catalog) matchAll(q string) []match {
	best := make(map[string]matchRank)

	consider := func(s *entity.Song, rank matchRank) {
		if cur, ok := best[s.ID]; !ok || rank < cur {
			best[s.ID] = rank
		}
	}

	if s, ok := c.byID[q]; ok {
		consider(s, rankExactID)
	}
	for _, s := range c.byName[q] {
		consider(s, rankExactName)
	}
	for _, s := range c.byAlias[q] {
		consider(s, rankExactAlias)
	}
	if q != "" {
		for _, s := range c.all {
			if strings.Contains(normalize(s.Name), q) {
				consider(s, rankSubstring)
			}
		}
	}

	out := make([]match, 0, len(best))
	for id, rank := range best {
		out = append(out, match{song: c.byID[id], rank: rank})
	}
	return out
}
