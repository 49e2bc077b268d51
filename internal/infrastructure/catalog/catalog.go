// Package catalog loads the static song/chart dataset and alias index and
// serves lookup and fuzzy search over it.
//
// Corresponds to spec.md §4.1. Loaded once at startup (see Load) and held
// as an immutable *Catalog thereafter: no locks guard reads because
// nothing mutates after Load returns, matching the teacher's read-only
// shared-state convention for process-wide static data.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liverty-music/backend/internal/entity"
)

// Catalog is the immutable, process-wide song index.
type Catalog struct {
	byID      map[string]*entity.Song
	byName    map[string][]*entity.Song // normalized name -> songs (ties possible)
	byAlias   map[string][]*entity.Song // normalized alias -> songs
	all       []*entity.Song
}

// Load reads songs.csv and charts.csv from dir and alias.yml from
// aliasPath, building the three indexes described in spec.md §4.1.
func Load(dir, aliasPath string) (*Catalog, error) {
	songs, err := loadSongs(filepath.Join(dir, "songs.csv"))
	if err != nil {
		return nil, fmt.Errorf("load songs.csv: %w", err)
	}

	if err := loadCharts(filepath.Join(dir, "charts.csv"), songs); err != nil {
		return nil, fmt.Errorf("load charts.csv: %w", err)
	}

	aliases, err := loadAliases(aliasPath)
	if err != nil {
		return nil, fmt.Errorf("load alias.yml: %w", err)
	}

	c := &Catalog{
		byID:    make(map[string]*entity.Song, len(songs)),
		byName:  make(map[string][]*entity.Song),
		byAlias: make(map[string][]*entity.Song),
		all:     make([]*entity.Song, 0, len(songs)),
	}

	ids := make([]string, 0, len(songs))
	for id := range songs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s := songs[id]
		c.byID[s.ID] = s
		c.all = append(c.all, s)
		name := normalize(s.Name)
		c.byName[name] = append(c.byName[name], s)
	}

	for songID, names := range aliases {
		s, ok := c.byID[songID]
		if !ok {
			continue
		}
		for _, a := range names {
			n := normalize(a)
			c.byAlias[n] = append(c.byAlias[n], s)
		}
	}

	return c, nil
}

func loadSongs(path string) (map[string]*entity.Song, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*entity.Song, len(rows))
	for i := 0; i < len(rows)-1; i++ {
		rec, err := csvRecord(rows, []string{"id", "name", "composer", "illustrator"}, i)
		if err != nil {
			return nil, err
		}
		out[rec["id"]] = &entity.Song{
			ID:          rec["id"],
			Name:        rec["name"],
			Composer:    rec["composer"],
			Illustrator: rec["illustrator"],
		}
	}
	return out, nil
}

func loadCharts(path string, songs map[string]*entity.Song) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}

	for i := 0; i < len(rows)-1; i++ {
		rec, err := csvRecord(rows, []string{"id", "difficulty", "constant"}, i)
		if err != nil {
			return err
		}
		s, ok := songs[rec["id"]]
		if !ok {
			continue // chart for an unknown song id; skip rather than fail the whole load
		}
		d, ok := parseDifficulty(rec["difficulty"])
		if !ok {
			return fmt.Errorf("charts.csv row %d: unknown difficulty %q", i+2, rec["difficulty"])
		}
		v, err := strconv.ParseFloat(rec["constant"], 64)
		if err != nil {
			return fmt.Errorf("charts.csv row %d: invalid constant %q: %w", i+2, rec["constant"], err)
		}
		switch d {
		case entity.DifficultyEZ:
			s.Constants.EZ = &v
		case entity.DifficultyHD:
			s.Constants.HD = &v
		case entity.DifficultyIN:
			s.Constants.IN = &v
		case entity.DifficultyAT:
			s.Constants.AT = &v
		}
	}
	return nil
}

func loadAliases(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m map[string][]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseDifficulty(s string) (entity.Difficulty, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EZ":
		return entity.DifficultyEZ, true
	case "HD":
		return entity.DifficultyHD, true
	case "IN":
		return entity.DifficultyIN, true
	case "AT":
		return entity.DifficultyAT, true
	default:
		return 0, false
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var rows [][]string
	rows = append(rows, header)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// csvRecord maps rows[0] (the header) onto rows[i+1] by column name.
// Called with the full rows slice including its header at index 0; i is
// the data row's zero-based index (so rows[i+1] is the record).
func csvRecord(rows [][]string, cols []string, i int) (map[string]string, error) {
	header := rows[0]
	row := rows[i+1]
	idx := make(map[string]int, len(header))
	for j, h := range header {
		idx[strings.TrimSpace(h)] = j
	}
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		j, ok := idx[c]
		if !ok || j >= len(row) {
			return nil, fmt.Errorf("row %d: missing column %q", i+2, c)
		}
		out[c] = strings.TrimSpace(row[j])
	}
	return out, nil
}

// Lookup returns the song with the given id, or nil if none exists.
func (c *Catalog) Lookup(id string) *entity.Song {
	return c.byID[id]
}

// ConstantOf returns the chart constant for songID/d, or 0 if unknown.
// Used by the rks engine's candidate list and the suspicion score's
// plausibility check.
func (c *Catalog) ConstantOf(songID string, d entity.Difficulty) float64 {
	s, ok := c.byID[songID]
	if !ok {
		return 0
	}
	if v := s.Constants.Get(d); v != nil {
		return *v
	}
	return 0
}

// TopConstants returns the n largest individual chart constants across
// the whole catalog, descending, used to derive the suspicion score's
// plausibility cap (spec.md §4.5.4): since rks(acc=100, constant) =
// constant, no single chart can ever contribute more than its own
// constant, so the n largest constants bound any achievable totalRks
// over n charts.
func (c *Catalog) TopConstants(n int) []float64 {
	if n <= 0 {
		return nil
	}

	var all []float64
	for _, s := range c.all {
		for _, d := range entity.Difficulties {
			if v := s.Constants.Get(d); v != nil {
				all = append(all, *v)
			}
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(all)))
	if len(all) > n {
		all = all[:n]
	}
	return all
}
