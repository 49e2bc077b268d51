package render

import (
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/liverty-music/backend/internal/entity"
)

// escapeXML XML-escapes a user-originating string for use in an _xml
// template field, per spec.md §4.4.2: `<`, `>`, `&`, `'`, `"`.
func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}

// ChartRow is one rendered score line (song + difficulty + acc/score) in
// either a BN summary or a single-chart card.
type ChartRow struct {
	SongNameXML string
	Composer    string
	Difficulty  string
	Constant    float64
	Acc         float64
	Score       int32
	Rks         float64
	IsFC        bool
	IsPhi       bool
	Illustration string
}

// BNContext is the template context for the `bn` kind (spec.md §4.4.1,
// §4.4.7).
type BNContext struct {
	PlayerNameXML string
	PlayerRks     float64
	Best          []ChartRow
	APTop3        []ChartRow
	GeneratedAtXML string
	FooterXML     string
	Watermarked   bool
	InnerXML      string
}

// SongContext is the template context for the `song` kind.
type SongContext struct {
	SongNameXML   string
	ComposerXML   string
	IllustratorXML string
	Illustration  string
	Rows          []ChartRow
	InnerXML      string
}

func newChartRow(song *entity.Song, r entity.Record, constant float64, illustration string) ChartRow {
	name := ""
	composer := ""
	if song != nil {
		name = song.Name
		composer = song.Composer
	}
	return ChartRow{
		SongNameXML:  escapeXML(name),
		Composer:     escapeXML(composer),
		Difficulty:   r.Difficulty.String(),
		Constant:     constant,
		Acc:          r.Acc,
		Score:        r.Score,
		Rks:          rksOf(r, constant),
		IsFC:         r.IsFC,
		IsPhi:        r.IsPhi,
		Illustration: illustration,
	}
}

// rksOf is a small local re-derivation used only for display; the
// authoritative computation lives in the rks package and is passed in by
// callers wherever it has already been computed.
func rksOf(r entity.Record, constant float64) float64 {
	if r.Acc <= 70 {
		return 0
	}
	norm := (r.Acc - 55) / 45
	return norm * norm * constant
}

// NewBNContext builds a BNContext from a resolved PlayerRks, looking up
// song metadata via lookupSong for each contributing record.
func NewBNContext(playerNameXML string, pr entity.PlayerRks, constantOf func(songID string, d entity.Difficulty) float64, lookupSong func(songID string) *entity.Song, illustrationOf func(songID string) string, generatedAtXML, footerXML string, watermarked bool) BNContext {
	toRows := func(records []entity.Record) []ChartRow {
		rows := make([]ChartRow, len(records))
		for i, r := range records {
			song := lookupSong(r.SongID)
			rows[i] = newChartRow(song, r, constantOf(r.SongID, r.Difficulty), illustrationOf(r.SongID))
		}
		return rows
	}

	return BNContext{
		PlayerNameXML:  escapeXML(playerNameXML),
		PlayerRks:      pr.PlayerRks,
		Best:           toRows(pr.Best),
		APTop3:         toRows(pr.APTop3),
		GeneratedAtXML: escapeXML(generatedAtXML),
		FooterXML:      escapeXML(footerXML),
		Watermarked:    watermarked,
	}
}

// ToPongo2 converts ctx into a pongo2.Context for template execution. All
// exported fields are already either *_xml-safe or renderer-computed
// InnerXML, per the template safety contract of §4.4.2.
func (c BNContext) ToPongo2() pongo2.Context {
	return pongo2.Context{
		"playerNameXml":  c.PlayerNameXML,
		"playerRks":      c.PlayerRks,
		"best":           c.Best,
		"apTop3":         c.APTop3,
		"generatedAtXml": c.GeneratedAtXML,
		"footerXml":      c.FooterXML,
		"watermarked":    c.Watermarked,
		"innerXml":       c.InnerXML,
	}
}

// ToPongo2 converts ctx into a pongo2.Context for template execution.
func (c SongContext) ToPongo2() pongo2.Context {
	return pongo2.Context{
		"songNameXml":    c.SongNameXML,
		"composerXml":    c.ComposerXML,
		"illustratorXml": c.IllustratorXML,
		"illustration":   c.Illustration,
		"rows":           c.Rows,
		"innerXml":       c.InnerXML,
	}
}
