package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/entity"
)

func TestFlattenCandidatesDropsUnknownCharts(t *testing.T) {
	cat := writeTestCatalog(t)

	parsed := &entity.ParsedSave{
		GameRecord: map[string][4]*entity.Record{
			"s1":           {entity.DifficultyAT: {SongID: "s1", Difficulty: entity.DifficultyAT, Acc: 100.0}},
			"unknown-song": {entity.DifficultyAT: {SongID: "unknown-song", Difficulty: entity.DifficultyAT, Acc: 100.0}},
		},
	}

	candidates := flattenCandidates(parsed, cat)
	require.Len(t, candidates, 1)
	assert.Equal(t, "s1", candidates[0].Record.SongID)
	assert.Equal(t, 15.8, candidates[0].Constant)
}

func TestFlattenCandidatesNilParsedSaveIsEmpty(t *testing.T) {
	cat := writeTestCatalog(t)
	assert.Empty(t, flattenCandidates(nil, cat))
}

func TestContentKeyOfIsStableAndSensitiveToInput(t *testing.T) {
	a := entity.PlayerRks{PlayerRks: 14.5, Best: []entity.Record{{SongID: "s1", Acc: 100}}}
	b := entity.PlayerRks{PlayerRks: 14.6, Best: []entity.Record{{SongID: "s1", Acc: 100}}}

	keyA1 := contentKeyOf(a)
	keyA2 := contentKeyOf(a)
	keyB := contentKeyOf(b)

	assert.Equal(t, keyA1, keyA2, "same composition must yield the same content key")
	assert.NotEqual(t, keyA1, keyB, "different rks must yield a different content key")
	assert.Len(t, keyA1, 64, "sha256 hex digest is 64 characters")
}

func TestEscapeXMLFieldEscapesReservedCharacters(t *testing.T) {
	got := escapeXMLField(`<Song & "Title"> it's great`)
	assert.Equal(t, `&lt;Song &amp; &quot;Title&quot;&gt; it&apos;s great`, got)
}

func TestEscapeXMLFieldLeavesPlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "Rrhar'il", escapeXMLField("Rrhar'il"))
}

func TestLoadIllustrationIndexEmptyPathReturnsNil(t *testing.T) {
	assert.Nil(t, loadIllustrationIndex(""))
}

func TestLoadIllustrationIndexMissingFileReturnsNil(t *testing.T) {
	assert.Nil(t, loadIllustrationIndex(filepath.Join(t.TempDir(), "does-not-exist.json")))
}

func TestLoadIllustrationIndexMalformedJSONReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "illustrations.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	assert.Nil(t, loadIllustrationIndex(path))
}

func TestLoadIllustrationIndexValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "illustrations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"s1":"s1.png","s2":"s2.png"}`), 0o644))

	index := loadIllustrationIndex(path)
	require.NotNil(t, index)
	assert.Equal(t, "s1.png", index["s1"])
	assert.Equal(t, "s2.png", index["s2"])
}

func TestImageUseCaseIllustrationOfUsesLoadedIndex(t *testing.T) {
	uc := &imageUseCase{illustration: map[string]string{"s1": "s1.png"}}
	assert.Equal(t, "s1.png", uc.illustrationOf("s1"))
	assert.Empty(t, uc.illustrationOf("unknown"))
}
