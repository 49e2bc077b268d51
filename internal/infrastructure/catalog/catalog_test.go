package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/entity"
)

func writeTestCatalog(t *testing.T) (dir, aliasPath string) {
	t.Helper()
	dir = t.TempDir()

	songsCSV := "id,name,composer,illustrator\n" +
		"s1,Rrhar'il,Long Vol.\"GUCCI\",Izumi\n" +
		"s2,Igallta,Rabpit,Riroemu\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "songs.csv"), []byte(songsCSV), 0o644))

	chartsCSV := "id,difficulty,constant\n" +
		"s1,AT,15.8\n" +
		"s1,IN,13.8\n" +
		"s2,IN,13.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charts.csv"), []byte(chartsCSV), 0o644))

	aliasPath = filepath.Join(dir, "alias.yml")
	aliasYAML := "s1:\n  - rrharil\n  - gucci\n"
	require.NoError(t, os.WriteFile(aliasPath, []byte(aliasYAML), 0o644))

	return dir, aliasPath
}

func TestLoadAndLookup(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	s := c.Lookup("s1")
	require.NotNil(t, s)
	assert.Equal(t, "Rrhar'il", s.Name)
	assert.NotNil(t, s.Constants.AT)
	assert.InDelta(t, 15.8, *s.Constants.AT, 1e-9)
	assert.Nil(t, s.Constants.EZ)

	assert.Nil(t, c.Lookup("missing"))
}

func TestSearchExactIDBeatsSubstring(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	res := c.Search("s1", SearchOptions{})
	require.NotNil(t, res.Page)
	require.NotEmpty(t, res.Page.Items)
	assert.Equal(t, "s1", res.Page.Items[0].ID)
}

func TestSearchUniqueNotFound(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	res := c.Search("nonexistent-song", SearchOptions{Unique: true})
	assert.True(t, res.NotFound)
	assert.Nil(t, res.Unique)
	assert.Nil(t, res.Ambiguous)
}

func TestSearchUniqueAmbiguous(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	// "i" substring-matches both Rrhar'il and Igallta.
	res := c.Search("i", SearchOptions{Unique: true})
	require.NotNil(t, res.Ambiguous)
	assert.Equal(t, 2, res.Ambiguous.CandidatesTotal)
	assert.Len(t, res.Ambiguous.Candidates, 2)
}

func TestSearchUniqueSingleMatch(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	res := c.Search("gucci", SearchOptions{Unique: true})
	require.NotNil(t, res.Unique)
	assert.Equal(t, "s1", res.Unique.ID)
}

func TestSearchEmptyQueryMatchesNothing(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	res := c.Search("", SearchOptions{Limit: 1, Offset: 0})
	require.NotNil(t, res.Page)
	assert.Len(t, res.Page.Items, 0) // empty query matches nothing under substring rule
}

func TestSearchAliasMatch(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	res := c.Search("rrharil", SearchOptions{})
	require.NotNil(t, res.Page)
	require.NotEmpty(t, res.Page.Items)
	assert.Equal(t, "s1", res.Page.Items[0].ID)
}

func TestConstantOf(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	assert.Equal(t, 15.8, c.ConstantOf("s1", entity.DifficultyAT))
	assert.Equal(t, 0.0, c.ConstantOf("s1", entity.DifficultyEZ))
	assert.Equal(t, 0.0, c.ConstantOf("unknown", entity.DifficultyAT))
}

func TestTopConstants(t *testing.T) {
	dir, aliasPath := writeTestCatalog(t)
	c, err := Load(dir, aliasPath)
	require.NoError(t, err)

	top := c.TopConstants(2)
	assert.Equal(t, []float64{15.8, 13.8}, top)

	assert.Len(t, c.TopConstants(100), 3)
	assert.Nil(t, c.TopConstants(0))
}
