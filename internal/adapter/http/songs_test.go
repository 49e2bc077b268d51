package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/infrastructure/catalog"
)

func newTestSongCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()

	songsCSV := "id,name,composer,illustrator\n" +
		"s1,Rrhar'il,Long Vol.\"GUCCI\",Izumi\n" +
		"s2,Igallta,Rabpit,Riroemu\n" +
		"s3,Igalta,Rabpit,Riroemu\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "songs.csv"), []byte(songsCSV), 0o644))

	chartsCSV := "id,difficulty,constant\n" +
		"s1,AT,15.8\n" +
		"s2,IN,13.0\n" +
		"s3,IN,13.1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charts.csv"), []byte(chartsCSV), 0o644))

	c, err := catalog.Load(dir, "")
	require.NoError(t, err)
	return c
}

func TestSongHandlerSearchReturnsAPage(t *testing.T) {
	h := NewSongHandler(newTestSongCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/songs/search?q=Iga", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Search(rec, req))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp songSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, len(resp.Items), 2)
	assert.Nil(t, resp.Unique)
	assert.Nil(t, resp.Candidates)
}

func TestSongHandlerSearchUniqueExactIDResolvesDespiteAmbiguousSubstrings(t *testing.T) {
	h := NewSongHandler(newTestSongCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/songs/search?q=s1&unique=true", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Search(rec, req))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp songSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Unique)
	assert.Equal(t, "s1", resp.Unique.ID)
}

func TestSongHandlerSearchAmbiguousReturnsCandidatePreview(t *testing.T) {
	h := NewSongHandler(newTestSongCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/songs/search?q=Igal&unique=true", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Search(rec, req))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp songSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Candidates, 2)
	assert.GreaterOrEqual(t, resp.CandidatesTotal, 2)
}

func TestSongHandlerSearchRejectsZeroLimit(t *testing.T) {
	h := NewSongHandler(newTestSongCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/songs/search?q=Iga&limit=0", nil)
	rec := httptest.NewRecorder()

	err := h.Search(rec, req)
	require.Error(t, err)
}

func TestSongHandlerSearchNotFound(t *testing.T) {
	h := NewSongHandler(newTestSongCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/songs/search?q=doesnotexist&unique=true", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Search(rec, req))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp songSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.NotFound)
}
