package http

import (
	"net/http"
	"strconv"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/catalog"
)

// SongHandler serves GET /songs/search (spec.md §4.1, §6.1).
type SongHandler struct {
	catalog *catalog.Catalog
}

func NewSongHandler(cat *catalog.Catalog) *SongHandler {
	return &SongHandler{catalog: cat}
}

type songSearchResponse struct {
	Items           []*entity.Song `json:"items,omitempty"`
	Total           int            `json:"total,omitempty"`
	NextOffset      *int           `json:"nextOffset,omitempty"`
	Unique          *entity.Song   `json:"unique,omitempty"`
	Candidates      []*entity.Song `json:"candidates,omitempty"`
	CandidatesTotal int            `json:"candidatesTotal,omitempty"`
	NotFound        bool           `json:"notFound,omitempty"`
}

func (h *SongHandler) Search(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	opts := catalog.SearchOptions{Unique: q.Get("unique") == "true"}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "limit must be a positive integer").WithStatus(http.StatusUnprocessableEntity)
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	result := h.catalog.Search(q.Get("q"), opts)

	resp := songSearchResponse{NotFound: result.NotFound}
	if result.Page != nil {
		resp.Items = result.Page.Items
		resp.Total = result.Page.Total
		resp.NextOffset = result.Page.NextOffset
	}
	if result.Unique != nil {
		resp.Unique = result.Unique
	}
	if result.Ambiguous != nil {
		resp.Candidates = result.Ambiguous.Candidates
		resp.CandidatesTotal = result.Ambiguous.CandidatesTotal
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}
