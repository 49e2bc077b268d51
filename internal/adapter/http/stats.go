package http

import (
	"net/http"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/usecase"
)

// StatsHandler serves the /stats/* routes (spec.md §4.5.7, §4.5.8).
type StatsHandler struct {
	uc usecase.StatsUseCase
}

func NewStatsHandler(uc usecase.StatsUseCase) *StatsHandler {
	return &StatsHandler{uc: uc}
}

// parseDailyRangeQuery reads the "start", "end", and "tz" query parameters
// shared by every /stats/daily* route.
func parseDailyRangeQuery(r *http.Request) (start, end time.Time, tz *time.Location, err error) {
	q := r.URL.Query()

	tz = time.UTC
	if v := q.Get("tz"); v != "" {
		loc, locErr := time.LoadLocation(v)
		if locErr != nil {
			return start, end, nil, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "tz is not a recognized IANA zone")
		}
		tz = loc
	}

	endStr := q.Get("end")
	if endStr == "" {
		end = time.Now().In(tz)
	} else {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return start, end, nil, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "end must be YYYY-MM-DD")
		}
	}

	startStr := q.Get("start")
	if startStr == "" {
		start = end.AddDate(0, 0, -29)
	} else {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return start, end, nil, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "start must be YYYY-MM-DD")
		}
	}

	return start, end, tz, nil
}

func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) error {
	tz := time.UTC
	if v := r.URL.Query().Get("tz"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "tz is not a recognized IANA zone")
		}
		tz = loc
	}

	result, err := h.uc.Summary(r.Context(), tz)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) error {
	start, end, tz, err := parseDailyRangeQuery(r)
	if err != nil {
		return err
	}
	rows, err := h.uc.DailyTotal(r.Context(), start, end, tz)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	return nil
}

func (h *StatsHandler) DailyDAU(w http.ResponseWriter, r *http.Request) error {
	start, end, tz, err := parseDailyRangeQuery(r)
	if err != nil {
		return err
	}
	rows, err := h.uc.DailyActiveUsers(r.Context(), start, end, tz)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	return nil
}

func (h *StatsHandler) DailyFeatures(w http.ResponseWriter, r *http.Request) error {
	start, end, tz, err := parseDailyRangeQuery(r)
	if err != nil {
		return err
	}
	feature := r.URL.Query().Get("feature")
	if feature == "" {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "feature is required")
	}
	rows, err := h.uc.DailyFeature(r.Context(), start, end, tz, feature)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	return nil
}

func (h *StatsHandler) DailyHTTP(w http.ResponseWriter, r *http.Request) error {
	start, end, tz, err := parseDailyRangeQuery(r)
	if err != nil {
		return err
	}
	buckets, err := h.uc.DailyHTTPStatus(r.Context(), start, end, tz)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, buckets)
	return nil
}

func (h *StatsHandler) Latency(w http.ResponseWriter, r *http.Request) error {
	start, end, tz, err := parseDailyRangeQuery(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	granularity := q.Get("granularity")
	if granularity == "" {
		granularity = "day"
	}
	groupByDims := q.Get("groupByDims") == "true"

	rows, err := h.uc.Latency(r.Context(), start, end, tz, granularity, groupByDims)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	return nil
}

func (h *StatsHandler) ArchiveNow(w http.ResponseWriter, r *http.Request) error {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "date is required")
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "date must be YYYY-MM-DD")
	}

	if err := h.uc.ArchiveNow(r.Context(), date); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	return nil
}
