package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/soullog/internal/journal"
	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

// GetStats はダッシュボード用の統計を返す。
// GET /api/stats?hydrationProgress=3&hydrationGoal=8&tz=Asia/Tokyo
func (h *EntryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	q, apiErr := parseSummaryQuery(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	summary, err := h.service.Summary(r.Context(), user.ID, q)
	if err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencyEntryStore)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// parseSummaryQuery はクエリパラメータを検証してSummaryQueryに変換する。
func parseSummaryQuery(r *http.Request) (journal.SummaryQuery, *model.APIError) {
	params := r.URL.Query()
	q := journal.SummaryQuery{Location: time.UTC}

	intParam := func(name string) (int, *model.APIError) {
		raw := params.Get(name)
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, model.NewValidationError(name + " must be an integer")
		}
		return n, nil
	}

	var apiErr *model.APIError
	if q.HydrationProgress, apiErr = intParam("hydrationProgress"); apiErr != nil {
		return q, apiErr
	}
	if q.HydrationGoal, apiErr = intParam("hydrationGoal"); apiErr != nil {
		return q, apiErr
	}

	if tz := params.Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return q, model.NewValidationError("tz must be an IANA time zone name")
		}
		q.Location = loc
	}

	return q, nil
}
