package handler

import (
	"net/http"

	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

func (h *Handler) GetActivityStatistics(w http.ResponseWriter, r *http.Request) {
	var start, end string
	for _, p := range []struct {
		name string
		dst  *string
	}{{"start", &start}, {"end", &end}} {
		s := r.URL.Query().Get(p.name)
		if s == "" {
			continue
		}
		date, ok := domain.CanonicalDate(s)
		if !ok {
			h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
			return
		}
		*p.dst = date
	}
	if start != "" && end != "" && start > end {
		h.errorResponse(w, r, "开始日期不能晚于结束日期")
		return
	}

	records, err := h.calendar.Activities(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取活动统计成功", calendar.Summarize(records, start, end))
}
