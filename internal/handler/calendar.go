package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

// calendarError 处理日历存储返回的错误
func (h *Handler) calendarError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, calendar.ErrValidation), errors.Is(err, calendar.ErrNotFound):
		h.errorResponse(w, r, err.Error())
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	doc, err := h.calendar.Document(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取日历成功", doc)
}

// ReplaceCalendar 用请求中的文档整体替换共享日历，旧版 cityRecords 结构会先被合并
func (h *Handler) ReplaceCalendar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Events json.RawMessage `json:"events" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	events, err := domain.DecodeCalendarDocument(req.Events)
	if err != nil {
		h.errorResponse(w, r, calendar.ErrInvalidDocument.Error())
		return
	}
	if string(req.Events) == "null" {
		events = nil
	}

	if err := h.calendar.ReplaceDocument(r.Context(), events); err != nil {
		h.calendarError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationUpdateEvent, fmt.Sprintf("批量更新日历，共 %d 天", len(events)))
	h.successResponse(w, r, "日历更新成功", nil)
}

type calendarDay struct {
	domain.DayData
	holidayInfo
}

func (h *Handler) GetCalendarDay(w http.ResponseWriter, r *http.Request) {
	date, ok := domain.CanonicalDate(chi.URLParam(r, "date"))
	if !ok {
		h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
		return
	}

	day, exists, err := h.calendar.Day(r.Context(), date)
	if err != nil {
		h.calendarError(w, r, err)
		return
	}
	if !exists {
		day = domain.DayData{Date: date, Activities: []domain.Activity{}}
	}
	day.Date = date

	h.successResponse(w, r, "获取日期详情成功", calendarDay{
		DayData:     day,
		holidayInfo: h.holidayInfo(date),
	})
}

func (h *Handler) AddActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string `json:"date" validate:"required"`
		Description string `json:"description" validate:"required,max=500"`
		Type        string `json:"type" validate:"omitempty,oneof=QHRC SI DI MH"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 前端可能传入完整的时间戳
	date, ok := domain.CanonicalDate(req.Date)
	if !ok {
		h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
		return
	}

	activity, err := h.calendar.AddActivity(r.Context(), date, domain.NewActivity{
		Description: req.Description,
		Type:        domain.ActivityType(req.Type),
	})
	if err != nil {
		h.calendarError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationCreateEvent, fmt.Sprintf("在 %s 添加活动: %s（%s）", date, activity.Description, activity.Type))
	h.successResponse(w, r, "活动添加成功", domain.ActivityRecord{
		Date:        date,
		ActivityID:  activity.ID,
		Description: activity.Description,
		Type:        activity.Type,
	})
}

func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	activityID := r.URL.Query().Get("activityId")
	if activityID == "" {
		h.errorResponse(w, r, "缺少活动ID")
		return
	}
	date, ok := domain.CanonicalDate(r.URL.Query().Get("date"))
	if !ok {
		h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
		return
	}

	deleted, err := h.calendar.DeleteActivity(r.Context(), date, activityID)
	if err != nil {
		h.calendarError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationDeleteEvent, fmt.Sprintf("删除 %s 的活动: %s", date, deleted.Description))
	h.successResponse(w, r, "活动删除成功", nil)
}

func (h *Handler) GetAllActivities(w http.ResponseWriter, r *http.Request) {
	records, err := h.calendar.Activities(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取全部活动成功", records)
}
