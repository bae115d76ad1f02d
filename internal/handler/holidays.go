package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/holiday"
)

type holidayInfo struct {
	Holidays  []domain.Holiday         `json:"holidays"`
	IsHoliday bool                     `json:"isHoliday"`
	IsWorkday bool                     `json:"isWorkday"`
	Types     []domain.HolidayCategory `json:"types"`
	Names     []string                 `json:"names"`
}

func (h *Handler) holidayInfo(date string) holidayInfo {
	info := holidayInfo{
		Holidays:  h.holidays.GetHolidays(date),
		IsHoliday: h.holidays.IsHoliday(date),
		IsWorkday: h.holidays.IsAdjustedWorkday(date),
		Types:     h.holidays.HolidayCategories(date),
		Names:     h.holidays.HolidayNames(date),
	}

	// 保证 JSON 中是空数组而不是 null
	if info.Holidays == nil {
		info.Holidays = []domain.Holiday{}
	}
	if info.Types == nil {
		info.Types = []domain.HolidayCategory{}
	}
	if info.Names == nil {
		info.Names = []string{}
	}
	return info
}

// GetHolidays 支持三种查询：?date=、?year=&month= 以及 ?year=，缺省 year 时使用当前年份
func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if s := query.Get("date"); s != "" {
		date, ok := domain.CanonicalDate(s)
		if !ok {
			h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
			return
		}
		h.successResponse(w, r, "获取节假日成功", h.holidayInfo(date))
		return
	}

	year := time.Now().Year()
	if s := query.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 2200 {
			h.errorResponse(w, r, "年份无效")
			return
		}
		year = y
	}

	months := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if s := query.Get("month"); s != "" {
		month, err := strconv.Atoi(s)
		if err != nil || month < 1 || month > 12 {
			h.errorResponse(w, r, "月份无效")
			return
		}
		months = []int{month}
	}

	result := make(map[string]holidayInfo)
	for _, month := range months {
		for date := range h.holidays.MonthHolidays(year, month) {
			result[date] = h.holidayInfo(date)
		}
	}

	h.successResponse(w, r, "获取节假日成功", result)
}

func (h *Handler) GetCustomHolidays(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取自定义节假日成功", h.holidays.CustomHolidays())
}

func (h *Handler) notifyHolidaysChanged(r *http.Request) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifyChanged(r.Context()); err != nil {
		slog.Warn("无法通知其他实例刷新自定义节假日", "error", err)
	}
}

func (h *Handler) CreateCustomHoliday(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string `json:"date" validate:"required"`
		Name        string `json:"name" validate:"required,max=50"`
		Description string `json:"description" validate:"max=200"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, ok := domain.CanonicalDate(req.Date)
	if !ok {
		h.errorResponse(w, r, calendar.ErrInvalidDate.Error())
		return
	}

	ch := holiday.NewCustomHoliday(domain.NewCustomHoliday{
		Date:        date,
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   identity(r).UserID,
	}, time.Now())

	if err := h.repository.InsertCustomHoliday(r.Context(), &ch); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	// 写入成功后再放入内存，避免并发的强制刷新覆盖掉新记录
	h.holidays.PutCustomHoliday(ch)

	h.notifyHolidaysChanged(r)
	h.logOperation(r, identity(r), domain.OperationCreateHoliday, fmt.Sprintf("添加自定义节假日 %s: %s", ch.Date, ch.Name))
	h.successResponse(w, r, "自定义节假日添加成功", ch)
}

func (h *Handler) DeleteCustomHoliday(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.errorResponse(w, r, "缺少节假日ID")
		return
	}

	deleted, err := h.repository.DeleteCustomHoliday(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "自定义节假日不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.holidays.RemoveCustomHoliday(deleted.Date, deleted.ID)
	h.notifyHolidaysChanged(r)
	h.logOperation(r, identity(r), domain.OperationDeleteHoliday, fmt.Sprintf("删除自定义节假日 %s: %s", deleted.Date, deleted.Name))
	h.successResponse(w, r, "自定义节假日删除成功", nil)
}
