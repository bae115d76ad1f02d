package domain

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

type ActivityType string

const (
	ActivityQHRC ActivityType = "QHRC" // QHRC中心
	ActivitySI   ActivityType = "SI"   // 智能传感器与影像实验室
	ActivityDI   ActivityType = "DI"   // 智能设计与创新实验室
	ActivityMH   ActivityType = "MH"   // 智慧医疗与健康实验室
)

var ActivityTypes = []ActivityType{ActivityQHRC, ActivitySI, ActivityDI, ActivityMH}

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityQHRC, ActivitySI, ActivityDI, ActivityMH:
		return true
	}
	return false
}

type Activity struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Type        ActivityType `json:"type"`
}

type NewActivity struct {
	Description string
	Type        ActivityType
}

type DayData struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// CalendarDocument 是共享日历的完整文档，键为 YYYY-MM-DD
type CalendarDocument map[string]DayData

func (d CalendarDocument) Clone() CalendarDocument {
	c := make(CalendarDocument, len(d))
	for k, day := range d {
		activities := make([]Activity, len(day.Activities))
		copy(activities, day.Activities)
		c[k] = DayData{Date: day.Date, Activities: activities}
	}
	return c
}

// ActivityRecord 是展开后的单条活动，用于导出和统计
type ActivityRecord struct {
	Date        string       `json:"date"`
	ActivityID  string       `json:"activityId"`
	Description string       `json:"description"`
	Type        ActivityType `json:"type"`
}

type rawDayData struct {
	Date        string     `json:"date"`
	Activities  []Activity `json:"activities"`
	CityRecords []struct {
		Activities []Activity `json:"activities"`
	} `json:"cityRecords"`
}

// DecodeCalendarDocument 解析日历文档，并把旧的 cityRecords 结构合并为 activities。
// 既没有 activities 也没有 cityRecords 的日期，其 Activities 保持为 nil，由调用方决定是否拒绝。
func DecodeCalendarDocument(data []byte) (CalendarDocument, error) {
	doc := CalendarDocument{}
	if len(data) == 0 || string(data) == "null" {
		return doc, nil
	}

	raw := map[string]rawDayData{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	for key, day := range raw {
		activities := day.Activities
		if activities == nil && day.CityRecords != nil {
			activities = []Activity{}
			for _, record := range day.CityRecords {
				activities = append(activities, record.Activities...)
			}
		}
		doc[key] = DayData{
			Date:       day.Date,
			Activities: activities,
		}
	}

	return doc, nil
}

// CanonicalDate 把任意可解析的日期或时间戳转换成 YYYY-MM-DD
func CanonicalDate(s string) (string, bool) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), true
	}
	return "", false
}
