package domain

import "time"

type HolidayCategory string

const (
	HolidayMainland    HolidayCategory = "mainland"
	HolidayRegional    HolidayCategory = "regional"
	HolidayWestern     HolidayCategory = "western"
	HolidayTraditional HolidayCategory = "traditional"
	HolidayCustom      HolidayCategory = "custom"
)

// Holiday 表示某一天的节假日信息，Date 为 YYYY-MM-DD 格式
type Holiday struct {
	Date              string          `json:"date"`
	Name              string          `json:"name"`
	Category          HolidayCategory `json:"type"`
	IsAdjustedWorkday bool            `json:"isWorkday,omitempty"` // 调休工作日
	Description       string          `json:"description,omitempty"`
}

type CustomHoliday struct {
	Holiday
	ID        string    `json:"id"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewCustomHoliday struct {
	Date        string
	Name        string
	Description string
	CreatedBy   int64
}
