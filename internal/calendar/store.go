// Package calendar implements read-modify-write of the shared calendar
// document. Reads go through a short-lived cache; every mutation rewrites the
// whole document in the repository. Concurrent writers race and the last
// upsert wins.
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qhrc-dev/team-calendar/backend/internal/cache"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

const DefaultCacheTTL = 2 * time.Minute

var (
	ErrNotFound         = errors.New("记录不存在")
	ErrDayNotFound      = fmt.Errorf("%w: 该日期没有活动", ErrNotFound)
	ErrActivityNotFound = fmt.Errorf("%w: 活动不存在", ErrNotFound)

	ErrValidation      = errors.New("数据校验失败")
	ErrInvalidDate     = fmt.Errorf("%w: 日期格式不正确，请使用 YYYY-MM-DD 格式", ErrValidation)
	ErrInvalidDocument = fmt.Errorf("%w: 无效的数据格式", ErrValidation)
)

// DocumentRepository 是共享日历文档的持久化接口。文档不存在时 GetDocument 返回 sql.ErrNoRows。
type DocumentRepository interface {
	GetDocument(ctx context.Context, calendarID string) (domain.CalendarDocument, error)
	UpsertDocument(ctx context.Context, calendarID string, doc domain.CalendarDocument) error
}

type Store struct {
	repo       DocumentRepository
	cache      *cache.Cache[domain.CalendarDocument]
	calendarID string
	ttl        time.Duration
}

func NewStore(repo DocumentRepository, c *cache.Cache[domain.CalendarDocument], calendarID string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		repo:       repo,
		cache:      c,
		calendarID: calendarID,
		ttl:        ttl,
	}
}

func CacheKey(calendarID string) string {
	return "calendar_events_" + calendarID
}

func (s *Store) cacheKey() string {
	return CacheKey(s.calendarID)
}

// load 返回缓存中的文档或从数据库读取的文档。返回值与缓存共享，调用方不能修改。
func (s *Store) load(ctx context.Context) (domain.CalendarDocument, error) {
	if doc, ok := s.cache.Get(s.cacheKey()); ok {
		return doc, nil
	}

	doc, err := s.repo.GetDocument(ctx, s.calendarID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// 还没有任何记录，视为空文档
		doc = domain.CalendarDocument{}
	}

	s.cache.Set(s.cacheKey(), doc, s.ttl)
	return doc, nil
}

// Document 返回共享日历文档的副本
func (s *Store) Document(ctx context.Context) (domain.CalendarDocument, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Day 返回某一天的数据，第二个返回值表示该日期是否存在
func (s *Store) Day(ctx context.Context, date string) (domain.DayData, bool, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.DayData{}, false, ErrInvalidDate
	}

	doc, err := s.load(ctx)
	if err != nil {
		return domain.DayData{}, false, err
	}

	day, ok := doc.Clone()[date]
	return day, ok, nil
}

func (s *Store) save(ctx context.Context, doc domain.CalendarDocument) error {
	if err := s.repo.UpsertDocument(ctx, s.calendarID, doc); err != nil {
		return err
	}
	s.cache.Set(s.cacheKey(), doc, s.ttl)
	return nil
}

// AddActivity 在指定日期追加一条活动。每次调用都会生成新的 ID，重试会产生重复的活动。
func (s *Store) AddActivity(ctx context.Context, date string, in domain.NewActivity) (domain.Activity, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Activity{}, ErrInvalidDate
	}
	if in.Type == "" {
		in.Type = domain.ActivityQHRC
	}
	if !in.Type.Valid() || in.Description == "" {
		return domain.Activity{}, ErrInvalidDocument
	}

	current, err := s.load(ctx)
	if err != nil {
		return domain.Activity{}, err
	}
	doc := current.Clone()

	activity := domain.Activity{
		ID:          uuid.NewString(),
		Description: in.Description,
		Type:        in.Type,
	}

	day := doc[date]
	day.Date = date
	day.Activities = append(day.Activities, activity)
	doc[date] = day

	if err := s.save(ctx, doc); err != nil {
		return domain.Activity{}, err
	}

	return activity, nil
}

// DeleteActivity 删除指定日期中的一条活动，日期下没有活动时整个日期会被移除
func (s *Store) DeleteActivity(ctx context.Context, date, activityID string) (domain.Activity, error) {
	current, err := s.load(ctx)
	if err != nil {
		return domain.Activity{}, err
	}

	day, ok := current[date]
	if !ok {
		return domain.Activity{}, ErrDayNotFound
	}

	idx := -1
	for i, a := range day.Activities {
		if a.ID == activityID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Activity{}, ErrActivityNotFound
	}
	deleted := day.Activities[idx]

	doc := current.Clone()
	remaining := append(doc[date].Activities[:idx:idx], doc[date].Activities[idx+1:]...)
	if len(remaining) == 0 {
		delete(doc, date)
	} else {
		doc[date] = domain.DayData{Date: day.Date, Activities: remaining}
	}

	if err := s.save(ctx, doc); err != nil {
		return domain.Activity{}, err
	}

	return deleted, nil
}

// Validate 检查文档的键是否为 YYYY-MM-DD，每一天都带有 activities，活动是否具有 ID、描述和合法的类型
func Validate(doc domain.CalendarDocument) error {
	if doc == nil {
		return ErrInvalidDocument
	}

	for key, day := range doc {
		if _, err := time.Parse(domain.DateLayout, key); err != nil {
			return fmt.Errorf("%w: 日期 %q", ErrInvalidDocument, key)
		}
		if day.Activities == nil {
			return fmt.Errorf("%w: %s 缺少 activities", ErrInvalidDocument, key)
		}
		for i, a := range day.Activities {
			if a.ID == "" || a.Description == "" || !a.Type.Valid() {
				return fmt.Errorf("%w: %s 的第 %d 项活动", ErrInvalidDocument, key, i+1)
			}
		}
	}
	return nil
}

// ReplaceDocument 用 doc 整体替换共享日历，成功后使缓存失效
func (s *Store) ReplaceDocument(ctx context.Context, doc domain.CalendarDocument) error {
	if err := Validate(doc); err != nil {
		return err
	}

	// 没有活动的日期不保留
	cleaned := make(domain.CalendarDocument, len(doc))
	for key, day := range doc.Clone() {
		if len(day.Activities) == 0 {
			continue
		}
		if day.Date == "" {
			day.Date = key
		}
		cleaned[key] = day
	}

	if err := s.repo.UpsertDocument(ctx, s.calendarID, cleaned); err != nil {
		return err
	}

	s.cache.Delete(s.cacheKey())
	return nil
}

// Activities 返回展开后的所有活动，日期新的在前
func (s *Store) Activities(ctx context.Context) ([]domain.ActivityRecord, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ActivityRecord, 0)
	for date, day := range doc {
		for _, a := range day.Activities {
			records = append(records, domain.ActivityRecord{
				Date:        date,
				ActivityID:  a.ID,
				Description: a.Description,
				Type:        a.Type,
			})
		}
	}

	// 同一天内保持添加顺序
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})

	return records, nil
}
