package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/qhrc-dev/team-calendar/backend/internal/cache"
	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/config"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/holiday"
	"golang.org/x/crypto/bcrypt"
)

type fakeDocuments struct {
	mu  sync.Mutex
	doc domain.CalendarDocument
}

func (f *fakeDocuments) GetDocument(ctx context.Context, calendarID string) (domain.CalendarDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return nil, sql.ErrNoRows
	}
	return f.doc.Clone(), nil
}

func (f *fakeDocuments) UpsertDocument(ctx context.Context, calendarID string, doc domain.CalendarDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc.Clone()
	return nil
}

type fakeRepository struct {
	users          map[int64]*domain.User
	customHolidays map[string]*domain.CustomHoliday
	insertErr      error
	beforeInsert   func()
	logs           []*domain.OperationLog
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:          map[int64]*domain.User{},
		customHolidays: map[string]*domain.CustomHoliday{},
	}
}

func (f *fakeRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (f *fakeRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeRepository) CreateUser(ctx context.Context, user *domain.User) error {
	user.ID = int64(len(f.users) + 100)
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	user.Version++
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeRepository) DeleteUser(ctx context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

func (f *fakeRepository) ListCustomHolidays(ctx context.Context) ([]*domain.CustomHoliday, error) {
	var all []*domain.CustomHoliday
	for _, h := range f.customHolidays {
		c := *h
		all = append(all, &c)
	}
	return all, nil
}

func (f *fakeRepository) InsertCustomHoliday(ctx context.Context, h *domain.CustomHoliday) error {
	if f.beforeInsert != nil {
		f.beforeInsert()
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	c := *h
	f.customHolidays[h.ID] = &c
	return nil
}

func (f *fakeRepository) DeleteCustomHoliday(ctx context.Context, id string) (*domain.CustomHoliday, error) {
	h, ok := f.customHolidays[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(f.customHolidays, id)
	return h, nil
}

func (f *fakeRepository) GetOperationLogs(ctx context.Context, page, pageSize int) ([]*domain.OperationLog, int, error) {
	return f.logs, len(f.logs), nil
}

type published struct {
	queue string
	body  []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{queue: key, body: msg.Body})
	return nil
}

func (p *fakePublisher) operations() []domain.OperationLog {
	p.mu.Lock()
	defer p.mu.Unlock()
	var logs []domain.OperationLog
	for _, m := range p.messages {
		if m.queue != OperationLogQueue {
			continue
		}
		var log domain.OperationLog
		_ = json.Unmarshal(m.body, &log)
		logs = append(logs, log)
	}
	return logs
}

type fakeNotifier struct {
	calls int
}

func (n *fakeNotifier) NotifyChanged(ctx context.Context) error {
	n.calls++
	return nil
}

type testEnv struct {
	h         *Handler
	repo      *fakeRepository
	docs      *fakeDocuments
	publisher *fakePublisher
	notifier  *fakeNotifier
	holidays  *holiday.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 1
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.InitialAdmin.Username = "admin"
	cfg.NewUser.PasswordLength = 12

	env := &testEnv{
		repo:      newFakeRepository(),
		docs:      &fakeDocuments{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		holidays:  holiday.NewManager(nil),
	}
	store := calendar.NewStore(env.docs, cache.New[domain.CalendarDocument](), "shared", time.Minute)

	h, err := NewHandler(cfg, env.repo, store, env.holidays, env.publisher, env.notifier)
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}
	h.RegisterRoutes()
	env.h = h
	return env
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var testUsers = map[domain.Role]*domain.User{
	domain.RoleUser:       {ID: 3, Username: "viewer", Role: domain.RoleUser},
	domain.RoleAdmin:      {ID: 2, Username: "editor", Role: domain.RoleAdmin},
	domain.RoleSuperAdmin: {ID: 1, Username: "root", Role: domain.RoleSuperAdmin},
}

// do 以 role 的身份发起请求，role 为空表示未登录
func (e *testEnv) do(t *testing.T, method, path, body string, role domain.Role) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		token, _, err := e.h.signToken(testUsers[role])
		if err != nil {
			t.Fatalf("Failed to sign token: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(rec, req)

	var resp testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestUnauthenticatedRequest(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodGet, "/calendar", "", "")
	if resp.Success || resp.Message != "用户未登录" {
		t.Errorf("Expected not logged in, got %+v", resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "无效的令牌") {
		t.Errorf("Expected invalid token, got %s", rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env.repo.users[7] = &domain.User{ID: 7, Username: "zhangsan", PasswordHash: string(hash), Role: domain.RoleAdmin}

	_, resp := env.do(t, http.MethodPost, "/auth/login", `{"username":"zhangsan","password":"wrong"}`, "")
	if resp.Success {
		t.Error("Expected wrong password to fail")
	}

	rec, resp := env.do(t, http.MethodPost, "/auth/login", `{"username":"zhangsan","password":"password123"}`, "")
	if !resp.Success {
		t.Fatalf("Expected login to succeed, got %+v", resp)
	}
	if strings.Contains(string(resp.Data), "password") {
		t.Error("Password hash must not be serialized")
	}

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("Expected token cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	id, err := env.h.parseIdentity(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id.UserID != 7 || id.Username != "zhangsan" || id.Role != domain.RoleAdmin {
		t.Errorf("Unexpected identity %+v", id)
	}

	ops := env.publisher.operations()
	if len(ops) != 1 || ops[0].OperationType != domain.OperationLogin {
		t.Errorf("Expected login operation log, got %v", ops)
	}
}

func TestUpdateMyPassword(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env.repo.users[2] = &domain.User{ID: 2, Username: "editor", PasswordHash: string(hash), Role: domain.RoleAdmin}

	_, resp := env.do(t, http.MethodPatch, "/my-info/password", `{"oldPassword":"password123","newPassword":"password123"}`, domain.RoleAdmin)
	if resp.Success {
		t.Error("Expected unchanged password to be rejected")
	}

	_, resp = env.do(t, http.MethodPatch, "/my-info/password", `{"oldPassword":"wrong-password","newPassword":"newpassword456"}`, domain.RoleAdmin)
	if resp.Success || resp.Message != "旧密码错误" {
		t.Errorf("Expected wrong old password to be rejected, got %+v", resp)
	}

	rec, resp := env.do(t, http.MethodPatch, "/my-info/password", `{"oldPassword":"password123","newPassword":"newpassword456"}`, domain.RoleAdmin)
	if !resp.Success {
		t.Fatalf("Expected password change to succeed, got %+v", resp)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(env.repo.users[2].PasswordHash), []byte("newpassword456")); err != nil {
		t.Error("Expected new password to be stored")
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Expected token cookie to be cleared after password change")
	}
}

func TestAddActivityPermissions(t *testing.T) {
	env := newTestEnv(t)
	body := `{"date":"2025-03-10","description":"Kickoff","type":"QHRC"}`

	_, resp := env.do(t, http.MethodPost, "/calendar/activities", body, domain.RoleUser)
	if resp.Success || resp.Message != "权限不足" {
		t.Errorf("Expected user to be rejected, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/calendar/activities", body, domain.RoleAdmin)
	if !resp.Success {
		t.Fatalf("Expected admin to add activity, got %+v", resp)
	}
	var record domain.ActivityRecord
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		t.Fatal(err)
	}
	if record.Date != "2025-03-10" || record.ActivityID == "" {
		t.Errorf("Unexpected record %+v", record)
	}

	_, resp = env.do(t, http.MethodGet, "/calendar", "", domain.RoleUser)
	var doc domain.CalendarDocument
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatal(err)
	}
	if got := doc["2025-03-10"].Activities; len(got) != 1 || got[0].Description != "Kickoff" {
		t.Errorf("Expected activity visible to users, got %v", doc)
	}

	ops := env.publisher.operations()
	if len(ops) != 1 || ops[0].OperationType != domain.OperationCreateEvent || ops[0].Username != "editor" {
		t.Errorf("Expected create_event operation log, got %v", ops)
	}
}

func TestAddActivityAcceptsTimestampAndDefaultsType(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodPost, "/calendar/activities", `{"date":"2025-03-10T08:00:00Z","description":"例会"}`, domain.RoleAdmin)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if got := env.docs.doc["2025-03-10"].Activities; len(got) != 1 || got[0].Type != domain.ActivityQHRC {
		t.Errorf("Unexpected stored activities %v", got)
	}

	_, resp = env.do(t, http.MethodPost, "/calendar/activities", `{"date":"10/03/2025","description":"例会"}`, domain.RoleAdmin)
	if resp.Success {
		t.Error("Expected malformed date to be rejected")
	}
	_, resp = env.do(t, http.MethodPost, "/calendar/activities", `{"date":"2025-03-10","description":"例会","type":"XX"}`, domain.RoleAdmin)
	if resp.Success {
		t.Error("Expected unknown type to be rejected")
	}
}

func TestDeleteActivity(t *testing.T) {
	env := newTestEnv(t)
	env.docs.doc = domain.CalendarDocument{
		"2025-03-10": {Date: "2025-03-10", Activities: []domain.Activity{{ID: "a1", Description: "Kickoff", Type: domain.ActivityQHRC}}},
	}

	_, resp := env.do(t, http.MethodDelete, "/calendar/activities?date=2025-03-10&activityId=a1", "", domain.RoleAdmin)
	if resp.Success || resp.Message != "权限不足" {
		t.Errorf("Expected admin to be rejected, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodDelete, "/calendar/activities?date=2025-03-10&activityId=missing", "", domain.RoleSuperAdmin)
	if resp.Success || !strings.Contains(resp.Message, "活动不存在") {
		t.Errorf("Expected activity not found, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodDelete, "/calendar/activities?date=2025-03-10&activityId=a1", "", domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected delete to succeed, got %+v", resp)
	}
	if _, ok := env.docs.doc["2025-03-10"]; ok {
		t.Error("Expected empty date to be removed")
	}
}

func TestReplaceCalendar(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodPut, "/calendar", `{"events":{"bad-date":{"activities":[{"id":"1","description":"x","type":"QHRC"}]}}}`, domain.RoleSuperAdmin)
	if resp.Success {
		t.Error("Expected invalid document to be rejected")
	}
	if env.docs.doc != nil {
		t.Error("Expected nothing to be written")
	}

	_, resp = env.do(t, http.MethodPut, "/calendar", `{"events":{"2025-05-01":{"activities":[{"id":"1","description":"x","type":"MH"}]}}}`, domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected replace to succeed, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/calendar/days/2025-05-01", "", domain.RoleUser)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	var day struct {
		Date       string            `json:"date"`
		Activities []domain.Activity `json:"activities"`
		IsHoliday  bool              `json:"isHoliday"`
		Names      []string          `json:"names"`
	}
	if err := json.Unmarshal(resp.Data, &day); err != nil {
		t.Fatal(err)
	}
	if day.Date != "2025-05-01" || len(day.Activities) != 1 || !day.IsHoliday || len(day.Names) == 0 {
		t.Errorf("Unexpected day %+v", day)
	}
}

func TestReplaceCalendarLegacyLayout(t *testing.T) {
	env := newTestEnv(t)

	body := `{"events":{"2025-03-10":{"cityRecords":[{"activities":[{"id":"a","description":"Kickoff","type":"QHRC"}]},{"activities":[{"id":"b","description":"评审","type":"SI"}]}]}}}`
	_, resp := env.do(t, http.MethodPut, "/calendar", body, domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected legacy layout to be accepted, got %+v", resp)
	}

	day, ok := env.docs.doc["2025-03-10"]
	if !ok {
		t.Fatalf("Expected 2025-03-10 to be stored, got %v", env.docs.doc)
	}
	if day.Date != "2025-03-10" || len(day.Activities) != 2 || day.Activities[0].ID != "a" || day.Activities[1].ID != "b" {
		t.Errorf("Expected city records to be flattened, got %+v", day)
	}
}

func TestReplaceCalendarRejectsUnknownShape(t *testing.T) {
	env := newTestEnv(t)
	env.docs.doc = domain.CalendarDocument{
		"2025-03-10": {Date: "2025-03-10", Activities: []domain.Activity{{ID: "a1", Description: "Kickoff", Type: domain.ActivityQHRC}}},
	}

	for _, body := range []string{
		`{"events":{"2025-03-10":{"foo":1}}}`,
		`{"events":{"2025-03-10":{"activities":null}}}`,
		`{"events":null}`,
		`{"events":[1,2]}`,
		`{}`,
	} {
		_, resp := env.do(t, http.MethodPut, "/calendar", body, domain.RoleSuperAdmin)
		if resp.Success {
			t.Errorf("Expected %s to be rejected", body)
		}
	}

	if got := env.docs.doc["2025-03-10"].Activities; len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Expected stored calendar to be untouched, got %v", env.docs.doc)
	}
	if ops := env.publisher.operations(); len(ops) != 0 {
		t.Errorf("Expected no operation log for rejected replace, got %v", ops)
	}
}

func TestGetHolidays(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodGet, "/holidays?date=2025-01-26", "", domain.RoleUser)
	var info holidayInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.IsHoliday || !info.IsWorkday || len(info.Names) != 0 {
		t.Errorf("Expected 2025-01-26 to be an adjusted workday, got %+v", info)
	}

	_, resp = env.do(t, http.MethodGet, "/holidays?year=2025&month=2", "", domain.RoleUser)
	var month map[string]holidayInfo
	if err := json.Unmarshal(resp.Data, &month); err != nil {
		t.Fatal(err)
	}
	if _, ok := month["2025-02-14"]; !ok {
		t.Errorf("Expected Valentine's Day in February 2025, got %v", month)
	}
	for date := range month {
		if !strings.HasPrefix(date, "2025-02-") {
			t.Errorf("Unexpected date %s", date)
		}
	}

	_, resp = env.do(t, http.MethodGet, "/holidays?year=abc", "", domain.RoleUser)
	if resp.Success {
		t.Error("Expected invalid year to be rejected")
	}
}

func TestGetHolidaysDefaultsToCurrentYear(t *testing.T) {
	env := newTestEnv(t)
	year := time.Now().Year()

	_, resp := env.do(t, http.MethodGet, "/holidays?month=12", "", domain.RoleUser)
	if !resp.Success {
		t.Fatalf("Expected success without year, got %+v", resp)
	}
	var month map[string]holidayInfo
	if err := json.Unmarshal(resp.Data, &month); err != nil {
		t.Fatal(err)
	}
	christmas := fmt.Sprintf("%d-12-25", year)
	if _, ok := month[christmas]; !ok {
		t.Errorf("Expected %s in current year, got %v", christmas, month)
	}

	_, resp = env.do(t, http.MethodGet, "/holidays", "", domain.RoleUser)
	if !resp.Success {
		t.Fatalf("Expected success without any query, got %+v", resp)
	}
	var all map[string]holidayInfo
	if err := json.Unmarshal(resp.Data, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) == 0 {
		t.Error("Expected holidays for the current year")
	}
	for date := range all {
		if !strings.HasPrefix(date, fmt.Sprintf("%d-", year)) {
			t.Errorf("Unexpected date %s", date)
		}
	}
}

func TestCustomHolidayLifecycle(t *testing.T) {
	env := newTestEnv(t)
	body := `{"date":"2025-06-18","name":"团队日","description":"年度团建"}`

	_, resp := env.do(t, http.MethodPost, "/holidays/custom", body, domain.RoleAdmin)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	var created domain.CustomHoliday
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.Category != domain.HolidayCustom || created.CreatedBy != 2 {
		t.Errorf("Unexpected custom holiday %+v", created)
	}
	if _, ok := env.repo.customHolidays[created.ID]; !ok {
		t.Error("Expected custom holiday to be persisted")
	}
	if env.notifier.calls != 1 {
		t.Errorf("Expected 1 notification, got %d", env.notifier.calls)
	}
	if !env.holidays.IsHoliday("2025-06-18") {
		t.Error("Expected custom holiday to be visible immediately")
	}

	_, resp = env.do(t, http.MethodDelete, "/holidays/custom?id="+created.ID, "", domain.RoleAdmin)
	if resp.Success {
		t.Error("Expected admin delete to be rejected")
	}

	_, resp = env.do(t, http.MethodDelete, "/holidays/custom?id="+created.ID, "", domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected delete to succeed, got %+v", resp)
	}
	if env.holidays.IsHoliday("2025-06-18") {
		t.Error("Expected custom holiday to be removed from memory")
	}

	_, resp = env.do(t, http.MethodDelete, "/holidays/custom?id="+created.ID, "", domain.RoleSuperAdmin)
	if resp.Success {
		t.Error("Expected second delete to report not found")
	}
}

func TestCustomHolidaySurvivesConcurrentRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.holidays = holiday.NewManager(env.repo)
	env.h.holidays = env.holidays
	// 模拟另一个实例的通知在写库之前触发了强制刷新
	env.repo.beforeInsert = func() {
		if err := env.holidays.RefreshCustomHolidays(context.Background(), true); err != nil {
			t.Errorf("Unexpected refresh error: %v", err)
		}
	}

	_, resp := env.do(t, http.MethodPost, "/holidays/custom", `{"date":"2025-06-18","name":"团队日"}`, domain.RoleAdmin)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if !env.holidays.IsHoliday("2025-06-18") {
		t.Error("Expected custom holiday to stay in memory after refresh")
	}

	// 写库之后再刷新也不会产生重复记录
	env.repo.beforeInsert = nil
	if err := env.holidays.RefreshCustomHolidays(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got := env.holidays.CustomHolidays(); len(got) != 1 {
		t.Errorf("Expected exactly 1 custom holiday, got %v", got)
	}
}

func TestCustomHolidayInsertFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.repo.insertErr = errors.New("db down")

	rec, resp := env.do(t, http.MethodPost, "/holidays/custom", `{"date":"2025-06-18","name":"团队日"}`, domain.RoleAdmin)
	if rec.Code != http.StatusInternalServerError || resp.Success {
		t.Errorf("Expected 500, got %d %+v", rec.Code, resp)
	}
	if len(env.holidays.CustomHolidays()) != 0 {
		t.Error("Expected in-memory custom holiday to be rolled back")
	}
	if env.notifier.calls != 0 {
		t.Error("Expected no notification on failure")
	}
}

func TestOperationLogFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker unavailable")

	_, resp := env.do(t, http.MethodPost, "/calendar/activities", `{"date":"2025-03-10","description":"Kickoff"}`, domain.RoleAdmin)
	if !resp.Success {
		t.Errorf("Expected success despite audit failure, got %+v", resp)
	}
}

func TestActivityStatistics(t *testing.T) {
	env := newTestEnv(t)
	env.docs.doc = domain.CalendarDocument{
		"2025-03-10": {Activities: []domain.Activity{{ID: "1", Description: "一", Type: domain.ActivitySI}}},
		"2025-04-01": {Activities: []domain.Activity{{ID: "2", Description: "二", Type: domain.ActivityQHRC}}},
	}

	_, resp := env.do(t, http.MethodGet, "/statistics/activities?start=2025-03-01&end=2025-03-31", "", domain.RoleUser)
	var stats calendar.Statistics
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.ByType[domain.ActivitySI] != 1 {
		t.Errorf("Unexpected statistics %+v", stats)
	}

	_, resp = env.do(t, http.MethodGet, "/statistics/activities?start=2025-04-01&end=2025-03-01", "", domain.RoleUser)
	if resp.Success {
		t.Error("Expected inverted range to be rejected")
	}
}

func TestCreateUserSendsMail(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodPost, "/users", `{"username":"lisi","fullName":"李四","email":"lisi@example.com","role":"admin"}`, domain.RoleAdmin)
	if resp.Success {
		t.Error("Expected admin to be rejected")
	}

	_, resp = env.do(t, http.MethodPost, "/users", `{"username":"lisi","fullName":"李四","email":"lisi@example.com","role":"owner"}`, domain.RoleSuperAdmin)
	if resp.Success {
		t.Error("Expected unknown role to be rejected")
	}

	_, resp = env.do(t, http.MethodPost, "/users", `{"username":"lisi","fullName":"李四","email":"lisi@example.com","role":"admin"}`, domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}

	var mail struct {
		Type string                    `json:"type"`
		To   string                    `json:"to"`
		Data domain.CreateUserMailData `json:"data"`
	}
	found := false
	for _, m := range env.publisher.messages {
		if m.queue == EmailQueue {
			if err := json.Unmarshal(m.body, &mail); err != nil {
				t.Fatal(err)
			}
			found = true
		}
	}
	if !found || mail.Type != domain.MailCreateUser || mail.To != "lisi@example.com" || len(mail.Data.Password) != 12 {
		t.Errorf("Unexpected mail %+v", mail)
	}
}

func TestInitialAdminIsProtected(t *testing.T) {
	env := newTestEnv(t)
	env.repo.users[1] = &domain.User{ID: 1, Username: "admin", Role: domain.RoleSuperAdmin}

	_, resp := env.do(t, http.MethodDelete, "/users/1", "", domain.RoleSuperAdmin)
	if resp.Success || resp.Message != "禁止操作初始管理员" {
		t.Errorf("Expected initial admin to be protected, got %+v", resp)
	}
	if _, ok := env.repo.users[1]; !ok {
		t.Error("Expected initial admin to remain")
	}
}

func TestOperationLogsPagination(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodGet, "/operations?page=0", "", domain.RoleSuperAdmin)
	if resp.Success {
		t.Error("Expected invalid page to be rejected")
	}

	_, resp = env.do(t, http.MethodGet, "/operations?page=2&pageSize=500", "", domain.RoleSuperAdmin)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	var page struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	}
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Page != 2 || page.PageSize != maxPageSize {
		t.Errorf("Unexpected pagination %+v", page)
	}
}
