package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/config"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/holiday"
)

// Repository 是 handler 用到的数据库操作，*repository.Repository 实现了这个接口
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error

	InsertCustomHoliday(ctx context.Context, h *domain.CustomHoliday) error
	DeleteCustomHoliday(ctx context.Context, id string) (*domain.CustomHoliday, error)

	GetOperationLogs(ctx context.Context, page, pageSize int) ([]*domain.OperationLog, int, error)
}

// Publisher 向 rabbitmq 发送消息，*amqp.Channel 实现了这个接口
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// HolidayNotifier 通知其他进程自定义节假日已经改变
type HolidayNotifier interface {
	NotifyChanged(ctx context.Context) error
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository Repository
	translator ut.Translator
	publisher  Publisher
	notifier   HolidayNotifier
	calendar   *calendar.Store
	holidays   *holiday.Manager

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, store *calendar.Store, holidays *holiday.Manager, publisher Publisher, notifier HolidayNotifier) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		notifier:   notifier,
		calendar:   store,
		holidays:   holidays,

		Mux: chi.NewRouter(),
	}, nil
}

var (
	managementRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
	superAdminRoles = []domain.Role{domain.RoleSuperAdmin}
)

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(superAdminRoles))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
				r.Post("/reset-password", h.ResetUserPassword)
			})
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/", h.GetCalendar)
			r.With(h.RequiredRole(superAdminRoles)).Put("/", h.ReplaceCalendar)
			r.Get("/days/{date}", h.GetCalendarDay)
			r.With(h.RequiredRole(superAdminRoles)).Get("/all-activities", h.GetAllActivities)
			r.Route("/activities", func(r chi.Router) {
				r.With(h.RequiredRole(managementRoles)).Post("/", h.AddActivity)
				r.With(h.RequiredRole(superAdminRoles)).Delete("/", h.DeleteActivity)
			})
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.GetHolidays)
			r.Route("/custom", func(r chi.Router) {
				r.Get("/", h.GetCustomHolidays)
				r.With(h.RequiredRole(managementRoles)).Post("/", h.CreateCustomHoliday)
				r.With(h.RequiredRole(superAdminRoles)).Delete("/", h.DeleteCustomHoliday)
			})
		})

		r.With(h.RequiredRole(superAdminRoles)).Get("/operations", h.GetOperationLogs)
		r.Get("/statistics/activities", h.GetActivityStatistics)
	})
}
