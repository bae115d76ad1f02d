package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// constraintError 把唯一约束冲突转换成对用户友好的错误，其他错误返回 nil
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return errors.New("用户名已存在")
	case "users_email_key":
		return errors.New("邮箱已存在")
	}
	return nil
}

func (h *Handler) GetAllUserInfo(w http.ResponseWriter, r *http.Request) {
	users, err := h.repository.GetAllUsers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用户列表成功", users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,max=50"`
		FullName string `json:"fullName" validate:"required,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Role     string `json:"role" validate:"required,oneof=user admin super_admin"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 生成随机密码，通过邮件发送给用户
	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domain.Role(req.Role),
	}

	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		if cerr := constraintError(err); cerr != nil {
			h.badRequest(w, r, cerr)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{
			FullName: user.FullName,
			Username: user.Username,
			Password: password,
		},
	}
	if err := h.sendMail(r.Context(), mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationCreateUser, fmt.Sprintf("创建用户 %s（%s）", user.Username, user.Role))
	h.successResponse(w, r, "用户创建成功", user)
}

func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取用户信息成功", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName *string `json:"fullName" validate:"omitempty,max=50"`
		Email    *string `json:"email" validate:"omitempty,email"`
		Role     *string `json:"role" validate:"omitempty,oneof=user admin super_admin"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}

	if err := h.repository.UpdateUser(r.Context(), user); err != nil {
		if cerr := constraintError(err); cerr != nil {
			h.badRequest(w, r, cerr)
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新用户信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.logOperation(r, identity(r), domain.OperationUpdateUser, fmt.Sprintf("更新用户 %s", user.Username))
	h.successResponse(w, r, "更新用户信息成功", user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if user.ID == identity(r).UserID {
		h.errorResponse(w, r, "不能删除自己")
		return
	}

	if err := h.repository.DeleteUser(r.Context(), user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationDeleteUser, fmt.Sprintf("删除用户 %s", user.Username))
	h.successResponse(w, r, "删除用户成功", nil)
}

// ResetUserPassword 为用户生成新的随机密码并通过邮件发送
func (h *Handler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = string(hashedPassword)
	if err := h.repository.UpdateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "重置密码失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailResetPassword,
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName: user.FullName,
			Username: user.Username,
			Password: password,
		},
	}
	if err := h.sendMail(r.Context(), mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.logOperation(r, identity(r), domain.OperationUpdateUser, fmt.Sprintf("重置用户 %s 的密码", user.Username))
	h.successResponse(w, r, "新密码已通过邮件发送", nil)
}
