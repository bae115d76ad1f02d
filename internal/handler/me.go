package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// UpdateMyPassword 修改自己的密码，成功后清除登录令牌，需要用新密码重新登录
func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(me.PasswordHash), []byte(req.OldPassword)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.logOperation(r, identity(r), domain.OperationUpdateUser, "修改密码失败：旧密码错误")
			h.errorResponse(w, r, "旧密码错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	updated := *me
	updated.PasswordHash = string(hash)
	if err := h.repository.UpdateUser(r.Context(), &updated); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 版本号不一致，说明账户刚被管理员修改过
			h.errorResponse(w, r, "账户信息已被修改，请刷新后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.logOperation(r, identity(r), domain.OperationUpdateUser, "修改个人密码")
	clearTokenCookie(w)
	h.successResponse(w, r, "密码已修改，请重新登录", nil)
}
