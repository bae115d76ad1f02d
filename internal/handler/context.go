package handler

import (
	"net/http"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

type ContextKey string

var (
	IdentityCtx ContextKey = "identity"
	MyInfoCtx   ContextKey = "myInfo"
	UserInfoCtx ContextKey = "userInfo"
)

// identity 只能在 auth 中间件之后调用
func identity(r *http.Request) domain.Identity {
	return r.Context().Value(IdentityCtx).(domain.Identity)
}
