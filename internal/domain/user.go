package domain

import (
	"time"
)

type Role string

const (
	RoleUser       Role = "user"        // 普通用户：只能查看
	RoleAdmin      Role = "admin"       // 管理员：可以添加
	RoleSuperAdmin Role = "super_admin" // 超级管理员：可以添加和删除
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int32     `json:"-"`
}

// Identity 是请求中经过认证的用户身份
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

func (i Identity) HasManagementAccess() bool {
	return i.Role == RoleAdmin || i.Role == RoleSuperAdmin
}

func (i Identity) HasSuperAdminAccess() bool {
	return i.Role == RoleSuperAdmin
}
