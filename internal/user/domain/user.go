// Package domain 用户服务的领域模型
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Role 用户角色，闭合枚举
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid 判断角色是否为已知枚举值
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin, RoleEmployee:
		return true
	}
	return false
}

// IsStaff 判断是否为后台人员（管理员或雇员）
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Actor 每次业务调用的显式身份，替代从请求环境中隐式读取当前用户
type Actor struct {
	UserID uint
	Role   Role
}

// User 用户实体
type User struct {
	gorm.Model
	// 用户名，唯一
	Username string `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	// 邮箱，唯一
	Email string `gorm:"column:email;type:varchar(128);uniqueIndex;not null" json:"email"`
	// 密码哈希
	PasswordHash string `gorm:"column:password_hash;type:varchar(128);not null" json:"-"`
	// 角色
	Role Role `gorm:"column:role;type:varchar(16);not null;default:'CUSTOMER'" json:"role"`
	// 收货地址
	Address string `gorm:"column:address;type:varchar(255)" json:"address"`
	// 城市
	City string `gorm:"column:city;type:varchar(64)" json:"city"`
	// 邮编
	PostalCode string `gorm:"column:postal_code;type:varchar(16)" json:"postal_code"`
	// 联系电话
	Phone string `gorm:"column:phone;type:varchar(32)" json:"phone"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// NewUser 创建用户
func NewUser(username, email, passwordHash string, role Role) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
}

// Actor 返回该用户对应的调用身份
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// 领域错误
var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateUser      = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRole        = errors.New("invalid role")
)

// UserRepository 用户仓储接口
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// Session 登录会话
type Session struct {
	Token  string `json:"token"`
	UserID uint   `json:"user_id"`
	Role   Role   `json:"role"`
}

// SessionRepository 会话仓储接口，由 Redis 实现
type SessionRepository interface {
	Save(ctx context.Context, session *Session, ttlSeconds int) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
