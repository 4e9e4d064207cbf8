// Package application 用户服务的应用层
package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// UserService 用户服务，负责注册、登录与资料维护
type UserService struct {
	repo       domain.UserRepository
	sessions   domain.SessionRepository
	sessionTTL int
}

// NewUserService 构造函数
func NewUserService(repo domain.UserRepository, sessions domain.SessionRepository, sessionTTL int) *UserService {
	return &UserService{
		repo:       repo,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// RegisterCommand 注册命令
type RegisterCommand struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error) {
	role := cmd.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(cmd.Username, cmd.Email, string(hash), role)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "user registered", "user_id", user.ID, "role", role)
	return user, nil
}

// Login 校验凭证并创建会话，返回会话 token
func (s *UserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	session := &domain.Session{
		Token:  uuid.New().String(),
		UserID: user.ID,
		Role:   user.Role,
	}
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return "", nil, err
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	return session.Token, user, nil
}

// Logout 删除会话
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve 根据会话 token 解析调用身份；无效 token 返回 nil
func (s *UserService) Resolve(ctx context.Context, token string) (*domain.Actor, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return &domain.Actor{UserID: session.UserID, Role: session.Role}, nil
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return s.repo.GetByID(ctx, actor.UserID)
}

// UpdateAddressCommand 更新收货地址命令
type UpdateAddressCommand struct {
	Address    string
	City       string
	PostalCode string
	Phone      string
}

// UpdateAddress 更新收货地址
func (s *UserService) UpdateAddress(ctx context.Context, actor domain.Actor, cmd UpdateAddressCommand) error {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	user.Address = cmd.Address
	user.City = cmd.City
	user.PostalCode = cmd.PostalCode
	user.Phone = cmd.Phone

	return s.repo.Update(ctx, user)
}
