package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"context"
	"strings"
)

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo *repository.UserRepository
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// EnsureUser 根据令牌身份获取员工，首次出现时以 staff 角色创建；姓名缺省为邮箱前缀
func (s *UserService) EnsureUser(ctx context.Context, identity *Identity) (*model.User, error) {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}

	return s.UserRepo.FirstOrCreateBySubject(ctx, &model.User{
		Subject: identity.Subject,
		Email:   identity.Email,
		Name:    name,
		Role:    model.Staff,
	})
}
