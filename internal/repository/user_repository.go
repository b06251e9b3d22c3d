package repository

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepository) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("subject = ?", subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return &user, err
}

// FirstOrCreateBySubject 按 subject 获取用户，不存在时创建；并发创建冲突时重新读取
func (r *UserRepository) FirstOrCreateBySubject(ctx context.Context, user *model.User) (*model.User, error) {
	existing, err := r.FindBySubject(ctx, user.Subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindBySubject(ctx, user.Subject)
		}
		return nil, err
	}
	return user, nil
}
