package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("%w: create user failed: %v", ErrStorage, err)
	}
	return nil
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query user by id failed: %v", ErrStorage, err)
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query user by username failed: %v", ErrStorage, err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateRole(userID uint, role model.Role) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("role", role).Error; err != nil {
		return fmt.Errorf("%w: update user role failed: %v", ErrStorage, err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query user by email failed: %v", ErrStorage, err)
	}
	return &user, nil
}
