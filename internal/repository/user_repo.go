package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
)

// UserRepository provides data access for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLogin looks a user up by email or username.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", login, login).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin reports whether id holds the admin role.
func (r *UserRepository) IsAdmin(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ? AND role = ?", id, db.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) SetVerified(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ?", id).
		Update("is_verified", true).Error
}

func (r *UserRepository) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// UpdateFields applies an admin patch. Keys are column names.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
