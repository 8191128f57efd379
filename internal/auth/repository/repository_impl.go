package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, username, name, email, phone, role, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET name = ?, email = ?, phone = ?, role = ?, password_hash = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.UpdatedAt,
		user.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM users WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return r.findOne(ctx, db, "username = ?", username)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.User, error) {
	var users []domain.User
	if err := db.WithContext(ctx).Where(query, arg).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.User, error) {
	var users []*domain.User
	if err := db.WithContext(ctx).Order("username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}
