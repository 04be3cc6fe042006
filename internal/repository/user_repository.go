package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/turnomed/badge-engine/internal/models"
)

// UserRepository reads users. The engine never writes this table; rows are
// owned by the account subsystem.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by id. Returns models.ErrNotFound if absent.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users, optionally filtered by role.
func (r *UserRepository) List(role models.Role) ([]models.User, error) {
	var users []models.User
	q := r.db.Order("id ASC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Find(&users).Error
	return users, err
}

// ListIDs returns all user ids, optionally filtered by role. Used by the
// periodic full-resync job.
func (r *UserRepository) ListIDs(role models.Role) ([]uint, error) {
	var ids []uint
	q := r.db.Model(&models.User{}).Order("id ASC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Pluck("id", &ids).Error
	return ids, err
}
