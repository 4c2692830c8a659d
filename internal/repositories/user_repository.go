package repositories

import "catalog/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	// GetByUsername and GetByEmail return (nil, nil) when no user matches.
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}
