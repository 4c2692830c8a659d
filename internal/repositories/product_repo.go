package repositories

import (
	"errors"

	"catalog/internal/models"
)

// ErrPersistence is wrapped by repository failures (constraint
// violations, connectivity) so callers can recognize the kind with
// errors.Is. A missing record is not a failure: GetByID reports it as
// a nil result.
var ErrPersistence = errors.New("persistence failed")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	// GetByID returns (nil, nil) when no product has the given id.
	GetByID(id uint) (*models.Product, error)
	// Create inserts the record and assigns its ID.
	Create(product *models.Product) error
	// Save commits changes made to an already loaded record.
	Save(product *models.Product) error
	Delete(product *models.Product) error
}
