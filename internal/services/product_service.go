package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"catalog/internal/models"
	"catalog/internal/repositories"
)

// ErrValidation is wrapped by input rejections so handlers can map
// the kind to a 400 response with errors.Is.
var ErrValidation = errors.New("invalid product input")

// AssetSaver stores an uploaded binary and returns its public
// reference. Implemented by storage.AssetStore.
type AssetSaver interface {
	Save(content []byte, originalName string) (string, error)
}

// EventPublisher publishes catalog change events. Implemented by
// rabbitmq.Client; a nil publisher disables events.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductInput carries the writable product fields of a create or
// update request. Length limits are the boundary's job; the service
// only rejects fields that are empty after trimming.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
}

// ImageUpdate tells the service what to do with a product's image.
// The zero value means the caller omitted the image: on update the
// existing image is kept, on create the product starts without one.
type ImageUpdate struct {
	Replace  bool
	Filename string
	Content  []byte
}

// ProductService coordinates product records with their image assets.
type ProductService struct {
	repo   repositories.ProductRepository
	assets AssetSaver
	events EventPublisher
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, assets AssetSaver, events EventPublisher) *ProductService {
	return &ProductService{
		repo:   repo,
		assets: assets,
		events: events,
	}
}

// List retrieves all products in their external representation.
func (s *ProductService) List() ([]models.ProductResponse, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	responses := make([]models.ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, products[i].ToResponse())
	}
	return responses, nil
}

// Get retrieves a single product, or (nil, nil) when the id is unknown.
func (s *ProductService) Get(id uint) (*models.ProductResponse, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	resp := product.ToResponse()
	return &resp, nil
}

// Create validates the input, stores the image first when one was
// supplied, and only then persists the record. A storage failure
// aborts the whole operation before any record exists; a persistence
// failure after a successful asset write leaves the file orphaned
// but unreferenced.
func (s *ProductService) Create(input ProductInput, image ImageUpdate) (*models.ProductResponse, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if image.Replace {
		ref, err := s.assets.Save(image.Content, image.Filename)
		if err != nil {
			return nil, err
		}
		imageURL = &ref
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    imageURL,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}

	s.publish("product.created", product.ID)

	resp := product.ToResponse()
	return &resp, nil
}

// Update overwrites name, description and price unconditionally and
// replaces the image reference only when a new image was supplied; an
// update without an image never clears or alters the existing one.
// Returns (nil, nil) when the id is unknown, with no side effects.
func (s *ProductService) Update(id uint, input ProductInput, image ImageUpdate) (*models.ProductResponse, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price

	if image.Replace {
		ref, err := s.assets.Save(image.Content, image.Filename)
		if err != nil {
			return nil, err
		}
		product.ImageURL = &ref
	}

	if err := s.repo.Save(product); err != nil {
		return nil, err
	}

	s.publish("product.updated", product.ID)

	resp := product.ToResponse()
	return &resp, nil
}

// Delete removes the product record. The asset file, if any, stays on
// disk; its reference simply becomes unreachable through the catalog.
// Returns (false, nil) when the id is unknown.
func (s *ProductService) Delete(id uint) (bool, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, nil
	}

	if err := s.repo.Delete(product); err != nil {
		return false, err
	}

	s.publish("product.deleted", id)
	return true, nil
}

// publish emits a catalog event on a best-effort basis. A publish
// failure must never fail the catalog operation that triggered it.
func (s *ProductService) publish(event string, productID uint) {
	if s.events == nil {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"product_id": productID,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for product %d: %v", event, productID, err)
		return
	}
	if err := s.events.Publish(event, body); err != nil {
		log.Printf("Warning: failed to publish %s event for product %d: %v", event, productID, err)
	}
}

// normalize trims the text fields and rejects input that is empty
// after trimming or carries a negative price.
func normalize(input ProductInput) (ProductInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	if input.Name == "" {
		return input, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.Description == "" {
		return input, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if input.Price < 0 {
		return input, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return input, nil
}
