package models

// Product represents a sellable product in the catalog.
type Product struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"type:varchar(40);not null" validate:"required,max=40"`
	Description string  `json:"description" gorm:"type:varchar(200);not null" validate:"required,max=200"`
	Price       float64 `json:"price" validate:"gte=0"`
	ImageURL    *string `json:"image_url"` // nil means the product has no image
}

// ProductResponse is the external representation returned to clients.
type ProductResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url"`
}

// ToResponse projects a Product onto its external representation,
// field by field. A new Product field that should be exposed has to be
// added here explicitly.
func (p *Product) ToResponse() ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
	}
}
