package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for catalog products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers product routes. Reads are public; writes
// go through the auth middleware.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", auth, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, h.HandleDeleteProduct)
}

// productForm is the multipart form payload of create and update
// requests. The length limits live here, at the boundary; the service
// only re-checks that the fields are non-empty after trimming.
type productForm struct {
	Name        string  `validate:"required,max=40"`
	Description string  `validate:"required,max=200"`
	Price       float64 `validate:"gte=0"`
}

// HandleListProducts retrieves all products.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.List()
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product ID",
		})
	}

	product, err := h.service.Get(id)
	if err != nil {
		log.Printf("Error getting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
			"error":   err.Error(),
		})
	}
	if product == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d not found", id),
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product from a multipart form with
// an optional image file.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	input, image, err := h.parseForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product data",
			"error":   err.Error(),
		})
	}

	product, err := h.service.Create(input, image)
	if err != nil {
		return h.writeError(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product. Omitting the image
// file keeps the current image.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product ID",
		})
	}

	input, image, err := h.parseForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product data",
			"error":   err.Error(),
		})
	}

	product, err := h.service.Update(id, input, image)
	if err != nil {
		return h.writeError(c, "Could not update product", err)
	}
	if product == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d not found", id),
		})
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product ID",
		})
	}

	deleted, err := h.service.Delete(id)
	if err != nil {
		return h.writeError(c, "Could not delete product", err)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d not found", id),
		})
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %d deleted successfully", id),
	})
}

// parseForm reads the multipart fields, enforces the boundary length
// limits and loads the optional image file into memory.
func (h *ProductHandler) parseForm(c *fiber.Ctx) (services.ProductInput, services.ImageUpdate, error) {
	var image services.ImageUpdate

	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil {
		return services.ProductInput{}, image, fmt.Errorf("invalid price: %v", err)
	}

	form := productForm{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       price,
	}
	if err := h.validate.Struct(form); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return services.ProductInput{}, image, fmt.Errorf("field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return services.ProductInput{}, image, err
	}

	// A missing "image" part simply means no image was supplied.
	if fileHeader, err := c.FormFile("image"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			return services.ProductInput{}, image, fmt.Errorf("could not open uploaded image: %v", err)
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return services.ProductInput{}, image, fmt.Errorf("could not read uploaded image: %v", err)
		}
		image = services.ImageUpdate{
			Replace:  true,
			Filename: fileHeader.Filename,
			Content:  content,
		}
	}

	input := services.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		Price:       form.Price,
	}
	return input, image, nil
}

// writeError maps a service error kind to a response status.
func (h *ProductHandler) writeError(c *fiber.Ctx, message string, err error) error {
	log.Printf("%s: %v", message, err)

	// Storage and persistence failures are both server-side faults;
	// only bad input maps to a client error.
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, storage.ErrIO), errors.Is(err, repositories.ErrPersistence):
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
