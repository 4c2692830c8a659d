package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp wires a full Fiber app against a throwaway sqlite database
// and a temp upload directory.
func setupApp(t *testing.T) *fiber.App {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}))

	uploadDir := t.TempDir()
	assetStore := storage.NewAssetStore(uploadDir)
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	productService := services.NewProductService(productRepo, assetStore, nil)
	authService := services.NewAuthService(userRepo, jwtSecret)

	productHandler := handlers.NewProductHandler(productService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()
	app.Static("/uploads", uploadDir)

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, middleware.AuthRequired(authService))

	return app
}

// adminToken registers an admin and logs in, returning a bearer token.
func adminToken(t *testing.T, app *fiber.App) string {
	register := map[string]string{
		"username": "admin",
		"email":    "admin@example.com",
		"password": "password123",
	}
	jsonBody, _ := json.Marshal(register)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	login := map[string]string{"username": "admin", "password": "password123"}
	jsonBody, _ = json.Marshal(login)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	assert.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// productRequest builds a multipart product form, optionally carrying
// an image file.
func productRequest(t *testing.T, method, url, token string, fields map[string]string, imageName string, imageContent []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		assert.NoError(t, writer.WriteField(k, v))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		assert.NoError(t, err)
		_, err = part.Write(imageContent)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeProduct(t *testing.T, resp *http.Response) models.ProductResponse {
	var product models.ProductResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	resp.Body.Close()
	return product
}

// TestMain suppresses handler logging for cleaner test output.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestProductCRUDFlow(t *testing.T) {
	app := setupApp(t)
	token := adminToken(t, app)

	// Create without an image.
	req := productRequest(t, http.MethodPost, "/api/v1/products", token, map[string]string{
		"name":        "  Widget  ",
		"description": " A widget ",
		"price":       "9.99",
	}, "", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeProduct(t, resp)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Widget", created.Name, "surrounding whitespace must be trimmed")
	assert.Equal(t, "A widget", created.Description)
	assert.Equal(t, 9.99, created.Price)
	assert.Nil(t, created.ImageURL)

	// Read it back.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", created.ID), nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeProduct(t, resp)
	assert.Equal(t, created, fetched)

	// It shows up in the list.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.ProductResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Len(t, list, 1)

	// Update the fields.
	req = productRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", created.ID), token, map[string]string{
		"name":        "Widget v2",
		"description": "A better widget",
		"price":       "12.50",
	}, "", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeProduct(t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Widget v2", updated.Name)

	// Delete and verify it is gone.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", created.ID), nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProductImageLifecycle(t *testing.T) {
	app := setupApp(t)
	token := adminToken(t, app)
	fields := map[string]string{
		"name":        "Widget",
		"description": "A widget",
		"price":       "9.99",
	}

	// Create with image A.
	req := productRequest(t, http.MethodPost, "/api/v1/products", token, fields, "a.png", []byte("image-a"))
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeProduct(t, resp)
	assert.NotNil(t, created.ImageURL)
	originalRef := *created.ImageURL

	// The reference resolves through the static route.
	assert.Equal(t, []byte("image-a"), fetchAsset(t, app, originalRef))

	// Update without an image keeps the reference.
	req = productRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", created.ID), token, fields, "", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	kept := decodeProduct(t, resp)
	assert.NotNil(t, kept.ImageURL)
	assert.Equal(t, originalRef, *kept.ImageURL)

	// Update with image B replaces the reference.
	req = productRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", created.ID), token, fields, "b.png", []byte("image-b"))
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	replaced := decodeProduct(t, resp)
	assert.NotNil(t, replaced.ImageURL)
	assert.NotEqual(t, originalRef, *replaced.ImageURL)
	assert.Equal(t, []byte("image-b"), fetchAsset(t, app, *replaced.ImageURL))

	// The old asset is untouched even though nothing references it.
	assert.Equal(t, []byte("image-a"), fetchAsset(t, app, originalRef))
}

func TestProductValidationAtBoundary(t *testing.T) {
	app := setupApp(t)
	token := adminToken(t, app)

	longName := make([]byte, 41)
	for i := range longName {
		longName[i] = 'x'
	}

	cases := []struct {
		name   string
		fields map[string]string
	}{
		{"missing name", map[string]string{"description": "desc", "price": "1"}},
		{"name too long", map[string]string{"name": string(longName), "description": "desc", "price": "1"}},
		{"missing price", map[string]string{"name": "Widget", "description": "desc"}},
		{"negative price", map[string]string{"name": "Widget", "description": "desc", "price": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := productRequest(t, http.MethodPost, "/api/v1/products", token, tc.fields, "", nil)
			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestUnknownProductIsNotFound(t *testing.T) {
	app := setupApp(t)
	token := adminToken(t, app)
	fields := map[string]string{"name": "Widget", "description": "desc", "price": "1"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/4242", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req = productRequest(t, http.MethodPut, "/api/v1/products/4242", token, fields, "", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/products/4242", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogWritesRequireAuth(t *testing.T) {
	app := setupApp(t)
	fields := map[string]string{"name": "Widget", "description": "desc", "price": "1"}

	req := productRequest(t, http.MethodPost, "/api/v1/products", "", fields, "", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Reads stay public.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// fetchAsset resolves an image reference through the static route.
func fetchAsset(t *testing.T, app *fiber.App, ref string) []byte {
	req := httptest.NewRequest(http.MethodGet, ref, nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	resp.Body.Close()
	return content
}
