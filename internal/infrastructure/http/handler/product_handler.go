package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/pipeline"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// ProductService is the set of use cases the HTTP layer depends on
type ProductService interface {
	GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error)
	SearchProducts(ctx context.Context, name string) ([]*dto.ProductResponse, error)
	FilterByCategory(ctx context.Context, category string) ([]*dto.ProductResponse, error)
	Statistics(ctx context.Context) (map[string]int, error)
	PaginateProducts(ctx context.Context, q dto.ListQuery) ([]*dto.ProductResponse, error)
	CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) (*dto.ProductResponse, error)
}

// ProductHandler handles HTTP requests for products. Every method returns its
// failure to the pipeline instead of writing an error response.
type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With("component", "api"),
	}
}

// ListProducts handles GET /api/products?category=&page=&limit=
func (h *ProductHandler) ListProducts(x *pipeline.Exchange) error {
	query := x.Request.URL.Query()
	q := dto.ListQuery{
		Category: query.Get("category"),
		Page:     intParam(query.Get("page"), defaultPage),
		Limit:    intParam(query.Get("limit"), defaultLimit),
	}

	products, err := h.service.PaginateProducts(x.Context(), q)
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, products)
	return nil
}

// SearchProducts handles GET /api/products/search?name=
func (h *ProductHandler) SearchProducts(x *pipeline.Exchange) error {
	products, err := h.service.SearchProducts(x.Context(), x.Request.URL.Query().Get("name"))
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, products)
	return nil
}

// FilterByCategory handles GET /api/products/category?category=
func (h *ProductHandler) FilterByCategory(x *pipeline.Exchange) error {
	products, err := h.service.FilterByCategory(x.Context(), x.Request.URL.Query().Get("category"))
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, products)
	return nil
}

// Statistics handles GET /api/products/statistics
func (h *ProductHandler) Statistics(x *pipeline.Exchange) error {
	stats, err := h.service.Statistics(x.Context())
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, stats)
	return nil
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(x *pipeline.Exchange) error {
	product, err := h.service.GetProductByID(x.Context(), chi.URLParam(x.Request, "id"))
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, product)
	return nil
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(x *pipeline.Exchange) error {
	var req dto.CreateProductRequest
	if err := decode(x, &req); err != nil {
		return err
	}

	product, err := h.service.CreateProduct(x.Context(), &req)
	if err != nil {
		return err
	}
	h.logger.InfoContext(x.Context(), "Product created", slog.String("product_id", product.ID))
	response.JSON(x.Writer, http.StatusCreated, product)
	return nil
}

// UpdateProduct handles PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(x *pipeline.Exchange) error {
	var req dto.UpdateProductRequest
	if err := decode(x, &req); err != nil {
		return err
	}

	product, err := h.service.UpdateProduct(x.Context(), chi.URLParam(x.Request, "id"), &req)
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, product)
	return nil
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(x *pipeline.Exchange) error {
	product, err := h.service.DeleteProduct(x.Context(), chi.URLParam(x.Request, "id"))
	if err != nil {
		return err
	}
	response.JSON(x.Writer, http.StatusOK, product)
	return nil
}

// decode fills v from the body parsed earlier in the pipeline. A missing body decodes to the zero value.
func decode(x *pipeline.Exchange, v any) error {
	if x.RawBody == nil {
		return nil
	}
	if err := json.Unmarshal(x.RawBody, v); err != nil {
		x.Logger.DebugContext(x.Context(), "Failed to decode request body", slog.String("error", err.Error()))
		return domain.NewBadRequest("Invalid request body")
	}
	return nil
}

// intParam parses an optional query parameter. Absent means def; anything
// unparsable becomes 0, which selects an empty page.
func intParam(value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
