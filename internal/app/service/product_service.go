package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgProductNotFound  = "No product found with specified id"
	msgUpdateNotFound   = "Could not find the product with the id specified."
	msgDeleteNotFound   = "Could not find item with the specified id."
	msgNameRequired     = "Name parameter is required."
	msgCategoryRequired = "Category parameter is required."
	msgCategoryEmpty    = "Could not find products in specified category."
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		tracer:                tracer,
		logger:                logger.With("component", "service"),
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

// ListProducts returns all products, optionally restricted to one category (case-insensitive)
func (s *ProductService) ListProducts(ctx context.Context, category string) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.list(ctx, category)
	if err != nil {
		s.fail(ctx, span, "list", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.succeed(ctx, span, "list")
	return dto.ToProductResponseList(products), nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		err = notFoundAs(err, msgProductNotFound)
		s.fail(ctx, span, "read", err)
		return nil, err
	}

	s.succeed(ctx, span, "read")
	return dto.ToProductResponse(product), nil
}

// SearchProducts returns products whose name contains name, ignoring case
func (s *ProductService) SearchProducts(ctx context.Context, name string) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.SearchProducts")
	defer span.End()

	if name == "" {
		err := domain.NewBadRequest(msgNameRequired)
		s.fail(ctx, span, "search", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("product.search", name))

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		err = fmt.Errorf("search products: %w", err)
		s.fail(ctx, span, "search", err)
		return nil, err
	}

	needle := strings.ToLower(name)
	matches := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}

	span.SetAttributes(attribute.Int("product.count", len(matches)))
	s.succeed(ctx, span, "search")
	return dto.ToProductResponseList(matches), nil
}

// FilterByCategory returns products of exactly one category, ignoring case.
// An empty result is reported as not found.
func (s *ProductService) FilterByCategory(ctx context.Context, category string) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.FilterByCategory")
	defer span.End()

	if category == "" {
		err := domain.NewBadRequest(msgCategoryRequired)
		s.fail(ctx, span, "filter", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("product.category", category))

	products, err := s.list(ctx, category)
	if err != nil {
		s.fail(ctx, span, "filter", err)
		return nil, err
	}
	if len(products) == 0 {
		err := domain.NewNotFound(msgCategoryEmpty)
		s.fail(ctx, span, "filter", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.succeed(ctx, span, "filter")
	return dto.ToProductResponseList(products), nil
}

// Statistics counts products per lowercased category
func (s *ProductService) Statistics(ctx context.Context) (map[string]int, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Statistics")
	defer span.End()

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		err = fmt.Errorf("compute statistics: %w", err)
		s.fail(ctx, span, "statistics", err)
		return nil, err
	}

	stats := make(map[string]int)
	for _, p := range products {
		stats[strings.ToLower(p.Category)]++
	}

	span.SetAttributes(attribute.Int("product.categories", len(stats)))
	s.succeed(ctx, span, "statistics")
	return stats, nil
}

// PaginateProducts applies the optional category filter and returns the
// window [(page-1)*limit, page*limit). Out of range windows are empty.
func (s *ProductService) PaginateProducts(ctx context.Context, q dto.ListQuery) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.PaginateProducts")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.category", q.Category),
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
	)

	products, err := s.list(ctx, q.Category)
	if err != nil {
		s.fail(ctx, span, "paginate", err)
		return nil, err
	}

	page := window(products, q.Page, q.Limit)
	span.SetAttributes(attribute.Int("product.count", len(page)))
	s.succeed(ctx, span, "paginate")
	return dto.ToProductResponseList(page), nil
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.name", req.Name),
		attribute.Float64("product.price", req.Price),
	)

	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		InStock:     req.InStock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		err = fmt.Errorf("store product: %w", err)
		s.fail(ctx, span, "create", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", product.ID))
	s.productCreatedCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Product created successfully", slog.String("product_id", product.ID))
	s.succeed(ctx, span, "create")
	return dto.ToProductResponse(product), nil
}

// UpdateProduct merges the supplied fields onto an existing product
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	updated, err := s.repo.Update(ctx, id, req.ToPatch())
	if err != nil {
		err = notFoundAs(err, msgUpdateNotFound)
		s.fail(ctx, span, "update", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Product updated successfully", slog.String("product_id", id))
	s.succeed(ctx, span, "update")
	return dto.ToProductResponse(updated), nil
}

// DeleteProduct removes a product and returns it
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		err = notFoundAs(err, msgDeleteNotFound)
		s.fail(ctx, span, "delete", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Product deleted successfully", slog.String("product_id", id))
	s.succeed(ctx, span, "delete")
	return dto.ToProductResponse(removed), nil
}

func (s *ProductService) list(ctx context.Context, category string) ([]*domain.Product, error) {
	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if category == "" {
		return products, nil
	}

	filtered := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func window(products []*domain.Product, page, limit int) []*domain.Product {
	if page < 1 || limit < 1 {
		return []*domain.Product{}
	}
	pages := len(products) / limit
	if len(products)%limit != 0 {
		pages++
	}
	if page > pages {
		return []*domain.Product{}
	}
	start := (page - 1) * limit
	end := min(start+limit, len(products))
	return products[start:end]
}

// notFoundAs gives the repository's not-found error the message of the calling operation.
func notFoundAs(err error, message string) error {
	if errors.Is(err, domain.ErrProductNotFound) {
		return domain.NewNotFound(message)
	}
	return err
}

func (s *ProductService) succeed(ctx context.Context, span trace.Span, operation string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", "success"),
		),
	)
	span.SetStatus(codes.Ok, operation+" succeeded")
}

func (s *ProductService) fail(ctx context.Context, span trace.Span, operation string, err error) {
	result := "failure"
	if domainErr, ok := domain.AsError(err); ok && domainErr.IsOperational() {
		result = "rejected"
		if domainErr.StatusCode == http.StatusNotFound {
			result = "not_found"
		}
		s.logger.WarnContext(ctx, "Product operation rejected",
			slog.String("operation", operation),
			slog.String("reason", domainErr.Message),
		)
	} else {
		s.logger.ErrorContext(ctx, "Product operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, operation+" failed")
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}
