package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	args := m.Called(ctx, id, patch)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo domain.ProductRepository) *ProductService {
	return NewProductService(
		repo,
		tracenoop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"),
		discardLogger(),
	)
}

func newSeededService() *ProductService {
	repo := memory.NewProductRepository(tracenoop.NewTracerProvider().Tracer("test"), discardLogger(), domain.SeedProducts()...)
	return newService(repo)
}

func names(products []*dto.ProductResponse) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func requireDomainError(t *testing.T, err error, status int, message string) {
	t.Helper()
	appErr, ok := domain.AsError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, status, appErr.StatusCode)
	assert.Equal(t, message, appErr.Message)
	assert.True(t, appErr.IsOperational())
}

func TestProductService_ListProducts(t *testing.T) {
	svc := newSeededService()

	t.Run("all", func(t *testing.T) {
		products, err := svc.ListProducts(context.Background(), "")

		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Smartphone", "Coffee Maker"}, names(products))
	})

	t.Run("category ignores case", func(t *testing.T) {
		products, err := svc.ListProducts(context.Background(), "ELECTRONICS")

		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Smartphone"}, names(products))
	})

	t.Run("unknown category is empty, not an error", func(t *testing.T) {
		products, err := svc.ListProducts(context.Background(), "garden")

		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestProductService_GetProductByID(t *testing.T) {
	svc := newSeededService()

	t.Run("found", func(t *testing.T) {
		product, err := svc.GetProductByID(context.Background(), "1")

		require.NoError(t, err)
		assert.Equal(t, &dto.ProductResponse{
			ID:          "1",
			Name:        "Laptop",
			Description: "High-performance laptop with 16GB RAM",
			Price:       1200,
			Category:    "electronics",
			InStock:     true,
		}, product)
	})

	t.Run("missing id", func(t *testing.T) {
		product, err := svc.GetProductByID(context.Background(), "999")

		assert.Nil(t, product)
		requireDomainError(t, err, http.StatusNotFound, "No product found with specified id")
	})
}

func TestProductService_SearchProducts(t *testing.T) {
	svc := newSeededService()

	testCases := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{name: "substring ignoring case", query: "lap", wantNames: []string{"Laptop"}},
		{name: "upper case query", query: "SMART", wantNames: []string{"Smartphone"}},
		{name: "matches several", query: "e", wantNames: []string{"Smartphone", "Coffee Maker"}},
		{name: "no match", query: "tablet", wantNames: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			products, err := svc.SearchProducts(context.Background(), tc.query)

			require.NoError(t, err)
			assert.Equal(t, tc.wantNames, names(products))
		})
	}

	t.Run("empty name is rejected", func(t *testing.T) {
		products, err := svc.SearchProducts(context.Background(), "")

		assert.Nil(t, products)
		requireDomainError(t, err, http.StatusBadRequest, "Name parameter is required.")
	})
}

func TestProductService_FilterByCategory(t *testing.T) {
	svc := newSeededService()

	t.Run("matches ignoring case", func(t *testing.T) {
		products, err := svc.FilterByCategory(context.Background(), "Electronics")

		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Smartphone"}, names(products))
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := svc.FilterByCategory(context.Background(), "")

		requireDomainError(t, err, http.StatusBadRequest, "Category parameter is required.")
	})

	t.Run("no products in category", func(t *testing.T) {
		_, err := svc.FilterByCategory(context.Background(), "garden")

		requireDomainError(t, err, http.StatusNotFound, "Could not find products in specified category.")
	})
}

func TestProductService_Statistics(t *testing.T) {
	svc := newSeededService()

	// given: a second spelling of an existing category
	_, err := svc.CreateProduct(context.Background(), &dto.CreateProductRequest{
		Name: "Toaster", Description: "Two slot toaster", Price: 30, Category: "Kitchen", InStock: true,
	})
	require.NoError(t, err)

	// when
	stats, err := svc.Statistics(context.Background())

	// then
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"electronics": 2, "kitchen": 2}, stats)
}

func TestProductService_PaginateProducts(t *testing.T) {
	svc := newSeededService()

	testCases := []struct {
		name      string
		query     dto.ListQuery
		wantNames []string
	}{
		{name: "first page", query: dto.ListQuery{Page: 1, Limit: 2}, wantNames: []string{"Laptop", "Smartphone"}},
		{name: "last partial page", query: dto.ListQuery{Page: 2, Limit: 2}, wantNames: []string{"Coffee Maker"}},
		{name: "beyond the end", query: dto.ListQuery{Page: 3, Limit: 2}, wantNames: []string{}},
		{name: "limit larger than the set", query: dto.ListQuery{Page: 1, Limit: 10}, wantNames: []string{"Laptop", "Smartphone", "Coffee Maker"}},
		{name: "filtered by category", query: dto.ListQuery{Category: "electronics", Page: 2, Limit: 1}, wantNames: []string{"Smartphone"}},
		{name: "zero page", query: dto.ListQuery{Page: 0, Limit: 2}, wantNames: []string{}},
		{name: "negative limit", query: dto.ListQuery{Page: 1, Limit: -1}, wantNames: []string{}},
		{name: "huge limit", query: dto.ListQuery{Page: 1, Limit: int(^uint(0) >> 1)}, wantNames: []string{"Laptop", "Smartphone", "Coffee Maker"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			products, err := svc.PaginateProducts(context.Background(), tc.query)

			require.NoError(t, err)
			assert.Equal(t, tc.wantNames, names(products))
		})
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	svc := newSeededService()

	product, err := svc.CreateProduct(context.Background(), &dto.CreateProductRequest{
		Name: "Desk", Description: "Standing desk", Price: 300, Category: "furniture", InStock: false,
	})

	require.NoError(t, err)
	assert.Equal(t, "4", product.ID)
	assert.Equal(t, "Desk", product.Name)

	stored, err := svc.GetProductByID(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, product, stored)
}

func TestProductService_UpdateProduct(t *testing.T) {
	svc := newSeededService()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		price := 1000.0

		product, err := svc.UpdateProduct(context.Background(), "1", &dto.UpdateProductRequest{Price: &price})

		require.NoError(t, err)
		assert.Equal(t, 1000.0, product.Price)
		assert.Equal(t, "Laptop", product.Name)
		assert.True(t, product.InStock)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := svc.UpdateProduct(context.Background(), "999", &dto.UpdateProductRequest{})

		requireDomainError(t, err, http.StatusNotFound, "Could not find the product with the id specified.")
	})
}

func TestProductService_DeleteProduct(t *testing.T) {
	svc := newSeededService()

	removed, err := svc.DeleteProduct(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Smartphone", removed.Name)

	_, err = svc.GetProductByID(context.Background(), "2")
	requireDomainError(t, err, http.StatusNotFound, "No product found with specified id")

	_, err = svc.DeleteProduct(context.Background(), "2")
	requireDomainError(t, err, http.StatusNotFound, "Could not find item with the specified id.")
}

func TestProductService_RepositoryFailuresStayUnexpected(t *testing.T) {
	storeErr := errors.New("store unavailable")

	t.Run("statistics", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("FindAll", mock.Anything).Return(nil, storeErr)

		_, err := newService(repo).Statistics(context.Background())

		require.ErrorIs(t, err, storeErr)
		_, ok := domain.AsError(err)
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("create", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(storeErr)

		_, err := newService(repo).CreateProduct(context.Background(), &dto.CreateProductRequest{Name: "x"})

		require.ErrorIs(t, err, storeErr)
		repo.AssertExpectations(t)
	})

	t.Run("get keeps non not-found errors", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("FindByID", mock.Anything, "1").Return(nil, storeErr)

		_, err := newService(repo).GetProductByID(context.Background(), "1")

		assert.ErrorIs(t, err, storeErr)
		repo.AssertExpectations(t)
	})
}
