package memory

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory, insertion-ordered implementation of domain.ProductRepository
type ProductRepository struct {
	mu       sync.RWMutex
	products []*domain.Product
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository holding the given records.
// Seed records get ids assigned the same way Create does.
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger, seed ...*domain.Product) *ProductRepository {
	r := &ProductRepository{
		products: make([]*domain.Product, 0, len(seed)),
		tracer:   tracer,
		logger:   logger.With("component", "repository"),
	}
	for _, p := range seed {
		stored := *p
		stored.ID = r.nextID()
		r.products = append(r.products, &stored)
	}
	return r
}

// Create assigns an id to product and appends it to the store
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = r.nextID()
	stored := *product
	r.products = append(r.products, &stored)

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.String("product.name", product.Name),
	)
	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", product.ID),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		r.logger.DebugContext(ctx, "Product not found", slog.String("product_id", id))
		return nil, domain.ErrProductNotFound
	}

	found := *r.products[i]
	span.SetStatus(codes.Ok, "Product found")
	return &found, nil
}

// FindAll retrieves all products in insertion order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		c := *p
		products = append(products, &c)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	r.logger.DebugContext(ctx, "Products retrieved from repository", slog.Int("count", len(products)))

	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update merges patch onto the stored record in place and returns the result
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}

	patch.Apply(r.products[i])
	updated := *r.products[i]

	r.logger.InfoContext(ctx, "Product updated in repository", slog.String("product_id", id))
	span.SetStatus(codes.Ok, "Product updated successfully")
	return &updated, nil
}

// Delete removes a product and returns the removed record
func (r *ProductRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}

	removed := r.products[i]
	r.products = append(r.products[:i], r.products[i+1:]...)

	r.logger.InfoContext(ctx, "Product deleted from repository", slog.String("product_id", id))
	span.SetStatus(codes.Ok, "Product deleted successfully")
	return removed, nil
}

// indexOf must be called with mu held.
func (r *ProductRepository) indexOf(id string) int {
	for i, p := range r.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// nextID derives the id from the current size. After deletions that id may
// already be taken, so it keeps counting until a free one is found.
// Must be called with mu held.
func (r *ProductRepository) nextID() string {
	n := len(r.products) + 1
	for {
		id := strconv.Itoa(n)
		if r.indexOf(id) < 0 {
			return id
		}
		n++
	}
}
