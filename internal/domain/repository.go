package domain

import (
	"context"
)

// ProductRepository defines the contract for product storage.
// Implementations return copies; callers never alias stored records.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, id string) (*Product, error)
}
