package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides access to the service catalog.
type Repository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Service, error)
	Update(ctx context.Context, s *Service) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Service, int, error)
}
