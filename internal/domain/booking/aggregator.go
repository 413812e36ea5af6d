package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendly/agendly/internal/domain/catalog"
)

// ServiceRequest is one requested line item. Price and duration overrides
// fall back to the catalog defaults when nil.
type ServiceRequest struct {
	ServiceID       uuid.UUID        `json:"service_id"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Discount        decimal.Decimal  `json:"discount"`
}

// Aggregate is the combined outcome of resolving a set of service requests.
type Aggregate struct {
	Price           decimal.Decimal
	DurationMinutes int
	Assignments     []*ServiceAssignment
	Catalog         map[uuid.UUID]*catalog.Service
}

// Aggregator resolves requested service ids into one combined price and
// duration.
type Aggregator struct {
	resolver ServiceResolver
}

func NewAggregator(resolver ServiceResolver) *Aggregator {
	return &Aggregator{resolver: resolver}
}

// Resolve validates every id exists and is active, then sums applied price
// and duration over the requests in order. Each line's discount is
// subtracted from that line's price only.
func (ag *Aggregator) Resolve(ctx context.Context, requests []ServiceRequest) (*Aggregate, error) {
	if len(requests) == 0 {
		return nil, NewValidationError(CodeInvalidRequest, "at least one service is required")
	}

	ids := make([]uuid.UUID, len(requests))
	for i, req := range requests {
		ids[i] = req.ServiceID
	}

	services, err := ag.resolver.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve services: %w", err)
	}

	byID := make(map[uuid.UUID]*catalog.Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}

	var missing []string
	for _, id := range ids {
		s, ok := byID[id]
		if !ok || !s.Active {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, NewNotFoundError(
			fmt.Sprintf("services not found or inactive: %s", strings.Join(missing, ", ")))
	}

	agg := &Aggregate{Price: decimal.Zero, Catalog: byID}
	for i, req := range requests {
		svc := byID[req.ServiceID]

		price := svc.Price
		if req.Price != nil {
			price = *req.Price
		}
		duration := svc.DurationMinutes
		if req.DurationMinutes != nil {
			duration = *req.DurationMinutes
		}

		linePrice := price.Sub(req.Discount)
		agg.Price = agg.Price.Add(linePrice)
		agg.DurationMinutes += duration
		agg.Assignments = append(agg.Assignments, &ServiceAssignment{
			ServiceID:       req.ServiceID,
			Position:        i,
			Price:           price,
			DurationMinutes: duration,
			Discount:        req.Discount,
		})
	}
	return agg, nil
}
