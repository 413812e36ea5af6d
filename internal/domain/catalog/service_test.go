package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	services map[uuid.UUID]*Service
}

func newMockRepo() *mockRepo {
	return &mockRepo{services: make(map[uuid.UUID]*Service)}
}

func (m *mockRepo) Create(_ context.Context, s *Service) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.services[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return s, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Service, error) {
	var result []*Service
	for _, id := range ids {
		if s, ok := m.services[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockRepo) Update(_ context.Context, s *Service) error {
	m.services[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.services, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	var result []*Service
	for _, s := range m.services {
		if activeOnly && !s.Active {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

func TestCreateService(t *testing.T) {
	mgr := NewManager(newMockRepo())

	s := &Service{
		Name:            "Haircut",
		Price:           decimal.NewFromInt(45),
		DurationMinutes: 30,
		PrepMinutes:     10,
		CleanupMinutes:  5,
		Active:          true,
	}
	if err := mgr.CreateService(context.Background(), s); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if s.ID == uuid.Nil {
		t.Error("expected generated id")
	}
}

func TestCreateService_Validation(t *testing.T) {
	mgr := NewManager(newMockRepo())

	tests := []struct {
		name string
		svc  Service
	}{
		{"missing name", Service{DurationMinutes: 30}},
		{"zero duration", Service{Name: "Haircut"}},
		{"negative prep", Service{Name: "Haircut", DurationMinutes: 30, PrepMinutes: -5}},
		{"negative price", Service{Name: "Haircut", DurationMinutes: 30, Price: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mgr.CreateService(context.Background(), &tt.svc); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestListServices_ActiveOnly(t *testing.T) {
	repo := newMockRepo()
	mgr := NewManager(repo)

	active := &Service{Name: "Haircut", DurationMinutes: 30, Active: true}
	inactive := &Service{Name: "Perm", DurationMinutes: 90, Active: false}
	_ = mgr.CreateService(context.Background(), active)
	_ = mgr.CreateService(context.Background(), inactive)

	items, total, err := mgr.ListServices(context.Background(), true, 20, 0)
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 active service, got %d", total)
	}
	if items[0].Name != "Haircut" {
		t.Errorf("expected Haircut, got %s", items[0].Name)
	}
}
