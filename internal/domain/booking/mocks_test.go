package booking

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agendly/agendly/internal/domain/catalog"
	"github.com/agendly/agendly/internal/domain/org"
	"github.com/agendly/agendly/internal/domain/roster"
	"github.com/agendly/agendly/internal/platform/audit"
	"github.com/agendly/agendly/pkg/clock"
)

// fakeStore backs every collaborator interface the booking service needs.
type fakeStore struct {
	appointments  map[uuid.UUID]*Appointment
	professionals map[uuid.UUID]*roster.Professional
	offerings     map[uuid.UUID][]uuid.UUID
	windows       []*roster.AvailabilityWindow
	blackouts     []*roster.BlackoutBlock
	services      map[uuid.UUID]*catalog.Service
	settings      *org.Settings
	seq           int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments:  make(map[uuid.UUID]*Appointment),
		professionals: make(map[uuid.UUID]*roster.Professional),
		offerings:     make(map[uuid.UUID][]uuid.UUID),
		services:      make(map[uuid.UUID]*catalog.Service),
		settings: &org.Settings{
			Name:              "Test Org",
			Timezone:          "UTC",
			RoundRobinEnabled: true,
		},
	}
}

// -- Repository --

func (f *fakeStore) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	f.seq++
	a.CreatedAt = time.Unix(int64(f.seq), 0)
	for i, sa := range a.Services {
		sa.ID = uuid.New()
		sa.AppointmentID = a.ID
		sa.Date = a.Date
		sa.Position = i
	}
	f.appointments[a.ID] = a
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, NewNotFoundError("appointment not found")
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) Update(_ context.Context, a *Appointment) error {
	existing, ok := f.appointments[a.ID]
	if !ok {
		return fmt.Errorf("appointment %s does not exist", a.ID)
	}
	services := existing.Services
	copied := *a
	copied.Services = services
	f.appointments[a.ID] = &copied
	return nil
}

func (f *fakeStore) ReplaceAssignments(_ context.Context, appointmentID uuid.UUID, date time.Time, assignments []*ServiceAssignment) error {
	a, ok := f.appointments[appointmentID]
	if !ok {
		return fmt.Errorf("appointment %s does not exist", appointmentID)
	}
	for i, sa := range assignments {
		sa.AppointmentID = appointmentID
		sa.Date = date
		sa.Position = i
	}
	a.Services = assignments
	return nil
}

func (f *fakeStore) Search(_ context.Context, filter SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range f.appointments {
		if filter.ClientID != nil && a.ClientID != *filter.ClientID {
			continue
		}
		if filter.ProfessionalID != nil && a.ProfessionalID != *filter.ProfessionalID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.SeriesID != nil && (a.SeriesID == nil || *a.SeriesID != *filter.SeriesID) {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (f *fakeStore) BusyIntervalsForDay(_ context.Context, professionalID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]BusyInterval, error) {
	var items []BusyInterval
	for _, a := range f.appointments {
		if a.ProfessionalID != professionalID || !a.Date.Equal(date) || a.Status == StatusCanceled {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		b := BusyInterval{AppointmentID: a.ID, StartTime: a.StartTime, EndTime: a.EndTime}
		if len(a.Services) > 0 {
			if svc, ok := f.services[a.Services[0].ServiceID]; ok {
				b.PrepMinutes = svc.PrepMinutes
			}
			if svc, ok := f.services[a.Services[len(a.Services)-1].ServiceID]; ok {
				b.CleanupMinutes = svc.CleanupMinutes
			}
		}
		items = append(items, b)
	}
	return items, nil
}

func (f *fakeStore) InProgressForProfessional(_ context.Context, professionalID uuid.UUID, date time.Time) (*Appointment, error) {
	for _, a := range f.appointments {
		if a.ProfessionalID == professionalID && a.Date.Equal(date) && a.Status == StatusInProgress {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LastAssignedProfessional(_ context.Context, serviceID uuid.UUID) (uuid.UUID, error) {
	var last *Appointment
	for _, a := range f.appointments {
		if a.Status == StatusCanceled {
			continue
		}
		hasService := false
		for _, sa := range a.Services {
			if sa.ServiceID == serviceID {
				hasService = true
				break
			}
		}
		if !hasService {
			continue
		}
		if last == nil || a.CreatedAt.After(last.CreatedAt) {
			last = a
		}
	}
	if last == nil {
		return uuid.Nil, nil
	}
	return last.ProfessionalID, nil
}

func (f *fakeStore) ListBySeries(_ context.Context, seriesID string) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range f.appointments {
		if a.SeriesID != nil && *a.SeriesID == seriesID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (f *fakeStore) UpdateSeriesTotals(_ context.Context, seriesID string, total int) error {
	for _, a := range f.appointments {
		if a.SeriesID != nil && *a.SeriesID == seriesID {
			t := total
			a.SeriesTotal = &t
		}
	}
	return nil
}

// -- ScheduleReader --

func (f *fakeStore) WindowsForDay(_ context.Context, professionalID uuid.UUID, date time.Time) ([]*roster.AvailabilityWindow, error) {
	var result []*roster.AvailabilityWindow
	for _, w := range f.windows {
		if w.ProfessionalID != professionalID || w.Weekday != int(date.Weekday()) {
			continue
		}
		if w.ValidFrom != nil && date.Before(*w.ValidFrom) {
			continue
		}
		if w.ValidUntil != nil && date.After(*w.ValidUntil) {
			continue
		}
		result = append(result, w)
	}
	return result, nil
}

func (f *fakeStore) BlackoutsForDay(_ context.Context, professionalID uuid.UUID, date time.Time) ([]*roster.BlackoutBlock, error) {
	var result []*roster.BlackoutBlock
	for _, b := range f.blackouts {
		if b.ProfessionalID != nil && *b.ProfessionalID != professionalID {
			continue
		}
		if date.Before(b.StartDate) || date.After(b.EndDate) {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

// -- ProfessionalDirectory --

func (f *fakeStore) GetProfessionalByID(_ context.Context, id uuid.UUID) (*roster.Professional, error) {
	p, ok := f.professionals[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (f *fakeStore) Offering(_ context.Context, serviceID uuid.UUID) ([]*roster.Professional, error) {
	var result []*roster.Professional
	for _, pid := range f.offerings[serviceID] {
		if p, ok := f.professionals[pid]; ok && p.Active {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RotationOrder != result[j].RotationOrder {
			return result[i].RotationOrder < result[j].RotationOrder
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// directoryAdapter maps the fake's professional lookup onto the
// ProfessionalDirectory interface.
type directoryAdapter struct{ store *fakeStore }

func (d directoryAdapter) GetByID(ctx context.Context, id uuid.UUID) (*roster.Professional, error) {
	return d.store.GetProfessionalByID(ctx, id)
}

func (d directoryAdapter) Offering(ctx context.Context, serviceID uuid.UUID) ([]*roster.Professional, error) {
	return d.store.Offering(ctx, serviceID)
}

// -- ServiceResolver --

type resolverAdapter struct{ store *fakeStore }

func (r resolverAdapter) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*catalog.Service, error) {
	var result []*catalog.Service
	for _, id := range ids {
		if s, ok := r.store.services[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// -- SettingsReader --

type settingsAdapter struct{ store *fakeStore }

func (s settingsAdapter) Get(context.Context) (*org.Settings, error) {
	return s.store.settings, nil
}

// -- Fixture helpers --

func newTestService(store *fakeStore) *Service {
	return NewService(store, store, directoryAdapter{store}, settingsAdapter{store},
		resolverAdapter{store}, audit.NopRecorder{}, nil, zerolog.Nop())
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clock.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func at(t *testing.T, s string) clock.Time {
	t.Helper()
	ct, err := clock.Parse(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return ct
}

func (f *fakeStore) addProfessional(name string, rotationOrder int) *roster.Professional {
	p := &roster.Professional{
		ID:            uuid.New(),
		FullName:      name,
		Active:        true,
		RotationOrder: rotationOrder,
	}
	f.professionals[p.ID] = p
	return p
}

func (f *fakeStore) addService(name string, durationMinutes, prepMinutes, cleanupMinutes int, price int64) *catalog.Service {
	s := &catalog.Service{
		ID:              uuid.New(),
		Name:            name,
		Price:           decimal.NewFromInt(price),
		DurationMinutes: durationMinutes,
		PrepMinutes:     prepMinutes,
		CleanupMinutes:  cleanupMinutes,
		Active:          true,
	}
	f.services[s.ID] = s
	return s
}

func (f *fakeStore) addWindow(t *testing.T, professionalID uuid.UUID, weekday int, start, end string) {
	t.Helper()
	f.windows = append(f.windows, &roster.AvailabilityWindow{
		ID:              uuid.New(),
		ProfessionalID:  professionalID,
		Weekday:         weekday,
		StartTime:       at(t, start),
		EndTime:         at(t, end),
		AcceptsBookings: true,
	})
}

func (f *fakeStore) offer(serviceID uuid.UUID, professionalIDs ...uuid.UUID) {
	f.offerings[serviceID] = append(f.offerings[serviceID], professionalIDs...)
}

func hasIssue(issues []Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
