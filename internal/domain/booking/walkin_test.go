package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// seedWalkInFixture builds one professional on a Wednesday 09:00-17:00 shift
// offering a 45-minute service, with "now" frozen mid-shift.
func seedWalkInFixture(t *testing.T, store *fakeStore, now string) (*Service, *WalkInRequest) {
	t.Helper()
	svc := store.addService("Trim", 45, 0, 0, 30)
	p := store.addProfessional("Elias", 0)
	store.addWindow(t, p.ID, 3, "09:00", "17:00")
	store.offer(svc.ID, p.ID)

	service := newTestService(store)
	frozen, err := time.Parse("2006-01-02 15:04", now)
	if err != nil {
		t.Fatalf("parse now %q: %v", now, err)
	}
	service.now = func() time.Time { return frozen.UTC() }

	return service, &WalkInRequest{
		ClientID:       uuid.New(),
		ProfessionalID: p.ID,
		Services:       []ServiceRequest{{ServiceID: svc.ID}},
	}
}

func TestCreateWalkIn_ImmediateStart(t *testing.T) {
	store := newFakeStore()
	// 2026-03-04 is a Wednesday.
	svc, req := seedWalkInFixture(t, store, "2026-03-04 10:30")

	appt, err := svc.CreateWalkIn(context.Background(), req, "front-desk")
	if err != nil {
		t.Fatalf("CreateWalkIn: %v", err)
	}

	if appt.Status != StatusInProgress {
		t.Errorf("expected in_progress, got %s", appt.Status)
	}
	if appt.Origin != OriginWalkIn {
		t.Errorf("expected walk_in origin, got %s", appt.Origin)
	}
	if got := appt.Date.Format("2006-01-02"); got != "2026-03-04" {
		t.Errorf("expected today's date, got %s", got)
	}
	if appt.StartTime != at(t, "10:30") || appt.EndTime != at(t, "11:15") {
		t.Errorf("expected 10:30-11:15, got %s-%s", appt.StartTime, appt.EndTime)
	}
	if appt.ActualStartAt == nil {
		t.Error("immediate walk-in must record actual start")
	}
}

func TestCreateWalkIn_QueuedBehindCurrent(t *testing.T) {
	store := newFakeStore()
	svc, req := seedWalkInFixture(t, store, "2026-03-04 10:30")

	current := &Appointment{
		ClientID: uuid.New(), ProfessionalID: req.ProfessionalID,
		Date: date(t, "2026-03-04"), StartTime: at(t, "10:00"), EndTime: at(t, "11:00"),
		Status:   StatusInProgress,
		Services: []*ServiceAssignment{{ServiceID: req.Services[0].ServiceID}},
	}
	if err := store.Create(context.Background(), current); err != nil {
		t.Fatalf("seed current: %v", err)
	}

	appt, err := svc.CreateWalkIn(context.Background(), req, "front-desk")
	if err != nil {
		t.Fatalf("CreateWalkIn: %v", err)
	}

	if appt.Status != StatusConfirmed {
		t.Errorf("queued walk-in must be confirmed, got %s", appt.Status)
	}
	if appt.StartTime != at(t, "11:00") || appt.EndTime != at(t, "11:45") {
		t.Errorf("expected 11:00-11:45 behind the running appointment, got %s-%s",
			appt.StartTime, appt.EndTime)
	}
	if appt.ActualStartAt != nil {
		t.Error("queued walk-in must not record an actual start")
	}
}

func TestCreateWalkIn_QueuedPastShiftEnd(t *testing.T) {
	store := newFakeStore()
	svc, req := seedWalkInFixture(t, store, "2026-03-04 16:30")

	current := &Appointment{
		ClientID: uuid.New(), ProfessionalID: req.ProfessionalID,
		Date: date(t, "2026-03-04"), StartTime: at(t, "16:00"), EndTime: at(t, "17:00"),
		Status:   StatusInProgress,
		Services: []*ServiceAssignment{{ServiceID: req.Services[0].ServiceID}},
	}
	if err := store.Create(context.Background(), current); err != nil {
		t.Fatalf("seed current: %v", err)
	}

	// 17:00-17:45 runs past shift end; queued walk-ins may do that.
	appt, err := svc.CreateWalkIn(context.Background(), req, "front-desk")
	if err != nil {
		t.Fatalf("CreateWalkIn: %v", err)
	}
	if appt.StartTime != at(t, "17:00") {
		t.Errorf("expected 17:00 start, got %s", appt.StartTime)
	}
}

func TestCreateWalkIn_NotAvailableNow(t *testing.T) {
	store := newFakeStore()
	// 18:30 is after shift end and nobody is being served.
	svc, req := seedWalkInFixture(t, store, "2026-03-04 18:30")

	_, err := svc.CreateWalkIn(context.Background(), req, "front-desk")
	se, ok := AsSchedulingError(err)
	if !ok {
		t.Fatalf("expected SchedulingError, got %v", err)
	}
	if se.Code != CodeNotAvailableNow {
		t.Errorf("expected NOT_AVAILABLE_NOW, got %s", se.Code)
	}
	if se.Category != CategoryRejected {
		t.Errorf("expected rejected category, got %s", se.Category)
	}
	if len(store.appointments) != 0 {
		t.Errorf("rejected walk-in must persist nothing, found %d rows", len(store.appointments))
	}
}

func TestCreateWalkIn_QueuedSlotTaken(t *testing.T) {
	store := newFakeStore()
	svc, req := seedWalkInFixture(t, store, "2026-03-04 10:30")

	current := &Appointment{
		ClientID: uuid.New(), ProfessionalID: req.ProfessionalID,
		Date: date(t, "2026-03-04"), StartTime: at(t, "10:00"), EndTime: at(t, "11:00"),
		Status:   StatusInProgress,
		Services: []*ServiceAssignment{{ServiceID: req.Services[0].ServiceID}},
	}
	next := &Appointment{
		ClientID: uuid.New(), ProfessionalID: req.ProfessionalID,
		Date: date(t, "2026-03-04"), StartTime: at(t, "11:00"), EndTime: at(t, "12:00"),
		Status:   StatusConfirmed,
		Services: []*ServiceAssignment{{ServiceID: req.Services[0].ServiceID}},
	}
	for _, a := range []*Appointment{current, next} {
		if err := store.Create(context.Background(), a); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, err := svc.CreateWalkIn(context.Background(), req, "front-desk")
	se, ok := AsSchedulingError(err)
	if !ok || se.Code != CodeConflict {
		t.Fatalf("expected CONFLICT when the queued slot is taken, got %v", err)
	}
}

func TestCreateWalkIn_MissingIDs(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateWalkIn(context.Background(), &WalkInRequest{ProfessionalID: uuid.New()}, "x")
	if se, ok := AsSchedulingError(err); !ok || se.Category != CategoryValidation {
		t.Fatalf("expected validation error for missing client, got %v", err)
	}

	_, err = svc.CreateWalkIn(context.Background(), &WalkInRequest{ClientID: uuid.New()}, "x")
	if se, ok := AsSchedulingError(err); !ok || se.Category != CategoryValidation {
		t.Fatalf("expected validation error for missing professional, got %v", err)
	}
}
