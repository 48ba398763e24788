package reservations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testTenant = "trattoria-1"

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type sequenceIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("res-%03d", p.next), nil
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	err           error
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return n.err
}

func (n *recordingNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]EventKind, 0, len(n.notifications))
	for _, notification := range n.notifications {
		kinds = append(kinds, notification.Kind)
	}
	return kinds
}

type recordingChanges struct {
	mu      sync.Mutex
	tenants []string
}

func (c *recordingChanges) NotifyChange(tenantID string, _ []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants = append(c.tenants, tenantID)
}

func (c *recordingChanges) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tenants)
}

type serviceFixture struct {
	service  *Service
	venue    *venue.Service
	db       *gorm.DB
	notifier *recordingNotifier
	changes  *recordingChanges
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "reservations.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&venue.Config{}, &venue.Table{}, &venue.Shift{}, &Reservation{}, &Assignment{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := openTestDatabase(t)
	notifier := &recordingNotifier{}
	changes := &recordingChanges{}
	clock := func() time.Time { return testNow }

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: &sequenceIDProvider{},
		Notifier:   notifier,
		Changes:    changes,
	})
	if err != nil {
		t.Fatalf("failed to build reservation service: %v", err)
	}
	venueService, err := venue.NewService(venue.ServiceConfig{Database: db, TableUsage: service, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build venue service: %v", err)
	}
	fixture := &serviceFixture{service: service, venue: venueService, db: db, notifier: notifier, changes: changes}
	fixture.saveConfig(t, true)
	return fixture
}

func (f *serviceFixture) saveConfig(t *testing.T, active bool) {
	t.Helper()
	_, err := f.venue.SaveConfig(context.Background(), venue.Config{
		TenantID:          testTenant,
		IsActive:          active,
		TotalHighChairs:   2,
		NotificationEmail: "owner@example.com",
		Tables: []venue.Table{
			{TableID: "T1", Name: "Window", Seats: 2, IsActive: true},
			{TableID: "T2", Name: "Corner", Seats: 4, IsActive: true},
			{TableID: "T3", Name: "Garden", Seats: 6, IsActive: true},
		},
		Shifts: []venue.Shift{
			{ShiftID: "dinner", Name: "Dinner", StartTime: "19:00", EndTime: "23:00", DaysMask: 0x7F, IsActive: true},
		},
	})
	if err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
}

func (f *serviceFixture) submit(t *testing.T, guests int, date, clockTime string) Reservation {
	t.Helper()
	result, err := f.service.SubmitBooking(context.Background(), BookingRequest{
		TenantID:      testTenant,
		CustomerName:  "Giulia Rossi",
		CustomerEmail: "giulia@example.com",
		CustomerPhone: "+39 055 123456",
		Guests:        guests,
		Date:          date,
		Time:          clockTime,
	})
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	return result.Reservation
}

func mustTenantID(t *testing.T, value string) venue.TenantID {
	t.Helper()
	id, err := venue.NewTenantID(value)
	if err != nil {
		t.Fatalf("unexpected tenant id error: %v", err)
	}
	return id
}

func mustReservationID(t *testing.T, value string) ReservationID {
	t.Helper()
	id, err := NewReservationID(value)
	if err != nil {
		t.Fatalf("unexpected reservation id error: %v", err)
	}
	return id
}

var errDeliveryDown = errors.New("delivery down")
