package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/metrics"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/realtime"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/staff"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testTenant        = "trattoria-1"
	testSigningSecret = "test-signing-secret"
	testCookieName    = "gofood_session"
	testBookingDate   = "2025-06-02"
)

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

type testServer struct {
	handler    http.Handler
	issuer     *auth.TokenIssuer
	dispatcher *realtime.Dispatcher
	metrics    *metrics.Recorder
	venue      *venue.Service
}

type testServerOptions struct {
	bookingsPerMinute int
	bookingBurst      int
	heartbeat         time.Duration
}

func newTestServer(t *testing.T, options testServerOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(
		&venue.Config{}, &venue.Table{}, &venue.Shift{},
		&reservations.Reservation{}, &reservations.Assignment{},
		&staff.Membership{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clock := func() time.Time { return testNow }
	dispatcher := realtime.NewDispatcher()
	recorder := metrics.NewRecorder(metrics.DefaultPrefix)

	reservationService, err := reservations.NewService(reservations.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: &sequenceIDProvider{},
		Changes:    dispatcher,
		Metrics:    recorder,
	})
	if err != nil {
		t.Fatalf("failed to build reservation service: %v", err)
	}
	venueService, err := venue.NewService(venue.ServiceConfig{Database: db, TableUsage: reservationService, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build venue service: %v", err)
	}
	staffService, err := staff.NewService(staff.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build staff service: %v", err)
	}
	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		CookieName:    testCookieName,
	})
	if err != nil {
		t.Fatalf("failed to build session validator: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Sessions:          validator,
		Tenants:           staffService,
		Reservations:      reservationService,
		Venue:             venueService,
		Realtime:          dispatcher,
		Metrics:           recorder,
		BookingsPerMinute: options.bookingsPerMinute,
		BookingBurst:      options.bookingBurst,
		HeartbeatInterval: options.heartbeat,
		Logger:            zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}

	_, err = venueService.SaveConfig(context.Background(), venue.Config{
		TenantID:          testTenant,
		IsActive:          true,
		TotalHighChairs:   2,
		NotificationEmail: "owner@example.com",
		Tables: []venue.Table{
			{TableID: "T1", Name: "Window", Seats: 2, IsActive: true},
			{TableID: "T2", Name: "Corner", Seats: 4, IsActive: true},
			{TableID: "T3", Name: "Garden", Seats: 6, IsActive: true},
		},
		Shifts: []venue.Shift{
			{ShiftID: "dinner", Name: "Cena", StartTime: "19:00", EndTime: "23:00", DaysMask: 0x7F, IsActive: true},
		},
	})
	if err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	return &testServer{handler: handler, issuer: issuer, dispatcher: dispatcher, metrics: recorder, venue: venueService}
}

func (s *testServer) staffToken(t *testing.T, userID, tenantID string) string {
	t.Helper()
	token, _, err := s.issuer.IssueSessionToken(context.Background(), auth.StaffIdentity{
		UserID:   userID,
		Email:    userID + "@example.com",
		TenantID: tenantID,
		Role:     staff.RoleOwner,
	})
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	request.RemoteAddr = "203.0.113.7:41234"
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func bookingBody(guests int, clockTime string) map[string]any {
	return map[string]any{
		"customer_name":  "Giulia Rossi",
		"customer_email": "giulia@example.com",
		"customer_phone": "+39 055 123456",
		"guests":         guests,
		"high_chairs":    0,
		"date":           testBookingDate,
		"time":           clockTime,
	}
}
