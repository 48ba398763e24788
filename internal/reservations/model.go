package reservations

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/seating"
)

const maxIdentifierLength = 190

// ErrInvalidReservationID indicates an empty or oversized reservation identifier.
var ErrInvalidReservationID = errors.New("reservations: invalid reservation id")

// ReservationID represents a validated reservation identifier.
type ReservationID string

// NewReservationID validates raw input and returns a ReservationID.
func NewReservationID(rawInput string) (ReservationID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidReservationID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidReservationID, maxIdentifierLength)
	}
	return ReservationID(trimmed), nil
}

// String returns the underlying identifier.
func (id ReservationID) String() string {
	return string(id)
}

// Status enumerates the reservation lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusArrived   Status = "arrived"
)

// IsActive reports whether the status holds tables.
func (s Status) IsActive() bool {
	return s == StatusConfirmed || s == StatusArrived
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusArrived
}

// ActiveStatuses lists the statuses that occupy tables.
func ActiveStatuses() []Status {
	return []Status{StatusConfirmed, StatusArrived}
}

// Reservation is a booking request and its lifecycle state.
type Reservation struct {
	ReservationID string    `gorm:"column:reservation_id;primaryKey;size:190;not null"`
	TenantID      string    `gorm:"column:tenant_id;size:190;not null;index:idx_reservations_tenant_date,priority:1"`
	CustomerName  string    `gorm:"column:customer_name;size:190;not null"`
	CustomerEmail string    `gorm:"column:customer_email;size:320;not null"`
	CustomerPhone string    `gorm:"column:customer_phone;size:64;not null"`
	Guests        int       `gorm:"column:guests;not null"`
	HighChairs    int       `gorm:"column:high_chairs;not null"`
	Date          string    `gorm:"column:slot_date;size:10;not null;index:idx_reservations_tenant_date,priority:2"`
	Time          string    `gorm:"column:slot_time;size:8;not null;index:idx_reservations_tenant_date,priority:3"`
	Notes         string    `gorm:"column:notes;type:text;not null"`
	Status        Status    `gorm:"column:status;size:16;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`

	AssignedTableIDs []string `gorm:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Reservation) TableName() string {
	return "reservations"
}

// Booking returns the allocation view of the reservation.
func (r Reservation) Booking() seating.Booking {
	return seating.Booking{
		ReservationID: r.ReservationID,
		Date:          r.Date,
		Time:          r.Time,
		Active:        r.Status.IsActive(),
		Guests:        r.Guests,
		HighChairs:    r.HighChairs,
		CustomerName:  r.CustomerName,
		Notes:         r.Notes,
		TableIDs:      append([]string(nil), r.AssignedTableIDs...),
	}
}

// Assignment binds one table to one confirmed or arrived reservation.
//
// Rows exist only while the reservation is active, so the unique index over
// (tenant, table, date, time) is the double-booking guard.
type Assignment struct {
	ReservationID string    `gorm:"column:reservation_id;primaryKey;size:190;not null"`
	TableID       string    `gorm:"column:table_id;primaryKey;size:190;not null;uniqueIndex:idx_assignments_slot,priority:2"`
	TenantID      string    `gorm:"column:tenant_id;size:190;not null;uniqueIndex:idx_assignments_slot,priority:1"`
	Date          string    `gorm:"column:slot_date;size:10;not null;uniqueIndex:idx_assignments_slot,priority:3"`
	Time          string    `gorm:"column:slot_time;size:8;not null;uniqueIndex:idx_assignments_slot,priority:4"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Assignment) TableName() string {
	return "reservation_assignments"
}

// BookingRequest is the public booking form submission.
type BookingRequest struct {
	TenantID      string
	CustomerName  string `validate:"required,max=190"`
	CustomerEmail string `validate:"required,email,max=320"`
	CustomerPhone string `validate:"required,max=64"`
	Guests        int    `validate:"gt=0"`
	HighChairs    int    `validate:"gte=0,ltefield=Guests"`
	Date          string `validate:"required"`
	Time          string `validate:"required"`
	Notes         string `validate:"max=2000"`
}

func (r BookingRequest) normalized() BookingRequest {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

// Warning is a soft validation finding that does not block the operation.
type Warning struct {
	Code    string
	Message string
}

const (
	WarningInsufficientCapacity = "insufficient_capacity"
	WarningPartyExceedsSeats    = "party_exceeds_total_seats"
	WarningHighChairsExceeded   = "high_chairs_exceed_inventory"
)

// SubmitResult is returned by SubmitBooking.
type SubmitResult struct {
	Reservation        Reservation
	Warnings           []Warning
	NotificationFailed bool
}

// TransitionResult is returned by every staff action.
type TransitionResult struct {
	Reservation        Reservation
	Previous           Status
	Warnings           []Warning
	NotificationFailed bool
}
