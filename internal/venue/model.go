package venue

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidTenantID indicates an empty or oversized tenant identifier.
	ErrInvalidTenantID = errors.New("venue: invalid tenant id")
	// ErrInvalidTable indicates a table definition that cannot be stored.
	ErrInvalidTable = errors.New("venue: invalid table")
	// ErrInvalidShift indicates a shift definition that cannot be stored.
	ErrInvalidShift = errors.New("venue: invalid shift")
	// ErrInvalidTimezone indicates an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("venue: invalid timezone")
)

// TenantID represents a validated restaurant tenant identifier.
type TenantID string

// NewTenantID validates raw input and returns a TenantID.
func NewTenantID(rawInput string) (TenantID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTenantID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidTenantID, maxIdentifierLength)
	}
	return TenantID(trimmed), nil
}

// String returns the underlying identifier.
func (id TenantID) String() string {
	return string(id)
}

// Config is the tenant-scoped reservation settings singleton.
type Config struct {
	TenantID          string    `gorm:"column:tenant_id;primaryKey;size:190;not null"`
	IsActive          bool      `gorm:"column:is_active;not null"`
	TotalSeats        int       `gorm:"column:total_seats;not null"`
	TotalHighChairs   int       `gorm:"column:total_high_chairs;not null"`
	NotificationEmail string    `gorm:"column:notification_email;size:320;not null"`
	Timezone          string    `gorm:"column:timezone;size:64;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Tables []Table `gorm:"-"`
	Shifts []Shift `gorm:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Config) TableName() string {
	return "reservation_configs"
}

// Location resolves the configured timezone, falling back to UTC when unset.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	return location, nil
}

// ActiveSeats sums the seats of active tables.
func (c Config) ActiveSeats() int {
	total := 0
	for _, table := range c.Tables {
		if table.IsActive {
			total += table.Seats
		}
	}
	return total
}

// Windows converts the configured shifts into scheduling windows, skipping malformed rows.
func (c Config) Windows() []schedule.Window {
	windows := make([]schedule.Window, 0, len(c.Shifts))
	for _, shift := range c.Shifts {
		window, err := shift.Window()
		if err != nil {
			continue
		}
		windows = append(windows, window)
	}
	return windows
}

// Table is one physical seating unit in the dining room.
type Table struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey;size:190;not null"`
	TableID   string    `gorm:"column:table_id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:190;not null"`
	Seats     int       `gorm:"column:seats;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Table) TableName() string {
	return "dining_tables"
}

// Validate checks the table definition.
func (t Table) Validate() error {
	if strings.TrimSpace(t.TableID) == "" || len(t.TableID) > maxIdentifierLength {
		return fmt.Errorf("%w: id", ErrInvalidTable)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name required for %s", ErrInvalidTable, t.TableID)
	}
	if t.Seats <= 0 {
		return fmt.Errorf("%w: seats must be positive for %s", ErrInvalidTable, t.TableID)
	}
	return nil
}

// Shift is a named recurring service window.
type Shift struct {
	TenantID  string `gorm:"column:tenant_id;primaryKey;size:190;not null"`
	ShiftID   string `gorm:"column:shift_id;primaryKey;size:190;not null"`
	Name      string `gorm:"column:name;size:190;not null"`
	StartTime string `gorm:"column:start_time;size:8;not null"`
	EndTime   string `gorm:"column:end_time;size:8;not null"`
	DaysMask  uint8  `gorm:"column:days_mask;not null"`
	IsActive  bool   `gorm:"column:is_active;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Shift) TableName() string {
	return "service_shifts"
}

// DaysOfWeek lists weekday numbers (0 = Sunday) the shift runs on.
func (s Shift) DaysOfWeek() []int {
	return schedule.WeekdaySet(s.DaysMask).Days()
}

// Window parses the shift into a scheduling window.
func (s Shift) Window() (schedule.Window, error) {
	start, err := schedule.ParseTimeOfDay(s.StartTime)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	end, err := schedule.ParseTimeOfDay(s.EndTime)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	window := schedule.Window{
		Start:  start,
		End:    end,
		Days:   schedule.WeekdaySet(s.DaysMask),
		Active: s.IsActive,
	}
	if err := window.Validate(); err != nil {
		return schedule.Window{}, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	return window, nil
}

// Validate checks the shift definition.
func (s Shift) Validate() error {
	if strings.TrimSpace(s.ShiftID) == "" || len(s.ShiftID) > maxIdentifierLength {
		return fmt.Errorf("%w: id", ErrInvalidShift)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name required for %s", ErrInvalidShift, s.ShiftID)
	}
	if s.DaysMask > uint8(schedule.EveryDay()) {
		return fmt.Errorf("%w: days mask out of range for %s", ErrInvalidShift, s.ShiftID)
	}
	_, err := s.Window()
	return err
}
