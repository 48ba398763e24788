package server

import (
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/seating"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
)

type slotsResponsePayload struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type bookingRequestPayload struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Guests        int    `json:"guests"`
	HighChairs    int    `json:"high_chairs"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Notes         string `json:"notes"`
}

func (p bookingRequestPayload) toDomain(tenantID string) reservations.BookingRequest {
	return reservations.BookingRequest{
		TenantID:      tenantID,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		CustomerPhone: p.CustomerPhone,
		Guests:        p.Guests,
		HighChairs:    p.HighChairs,
		Date:          p.Date,
		Time:          p.Time,
		Notes:         p.Notes,
	}
}

type reservationPayload struct {
	ID            string   `json:"id"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	CustomerPhone string   `json:"customer_phone"`
	Guests        int      `json:"guests"`
	HighChairs    int      `json:"high_chairs"`
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Notes         string   `json:"notes"`
	Status        string   `json:"status"`
	TableIDs      []string `json:"table_ids"`
	CreatedAt     string   `json:"created_at"`
}

func newReservationPayload(reservation reservations.Reservation) reservationPayload {
	tableIDs := reservation.AssignedTableIDs
	if tableIDs == nil {
		tableIDs = []string{}
	}
	createdAt := ""
	if !reservation.CreatedAt.IsZero() {
		createdAt = reservation.CreatedAt.UTC().Format(time.RFC3339)
	}
	return reservationPayload{
		ID:            reservation.ReservationID,
		CustomerName:  reservation.CustomerName,
		CustomerEmail: reservation.CustomerEmail,
		CustomerPhone: reservation.CustomerPhone,
		Guests:        reservation.Guests,
		HighChairs:    reservation.HighChairs,
		Date:          reservation.Date,
		Time:          reservation.Time,
		Notes:         reservation.Notes,
		Status:        string(reservation.Status),
		TableIDs:      tableIDs,
		CreatedAt:     createdAt,
	}
}

type warningPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newWarningPayloads(warnings []reservations.Warning) []warningPayload {
	payloads := make([]warningPayload, 0, len(warnings))
	for _, warning := range warnings {
		payloads = append(payloads, warningPayload{Code: warning.Code, Message: warning.Message})
	}
	return payloads
}

type submitResponsePayload struct {
	Reservation        reservationPayload `json:"reservation"`
	Warnings           []warningPayload   `json:"warnings"`
	NotificationFailed bool               `json:"notification_failed"`
}

type listResponsePayload struct {
	Reservations []reservationPayload `json:"reservations"`
}

type actionRequestPayload struct {
	TableIDs []string `json:"table_ids"`
}

type transitionResponsePayload struct {
	Reservation        reservationPayload `json:"reservation"`
	PreviousStatus     string             `json:"previous_status"`
	Warnings           []warningPayload   `json:"warnings"`
	NotificationFailed bool               `json:"notification_failed"`
}

type tablePayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	IsActive bool   `json:"is_active"`
}

func newTablePayloads(tables []venue.Table) []tablePayload {
	payloads := make([]tablePayload, 0, len(tables))
	for _, table := range tables {
		payloads = append(payloads, tablePayload{
			ID:       table.TableID,
			Name:     table.Name,
			Seats:    table.Seats,
			IsActive: table.IsActive,
		})
	}
	return payloads
}

type pairPayload struct {
	TableIDs   []string `json:"table_ids"`
	TotalSeats int      `json:"total_seats"`
}

type suggestionsPayload struct {
	Single []tablePayload `json:"single"`
	Pairs  []pairPayload  `json:"pairs"`
}

type availabilityResponsePayload struct {
	Date        string             `json:"date"`
	Time        string             `json:"time"`
	Guests      int                `json:"guests"`
	Available   []tablePayload     `json:"available"`
	Occupied    []string           `json:"occupied"`
	Suggestions suggestionsPayload `json:"suggestions"`
}

func newAvailabilityPayload(view reservations.AvailabilityView) availabilityResponsePayload {
	occupied := view.Occupied
	if occupied == nil {
		occupied = []string{}
	}
	pairs := make([]pairPayload, 0, len(view.Suggestions.Pairs))
	for _, pair := range view.Suggestions.Pairs {
		pairs = append(pairs, pairPayload{
			TableIDs:   []string{pair.Tables[0].TableID, pair.Tables[1].TableID},
			TotalSeats: pair.TotalSeats,
		})
	}
	return availabilityResponsePayload{
		Date:      view.Date,
		Time:      view.Time,
		Guests:    view.Guests,
		Available: newTablePayloads(view.Available),
		Occupied:  occupied,
		Suggestions: suggestionsPayload{
			Single: newTablePayloads(view.Suggestions.Single),
			Pairs:  pairs,
		},
	}
}

type tableDetailPayload struct {
	ReservationID string `json:"reservation_id"`
	Time          string `json:"time"`
	Guests        int    `json:"guests"`
	HighChairs    int    `json:"high_chairs"`
	CustomerName  string `json:"customer_name"`
	Notes         string `json:"notes"`
}

type occupancyResponsePayload struct {
	Date             string                        `json:"date"`
	OccupiedTableIDs []string                      `json:"occupied_table_ids"`
	Details          map[string]tableDetailPayload `json:"details"`
	OccupiedSeats    int                           `json:"occupied_seats"`
	TotalCapacity    int                           `json:"total_capacity"`
	OccupancyPercent int                           `json:"occupancy_percent"`
}

func newOccupancyPayload(view seating.OccupancyView) occupancyResponsePayload {
	occupied := view.OccupiedTableIDs
	if occupied == nil {
		occupied = []string{}
	}
	details := make(map[string]tableDetailPayload, len(view.Details))
	for tableID, detail := range view.Details {
		details[tableID] = tableDetailPayload{
			ReservationID: detail.ReservationID,
			Time:          detail.Time,
			Guests:        detail.Guests,
			HighChairs:    detail.HighChairs,
			CustomerName:  detail.CustomerName,
			Notes:         detail.Notes,
		}
	}
	return occupancyResponsePayload{
		Date:             view.Date,
		OccupiedTableIDs: occupied,
		Details:          details,
		OccupiedSeats:    view.OccupiedSeats,
		TotalCapacity:    view.TotalCapacity,
		OccupancyPercent: view.OccupancyPercent,
	}
}

type shiftPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week"`
	IsActive   bool   `json:"is_active"`
}

type configPayload struct {
	IsActive          bool           `json:"is_active"`
	TotalSeats        int            `json:"total_seats"`
	TotalHighChairs   int            `json:"total_high_chairs"`
	NotificationEmail string         `json:"notification_email"`
	Timezone          string         `json:"timezone"`
	Tables            []tablePayload `json:"tables"`
	Shifts            []shiftPayload `json:"shifts"`
}

func newConfigPayload(cfg venue.Config) configPayload {
	shifts := make([]shiftPayload, 0, len(cfg.Shifts))
	for _, shift := range cfg.Shifts {
		shifts = append(shifts, shiftPayload{
			ID:         shift.ShiftID,
			Name:       shift.Name,
			StartTime:  shift.StartTime,
			EndTime:    shift.EndTime,
			DaysOfWeek: shift.DaysOfWeek(),
			IsActive:   shift.IsActive,
		})
	}
	return configPayload{
		IsActive:          cfg.IsActive,
		TotalSeats:        cfg.TotalSeats,
		TotalHighChairs:   cfg.TotalHighChairs,
		NotificationEmail: cfg.NotificationEmail,
		Timezone:          cfg.Timezone,
		Tables:            newTablePayloads(cfg.Tables),
		Shifts:            shifts,
	}
}

func (p configPayload) toDomain(tenantID venue.TenantID) (venue.Config, error) {
	cfg := venue.Config{
		TenantID:          tenantID.String(),
		IsActive:          p.IsActive,
		TotalSeats:        p.TotalSeats,
		TotalHighChairs:   p.TotalHighChairs,
		NotificationEmail: p.NotificationEmail,
		Timezone:          p.Timezone,
		Tables:            make([]venue.Table, 0, len(p.Tables)),
		Shifts:            make([]venue.Shift, 0, len(p.Shifts)),
	}
	for _, table := range p.Tables {
		cfg.Tables = append(cfg.Tables, venue.Table{
			TableID:  table.ID,
			Name:     table.Name,
			Seats:    table.Seats,
			IsActive: table.IsActive,
		})
	}
	for _, shift := range p.Shifts {
		days, err := schedule.NewWeekdaySet(shift.DaysOfWeek...)
		if err != nil {
			return venue.Config{}, err
		}
		cfg.Shifts = append(cfg.Shifts, venue.Shift{
			ShiftID:   shift.ID,
			Name:      shift.Name,
			StartTime: shift.StartTime,
			EndTime:   shift.EndTime,
			DaysMask:  uint8(days),
			IsActive:  shift.IsActive,
		})
	}
	return cfg, nil
}
