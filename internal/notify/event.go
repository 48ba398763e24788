package notify

import (
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
)

// ReservationEvent is the wire form of a reservation notification.
type ReservationEvent struct {
	Event             string           `json:"event"`
	TenantID          string           `json:"tenant_id"`
	NotificationEmail string           `json:"notification_email,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
	Reservation       ReservationState `json:"reservation"`
}

// ReservationState is the reservation snapshot carried by a ReservationEvent.
type ReservationState struct {
	ID            string   `json:"id"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	CustomerPhone string   `json:"customer_phone"`
	Guests        int      `json:"guests"`
	HighChairs    int      `json:"high_chairs"`
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Notes         string   `json:"notes,omitempty"`
	Status        string   `json:"status"`
	TableIDs      []string `json:"table_ids"`
}

// NewReservationEvent converts a notification into its wire form.
func NewReservationEvent(notification reservations.Notification, occurredAt time.Time) ReservationEvent {
	reservation := notification.Reservation
	tableIDs := reservation.AssignedTableIDs
	if tableIDs == nil {
		tableIDs = []string{}
	}
	return ReservationEvent{
		Event:             string(notification.Kind),
		TenantID:          notification.TenantID,
		NotificationEmail: notification.NotificationEmail,
		OccurredAt:        occurredAt.UTC(),
		Reservation: ReservationState{
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
		},
	}
}
