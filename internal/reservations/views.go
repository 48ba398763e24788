package reservations

import (
	"fmt"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/seating"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
)

func bookingsOf(reservations []Reservation) []seating.Booking {
	bookings := make([]seating.Booking, 0, len(reservations))
	for _, reservation := range reservations {
		bookings = append(bookings, reservation.Booking())
	}
	return bookings
}

func buildAvailability(date, clockTime string, guests int, tables []venue.Table, reservations []Reservation) AvailabilityView {
	result := seating.Availability(date, clockTime, tables, bookingsOf(reservations))
	view := AvailabilityView{
		Date:      date,
		Time:      clockTime,
		Guests:    guests,
		Available: result.Available,
		Occupied:  result.Occupied,
	}
	if guests > 0 {
		view.Suggestions = seating.Suggest(guests, result.Available)
	}
	return view
}

func buildOccupancy(date string, reservations []Reservation, tables []venue.Table) seating.OccupancyView {
	return seating.Occupancy(date, bookingsOf(reservations), tables)
}

func capacityCheck(selection []venue.Table, guests int) *Warning {
	check := seating.CheckCapacity(selection, guests)
	if check.Sufficient() {
		return nil
	}
	return &Warning{
		Code:    WarningInsufficientCapacity,
		Message: fmt.Sprintf("selected tables seat %d of %d guests", check.Seats, check.Guests),
	}
}
