package seating

import (
	"math"
	"sort"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
)

// TableDetail summarizes the booking holding a table.
type TableDetail struct {
	ReservationID string
	Time          string
	Guests        int
	HighChairs    int
	CustomerName  string
	Notes         string
}

// OccupancyView is the per-date room view rendered on the staff dashboard.
type OccupancyView struct {
	Date             string
	OccupiedTableIDs []string
	Details          map[string]TableDetail
	OccupiedSeats    int
	TotalCapacity    int
	OccupancyPercent int
}

// IsOccupied reports whether tableID is held on the view's date.
func (v OccupancyView) IsOccupied(tableID string) bool {
	_, ok := v.Details[tableID]
	return ok
}

// Occupancy derives the room view for date from active bookings.
//
// Capacity and occupied seats count active tables only, so the percent never exceeds 100.
// Held inactive tables still appear in the details. If two bookings hold the same table the
// later one in bookings wins.
func Occupancy(date string, bookings []Booking, tables []venue.Table) OccupancyView {
	view := OccupancyView{
		Date:             date,
		OccupiedTableIDs: make([]string, 0),
		Details:          make(map[string]TableDetail),
	}

	for _, booking := range bookings {
		if !booking.Active || booking.Date != date {
			continue
		}
		for _, tableID := range booking.TableIDs {
			view.Details[tableID] = TableDetail{
				ReservationID: booking.ReservationID,
				Time:          booking.Time,
				Guests:        booking.Guests,
				HighChairs:    booking.HighChairs,
				CustomerName:  booking.CustomerName,
				Notes:         booking.Notes,
			}
		}
	}
	for tableID := range view.Details {
		view.OccupiedTableIDs = append(view.OccupiedTableIDs, tableID)
	}
	sort.Strings(view.OccupiedTableIDs)

	for _, table := range tables {
		if !table.IsActive {
			continue
		}
		view.TotalCapacity += table.Seats
		if view.IsOccupied(table.TableID) {
			view.OccupiedSeats += table.Seats
		}
	}
	view.OccupancyPercent = Percent(view.OccupiedSeats, view.TotalCapacity)
	return view
}

// Percent returns round(part/total*100), or 0 when total is not positive.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
