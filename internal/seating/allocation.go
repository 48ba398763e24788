package seating

import (
	"sort"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
)

// MaxPairSuggestions bounds the number of two-table combinations returned by Suggest.
const MaxPairSuggestions = 3

// Booking is the allocation view of a reservation.
type Booking struct {
	ReservationID string
	Date          string
	Time          string
	Active        bool
	Guests        int
	HighChairs    int
	CustomerName  string
	Notes         string
	TableIDs      []string
}

// AvailabilityResult splits the dining room for one date and time.
type AvailabilityResult struct {
	Available []venue.Table
	Occupied  []string
}

// Availability reports which active tables are free at the exact date and time.
// A table is occupied only when an active booking with the same date and time string holds it.
func Availability(date, time string, tables []venue.Table, bookings []Booking) AvailabilityResult {
	occupied := make(map[string]struct{})
	for _, booking := range bookings {
		if !booking.Active || booking.Date != date || booking.Time != time {
			continue
		}
		for _, tableID := range booking.TableIDs {
			occupied[tableID] = struct{}{}
		}
	}

	result := AvailabilityResult{
		Available: make([]venue.Table, 0, len(tables)),
		Occupied:  make([]string, 0, len(occupied)),
	}
	for tableID := range occupied {
		result.Occupied = append(result.Occupied, tableID)
	}
	sort.Strings(result.Occupied)

	for _, table := range tables {
		if !table.IsActive {
			continue
		}
		if _, taken := occupied[table.TableID]; taken {
			continue
		}
		result.Available = append(result.Available, table)
	}
	return result
}

// Pair is a two-table combination that covers a party.
type Pair struct {
	Tables     [2]venue.Table
	TotalSeats int
}

// Suggestions lists advisory table selections for a party.
type Suggestions struct {
	Single []venue.Table
	Pairs  []Pair
}

// Suggest proposes best-fit selections from the available tables.
//
// Single tables that seat the party are ordered by ascending seats. Pairs are built only from
// tables too small on their own, ordered by ascending combined seats and capped at
// MaxPairSuggestions. The pair search is quadratic, which is fine for dining-room sizes.
func Suggest(guests int, available []venue.Table) Suggestions {
	suggestions := Suggestions{
		Single: make([]venue.Table, 0),
		Pairs:  make([]Pair, 0),
	}
	if guests <= 0 {
		return suggestions
	}

	small := make([]venue.Table, 0, len(available))
	for _, table := range available {
		if table.Seats >= guests {
			suggestions.Single = append(suggestions.Single, table)
		} else {
			small = append(small, table)
		}
	}
	sort.SliceStable(suggestions.Single, func(i, j int) bool {
		return suggestions.Single[i].Seats < suggestions.Single[j].Seats
	})

	for i := 0; i < len(small); i++ {
		for j := i + 1; j < len(small); j++ {
			total := small[i].Seats + small[j].Seats
			if total < guests {
				continue
			}
			suggestions.Pairs = append(suggestions.Pairs, Pair{
				Tables:     [2]venue.Table{small[i], small[j]},
				TotalSeats: total,
			})
		}
	}
	sort.SliceStable(suggestions.Pairs, func(i, j int) bool {
		return suggestions.Pairs[i].TotalSeats < suggestions.Pairs[j].TotalSeats
	})
	if len(suggestions.Pairs) > MaxPairSuggestions {
		suggestions.Pairs = suggestions.Pairs[:MaxPairSuggestions]
	}
	return suggestions
}

// CapacityCheck is the outcome of comparing a selection against a party size.
type CapacityCheck struct {
	Seats     int
	Guests    int
	Shortfall int
}

// Sufficient reports whether the selection seats the whole party.
func (c CapacityCheck) Sufficient() bool {
	return c.Shortfall == 0
}

// CheckCapacity sums the selection's seats. An under-capacity selection is a warning for the
// caller, not an error.
func CheckCapacity(selection []venue.Table, guests int) CapacityCheck {
	seats := 0
	for _, table := range selection {
		seats += table.Seats
	}
	check := CapacityCheck{Seats: seats, Guests: guests}
	if seats < guests {
		check.Shortfall = guests - seats
	}
	return check
}

// IsCapacitySufficient reports whether the selection seats at least guests people.
func IsCapacitySufficient(selection []venue.Table, guests int) bool {
	return CheckCapacity(selection, guests).Sufficient()
}
