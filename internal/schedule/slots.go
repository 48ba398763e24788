package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// SlotInterval is the fixed granularity of bookable slots.
const SlotInterval = 30

// ErrInvalidWindow indicates a shift window whose start is not before its end.
var ErrInvalidWindow = errors.New("schedule: window start must precede end")

// Window is the scheduling view of a shift: a same-day range offered on a set of weekdays.
type Window struct {
	Start  TimeOfDay
	End    TimeOfDay
	Days   WeekdaySet
	Active bool
}

// Validate checks that the window does not cross midnight and is non-empty.
func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Covers reports whether the window offers slots on the given date.
func (w Window) Covers(date Date) bool {
	return w.Active && w.Days.Contains(date.Weekday())
}

// Slots returns the ordered bookable times for date.
//
// Every covering window contributes Start, Start+30m, ... strictly before End. Identical
// times produced by overlapping windows are emitted once. When date is the current day of
// now (evaluated in now's location) times at or before now are dropped.
func Slots(date Date, windows []Window, now time.Time) []TimeOfDay {
	seen := make(map[TimeOfDay]struct{})
	slots := make([]TimeOfDay, 0)
	for _, window := range windows {
		if !window.Covers(date) || window.Validate() != nil {
			continue
		}
		for current := window.Start; current < window.End; current += SlotInterval {
			if _, duplicate := seen[current]; duplicate {
				continue
			}
			seen[current] = struct{}{}
			slots = append(slots, current)
		}
	}

	if !now.IsZero() && DateOf(now) == date {
		location := now.Location()
		upcoming := slots[:0]
		for _, slot := range slots {
			if date.At(slot, location).After(now) {
				upcoming = append(upcoming, slot)
			}
		}
		slots = upcoming
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i] < slots[j]
	})
	return slots
}

// Contains reports whether candidate is one of the offered slots.
func Contains(slots []TimeOfDay, candidate TimeOfDay) bool {
	index := sort.Search(len(slots), func(i int) bool {
		return slots[i] >= candidate
	})
	return index < len(slots) && slots[index] == candidate
}

// Format renders slots in their canonical HH:MM form.
func Format(slots []TimeOfDay) []string {
	formatted := make([]string, 0, len(slots))
	for _, slot := range slots {
		formatted = append(formatted, slot.String())
	}
	return formatted
}
