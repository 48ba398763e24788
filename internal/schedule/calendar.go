package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	minutesPerHour = 60
)

var (
	// ErrInvalidTimeOfDay indicates that a time-of-day value is not HH:MM or HH:MM:SS.
	ErrInvalidTimeOfDay = errors.New("schedule: invalid time of day")
	// ErrInvalidDate indicates that a calendar date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("schedule: invalid date")
	// ErrInvalidWeekday indicates a weekday outside 0 (Sunday) .. 6 (Saturday).
	ErrInvalidWeekday = errors.New("schedule: invalid weekday")
)

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute components.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, hour, minute)
	}
	return TimeOfDay(hour*minutesPerHour + minute), nil
}

// ParseTimeOfDay accepts HH:MM and HH:MM:SS. Seconds are truncated.
func ParseTimeOfDay(rawInput string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(rawInput)
	segments := strings.Split(trimmed, ":")
	if len(segments) != 2 && len(segments) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, rawInput)
	}
	values := make([]int, len(segments))
	for index, segment := range segments {
		if len(segment) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, rawInput)
		}
		value, err := strconv.Atoi(segment)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, rawInput)
		}
		values[index] = value
	}
	if len(values) == 3 && (values[2] < 0 || values[2] > 59) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, rawInput)
	}
	return NewTimeOfDay(values[0], values[1])
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int {
	return int(t) / minutesPerHour
}

// Minute returns the minute component.
func (t TimeOfDay) Minute() int {
	return int(t) % minutesPerHour
}

// String renders the canonical HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Date is a calendar day without a time zone.
type Date struct {
	year  int
	month time.Month
	day   int
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(rawInput string) (Date, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(rawInput))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, rawInput)
	}
	return DateOf(parsed), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{year: year, month: month, day: day}
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// String renders the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday {
	return d.At(0, time.UTC).Weekday()
}

// At returns the instant at which the given time of day starts on d in loc.
func (d Date) At(clock TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.year, d.month, d.day, clock.Hour(), clock.Minute(), 0, 0, loc)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.year != other.year {
		return d.year < other.year
	}
	if d.month != other.month {
		return d.month < other.month
	}
	return d.day < other.day
}

// WeekdaySet is a bitmask of weekdays, bit 0 is Sunday.
type WeekdaySet uint8

const allWeekdays WeekdaySet = 0x7F

// NewWeekdaySet builds a set from weekday numbers 0..6.
func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	var set WeekdaySet
	for _, day := range days {
		if day < 0 || day > 6 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, day)
		}
		set |= 1 << uint(day)
	}
	return set, nil
}

// EveryDay returns the set containing all seven weekdays.
func EveryDay() WeekdaySet {
	return allWeekdays
}

// Contains reports whether day is part of the set.
func (s WeekdaySet) Contains(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return s&(1<<uint(day)) != 0
}

// Days lists the weekday numbers in ascending order.
func (s WeekdaySet) Days() []int {
	days := make([]int, 0, 7)
	for day := 0; day < 7; day++ {
		if s&(1<<uint(day)) != 0 {
			days = append(days, day)
		}
	}
	return days
}
