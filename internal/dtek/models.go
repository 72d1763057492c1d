package dtek

import "strings"

// Address is a caller-supplied free-text address. Spelling is not guaranteed
// to match the provider until it has been resolved through the form.
type Address struct {
	City   string `json:"city"`
	Street string `json:"street"`
	House  string `json:"house"`
}

// Trimmed returns the address with surrounding whitespace removed from every field.
func (a Address) Trimmed() Address {
	return Address{
		City:   strings.TrimSpace(a.City),
		Street: strings.TrimSpace(a.Street),
		House:  strings.TrimSpace(a.House),
	}
}

// String joins the non-empty fields for display.
func (a Address) String() string {
	return joinNonEmpty(a.City, a.Street, a.House)
}

func (a Address) value(f Field) string {
	switch f {
	case FieldCity:
		return a.City
	case FieldStreet:
		return a.Street
	case FieldHouse:
		return a.House
	}
	return ""
}

// missingField reports the first empty field in resolution order.
func (a Address) missingField() (Field, bool) {
	switch {
	case strings.TrimSpace(a.City) == "":
		return FieldCity, true
	case strings.TrimSpace(a.Street) == "":
		return FieldStreet, true
	case strings.TrimSpace(a.House) == "":
		return FieldHouse, true
	}
	return "", false
}

// ResolvedAddress holds the values the provider's form settled on after
// autocomplete selection. Every field is nil or a non-empty trimmed string.
type ResolvedAddress struct {
	City   *string `json:"city"`
	Street *string `json:"street"`
	House  *string `json:"house"`
	Text   *string `json:"text"`
}

// StatusKind is the tag of an OutageStatus.
type StatusKind string

const (
	StatusOn      StatusKind = "ON"
	StatusOff     StatusKind = "OFF"
	StatusUnknown StatusKind = "UNKNOWN"
)

// OutageStatus is the current power state read from the status block.
// Reason, Start and Restore are only ever set for StatusOff.
type OutageStatus struct {
	Status    StatusKind `json:"status"`
	Reason    *string    `json:"reason,omitempty"`
	Start     *string    `json:"start,omitempty"`
	Restore   *string    `json:"restore,omitempty"`
	UpdatedAt *string    `json:"updatedAt"`
	Text      string     `json:"text"`
}

// HourCell is the state of one hour in a schedule table.
type HourCell string

const (
	CellOn            HourCell = "ON"
	CellOff           HourCell = "OFF"
	CellOffFirstHalf  HourCell = "OFF_FIRST_HALF"
	CellOffSecondHalf HourCell = "OFF_SECOND_HALF"
	CellOffMaybe      HourCell = "OFF_MAYBE"
	CellUnknown       HourCell = "UNKNOWN"
)

// HoursPerDay is the length of every valid DaySchedule.
const HoursPerDay = 24

// DaySchedule holds exactly HoursPerDay cells (hours 0-23), or is nil when
// the provider has not published the day.
type DaySchedule []HourCell

// WeekDay is one fully populated row of the week table.
type WeekDay struct {
	DayName string      `json:"dayName"`
	Hours   DaySchedule `json:"hours"`
}

// WeekSchedule is the ordered list of complete week rows.
type WeekSchedule []WeekDay

// DayResult groups today's and tomorrow's schedules with the table
// references they were read from.
type DayResult struct {
	TodayRel    *string     `json:"todayRel"`
	TomorrowRel *string     `json:"tomorrowRel"`
	Today       DaySchedule `json:"today"`
	Tomorrow    DaySchedule `json:"tomorrow"`
}

// ScrapeResult is the output of one scrape session.
type ScrapeResult struct {
	Current           OutageStatus    `json:"current"`
	GroupName         *string         `json:"groupName"`
	ScheduleUpdatedAt *string         `json:"scheduleUpdatedAt"`
	Day               DayResult       `json:"day"`
	Week              WeekSchedule    `json:"week"`
	WeekNote          *string         `json:"weekNote"`
	FactHTML          *string         `json:"factHtml"`
	WeekHTML          *string         `json:"weekHtml"`
	ResolvedAddress   ResolvedAddress `json:"resolvedAddress"`
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
