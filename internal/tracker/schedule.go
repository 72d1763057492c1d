package tracker

import (
	"fmt"
	"time"

	"no-lights-dtek/internal/dtek"
)

// The provider publishes hours in Kyiv local time.
var kyiv = loadKyiv()

func loadKyiv() *time.Location {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

func isOffCell(c dtek.HourCell) bool {
	return c == dtek.CellOff || c == dtek.CellOffFirstHalf || c == dtek.CellOffSecondHalf
}

// nextOutageBlock finds the next contiguous block of off hours after hour,
// today only. end is the hour the block is over, 0 meaning midnight.
func nextOutageBlock(day dtek.DaySchedule, hour int) (start, end int, ok bool) {
	for h := hour + 1; h < len(day); h++ {
		if !isOffCell(day[h]) {
			continue
		}
		last := h
		for last+1 < len(day) && isOffCell(day[last+1]) {
			last++
		}
		return h, (last + 1) % dtek.HoursPerDay, true
	}
	return -1, -1, false
}

// nextOnHour finds the first fully powered hour after hour, today only.
func nextOnHour(day dtek.DaySchedule, hour int) (int, bool) {
	for h := hour + 1; h < len(day); h++ {
		if day[h] == dtek.CellOn {
			return h, true
		}
	}
	return -1, false
}

// scheduleLine hints at what today's schedule expects next: the coming
// outage window while powered, the expected return while not.
func scheduleLine(res *dtek.ScrapeResult, now time.Time) (string, bool) {
	today := res.Day.Today
	if len(today) != dtek.HoursPerDay {
		return "", false
	}
	hour := now.In(kyiv).Hour()

	switch res.Current.Status {
	case dtek.StatusOn:
		start, end, ok := nextOutageBlock(today, hour)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(msgNextPlanned, fmt.Sprintf("%02d:00 - %02d:00", start, end)), true
	case dtek.StatusOff:
		// Outages off the schedule say nothing about when power returns.
		if !isOffCell(today[hour]) {
			return "", false
		}
		on, ok := nextOnHour(today, hour)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(msgExpectedOn, fmt.Sprintf("%02d:00", on)), true
	}
	return "", false
}
