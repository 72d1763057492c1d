package tracker

import (
	"time"

	"no-lights-dtek/internal/dtek"
)

// SubscriberState is the last-known snapshot for one subscriber. The
// registry owns it; Detect only ever returns a new value.
type SubscriberState struct {
	Address    dtek.Address     `json:"address"`
	GroupName  *string          `json:"group_name,omitempty"`
	LastStatus *dtek.StatusKind `json:"last_status,omitempty"`
	// PreviousStatus is the status held before the latest change.
	PreviousStatus      *dtek.StatusKind `json:"previous_status,omitempty"`
	LastStatusChangedAt *time.Time       `json:"last_status_changed_at,omitempty"`
	LastOnAt            *time.Time       `json:"last_on_at,omitempty"`
	LastOffAt           *time.Time       `json:"last_off_at,omitempty"`
	LastCheckedAt       *time.Time       `json:"last_checked_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// NewSubscriberState starts tracking addr with no known status.
func NewSubscriberState(addr dtek.Address, now time.Time) SubscriberState {
	return SubscriberState{Address: addr, CreatedAt: now}
}

// Detection is the outcome of comparing a fresh scrape with the previous snapshot.
type Detection struct {
	Next    SubscriberState
	Changed bool
	// First is set when there was no previous status at all. Changed is
	// always true then; whether to notify is the caller's decision.
	First bool
}

// Detect compares the scraped status with prev and returns the next snapshot.
// A nil prev is treated as a brand new subscriber.
func Detect(prev *SubscriberState, res *dtek.ScrapeResult, now time.Time) Detection {
	var next SubscriberState
	if prev != nil {
		next = *prev
	} else {
		next = SubscriberState{CreatedAt: now}
	}

	status := res.Current.Status
	first := prev == nil || prev.LastStatus == nil
	changed := first || *prev.LastStatus != status

	if changed {
		next.PreviousStatus = nil
		if !first {
			p := *prev.LastStatus
			next.PreviousStatus = &p
		}
		next.LastStatusChangedAt = timePtr(now)
		switch status {
		case dtek.StatusOn:
			next.LastOnAt = timePtr(now)
		case dtek.StatusOff:
			next.LastOffAt = timePtr(now)
		}
	}
	next.LastCheckedAt = timePtr(now)
	next.LastStatus = &status
	if res.GroupName != nil {
		g := *res.GroupName
		next.GroupName = &g
	}

	return Detection{Next: next, Changed: changed, First: first}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
