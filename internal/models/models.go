package models

import "time"

// StatusEvent is a historical record of a subscriber's power status change.
type StatusEvent struct {
	ID           int64     `json:"id" db:"id"`
	SubscriberID int64     `json:"subscriber_id" db:"subscriber_id"`
	Status       string    `json:"status" db:"status"` // ON, OFF or UNKNOWN
	Address      string    `json:"address" db:"address"`
	GroupName    *string   `json:"group_name,omitempty" db:"group_name"`
	Reason       *string   `json:"reason,omitempty" db:"reason"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// StatusHistory is the API view of a subscriber's recent status changes.
type StatusHistory struct {
	SubscriberID int64          `json:"subscriber_id"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Events       []*StatusEvent `json:"events"`
}
