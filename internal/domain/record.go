// Package domain contains the core value types shared by all components.
package domain

import "time"

// StatusRecord is one observation of a vendor service's health status at a
// point in time. Records are append-only: they are never mutated after
// insert and are removed only by the age-based retention sweep.
type StatusRecord struct {
	Customer   string    `json:"customer"`
	Service    string    `json:"service"`
	Status     string    `json:"status"`
	ObservedAt time.Time `json:"observed_at"`
}

// Announcement is one vendor service-announcement message relevant to a
// monitored service, cached alongside status records and surfaced in reports.
type Announcement struct {
	Customer       string    `json:"customer"`
	Service        string    `json:"service"`
	MessageID      string    `json:"message_id"`
	Title          string    `json:"title"`
	Classification string    `json:"classification"`
	LastUpdated    time.Time `json:"last_updated"`
}
