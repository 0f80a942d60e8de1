// Package report builds and delivers per-customer health reports.
package report

import (
	"sort"
	"time"

	"github.com/bissquit/pulsemon/internal/domain"
)

// StatusOccurrence is how often one status code appeared for a service
// within the window.
type StatusOccurrence struct {
	Status  string
	Count   int
	Percent float64
}

// ServiceSummary is the aggregated health of one service over the window.
type ServiceSummary struct {
	Service string
	// HasData is false when the window held no observations; the report
	// renders a placeholder section instead of charts and tables.
	HasData bool
	// Records are the window's observations, ordered by time ascending.
	Records []domain.StatusRecord
	// WorstStatus is the status with the minimum rank; among equal ranks the
	// earliest observation wins.
	WorstStatus string
	WorstRank   int
	WorstAt     time.Time
	// Availability is the share of observations at or above the healthy
	// threshold, in percent.
	Availability float64
	// Occurrences lists per-status shares in order of first occurrence.
	Occurrences []StatusOccurrence
	// Announcements are vendor messages for this service within the window.
	Announcements []domain.Announcement
}

// CustomerReport is everything needed to render one customer's report.
type CustomerReport struct {
	Customer domain.Customer
	Window   domain.ReportWindow
	Services []ServiceSummary
}

// Build aggregates one customer's cached rows into a report. Every monitored
// service gets a section, with or without data; services present in the rows
// but no longer configured are appended after the configured ones so cached
// history never silently disappears from a report.
func Build(customer domain.Customer, window domain.ReportWindow, records []domain.StatusRecord, announcements []domain.Announcement, priorities domain.PriorityMap) CustomerReport {
	byService := make(map[string][]domain.StatusRecord)
	for _, r := range records {
		byService[r.Service] = append(byService[r.Service], r)
	}
	annsByService := make(map[string][]domain.Announcement)
	for _, a := range announcements {
		annsByService[a.Service] = append(annsByService[a.Service], a)
	}

	names := make([]string, 0, len(byService))
	names = append(names, customer.Services...)
	var extras []string
	for name := range byService {
		if !customer.MonitorsService(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	names = append(names, extras...)

	report := CustomerReport{Customer: customer, Window: window}
	for _, name := range names {
		report.Services = append(report.Services,
			summarize(name, byService[name], annsByService[name], priorities))
	}
	return report
}

func summarize(service string, records []domain.StatusRecord, announcements []domain.Announcement, priorities domain.PriorityMap) ServiceSummary {
	summary := ServiceSummary{
		Service:       service,
		Announcements: announcements,
	}
	if len(records) == 0 {
		return summary
	}

	summary.HasData = true
	summary.Records = records

	counts := make(map[string]int, len(records))
	var order []string
	healthy := 0
	worstRank := 0
	for i, r := range records {
		rank := priorities.Rank(r.Status)
		// Strictly-lower comparison keeps the earliest record on rank ties.
		if i == 0 || rank < worstRank {
			worstRank = rank
			summary.WorstStatus = r.Status
			summary.WorstAt = r.ObservedAt
		}
		if priorities.IsHealthy(r.Status) {
			healthy++
		}
		if _, seen := counts[r.Status]; !seen {
			order = append(order, r.Status)
		}
		counts[r.Status]++
	}

	summary.WorstRank = worstRank
	summary.Availability = float64(healthy) / float64(len(records)) * 100

	for _, status := range order {
		summary.Occurrences = append(summary.Occurrences, StatusOccurrence{
			Status:  status,
			Count:   counts[status],
			Percent: float64(counts[status]) / float64(len(records)) * 100,
		})
	}
	return summary
}
