// Package metrics provides Prometheus metrics definitions.
//
// The process is a run-to-completion batch job, so there is nothing to
// scrape; counters are accumulated during the run and pushed to a
// Pushgateway at exit when one is configured.
package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "pulsemon"

var (
	registry = prometheus.NewRegistry()

	// ScanRecordsUpserted counts status records written during scan.
	ScanRecordsUpserted = newCounter("scan", "records_upserted_total",
		"Status records inserted into the local cache")

	// ScanAnnouncementsUpserted counts announcements written during scan.
	ScanAnnouncementsUpserted = newCounter("scan", "announcements_upserted_total",
		"Announcement messages inserted into the local cache")

	// ScanCustomerFailures counts customers skipped during scan.
	ScanCustomerFailures = newCounter("scan", "customer_failures_total",
		"Customers whose scan cycle failed and was skipped")

	// RecordsPurged counts rows removed by the retention sweep.
	RecordsPurged = newCounter("cache", "records_purged_total",
		"Rows removed by the retention sweep")

	// ReportsSent counts successfully delivered report emails.
	ReportsSent = newCounter("report", "emails_sent_total",
		"Report emails delivered")

	// ReportFailures counts customers whose report could not be delivered.
	ReportFailures = newCounter("report", "customer_failures_total",
		"Customers whose report build or delivery failed")
)

func newCounter(subsystem, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	registry.MustRegister(c)
	return c
}

// Push delivers the accumulated counters to the Pushgateway, grouped by run
// mode. A push failure is logged, never fatal: metrics loss must not fail a
// run that otherwise succeeded.
func Push(gatewayURL, mode string) {
	if gatewayURL == "" {
		return
	}
	err := push.New(gatewayURL, "pulsemon").
		Grouping("mode", mode).
		Gatherer(registry).
		Push()
	if err != nil {
		slog.Warn("pushgateway push failed", "url", gatewayURL, "error", err)
		return
	}
	slog.Debug("metrics pushed", "url", gatewayURL, "mode", mode)
}
