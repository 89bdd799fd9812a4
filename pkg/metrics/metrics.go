package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	examPipeline = "exam_pipeline"

	// Run metrics
	runsTotal          = "runs_total"
	runDuration        = "run_duration_milliseconds"
	recordsTotal       = "records_total"
	statusTransitions  = "status_transitions_total"
	staleRunsTotal     = "stale_runs_total"
	ledgerFailureTotal = "ledger_failures_total"

	// Labels
	runTypeLabel   = "run_type"
	runStatusLabel = "status"
	outcomeLabel   = "outcome"
	examStateLabel = "status"
	operationLabel = "operation"
)

var runLabels = []string{
	runTypeLabel,
	runStatusLabel,
}

/**
* Metrics definition
**/
var runsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: examPipeline,
		Name:      runsTotal,
		Help:      "number of finished pipeline runs by type and final status",
	},
	runLabels,
)

var runDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: examPipeline,
		Name:      runDuration,
		Help:      "wall time of pipeline runs",
		Buckets:   []float64{100, 500, 1000, 5000, 15000, 60000},
	},
	[]string{runTypeLabel},
)

var recordsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: examPipeline,
		Name:      recordsTotal,
		Help:      "number of reconciled exam records by outcome",
	},
	[]string{outcomeLabel},
)

var statusTransitionsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: examPipeline,
		Name:      statusTransitions,
		Help:      "number of exam status changes by the status entered",
	},
	[]string{examStateLabel},
)

var staleRunsMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: examPipeline,
		Name:      staleRunsTotal,
		Help:      "number of running runs reclassified as failed by the watchdog",
	},
)

var ledgerFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: examPipeline,
		Name:      ledgerFailureTotal,
		Help:      "number of run ledger writes that failed",
	},
	[]string{operationLabel},
)

func ObserveRun(runType, status string, durationMs int64) {
	runsTotalMetric.With(prometheus.Labels{
		runTypeLabel:   runType,
		runStatusLabel: status,
	}).Inc()
	runDurationMetric.With(prometheus.Labels{runTypeLabel: runType}).Observe(float64(durationMs))
}

// IncreaseRecordsMetric adds count records with the given outcome (new, updated or failed).
func IncreaseRecordsMetric(outcome string, count int) {
	if count <= 0 {
		return
	}
	recordsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Add(float64(count))
}

func IncreaseStatusTransitionsMetric(status string, count int) {
	if count <= 0 {
		return
	}
	statusTransitionsMetric.With(prometheus.Labels{examStateLabel: status}).Add(float64(count))
}

func IncreaseStaleRunsMetric(count int) {
	if count <= 0 {
		return
	}
	staleRunsMetric.Add(float64(count))
}

func IncreaseLedgerFailuresMetric(operation string) {
	ledgerFailuresMetric.With(prometheus.Labels{operationLabel: operation}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(runsTotalMetric)
	prometheus.MustRegister(runDurationMetric)
	prometheus.MustRegister(recordsTotalMetric)
	prometheus.MustRegister(statusTransitionsMetric)
	prometheus.MustRegister(staleRunsMetric)
	prometheus.MustRegister(ledgerFailuresMetric)
	prometheus.MustRegister(ScrapersPerWeek.counter)
}
