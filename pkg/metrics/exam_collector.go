package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const collectTimeout = 5 * time.Second

// StatisticsSource is the part of the store the collector reads.
type StatisticsSource interface {
	Statistics(ctx context.Context) (model.ExamStats, error)
}

type examStatsCollector struct {
	source         StatisticsSource
	totalActive    *prometheus.Desc
	byStatus       *prometheus.Desc
	byOrganization *prometheus.Desc // WARN: grows with the number of organizations scraped
	byLevel        *prometheus.Desc
}

func NewExamStatsCollector(s StatisticsSource) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_exams_%s", examPipeline, name)
	}

	return &examStatsCollector{
		source: s,
		totalActive: prometheus.NewDesc(
			fqName("active_total"),
			"Total number of active exams.",
			nil,
			prometheus.Labels{},
		),
		byStatus: prometheus.NewDesc(
			fqName("by_status_total"),
			"Active exams by lifecycle status.",
			[]string{"status"},
			prometheus.Labels{},
		),
		byOrganization: prometheus.NewDesc(
			fqName("by_organization_total"),
			"Active exams by organization.",
			[]string{"organization"},
			prometheus.Labels{},
		),
		byLevel: prometheus.NewDesc(
			fqName("by_level_total"),
			"Active exams by level.",
			[]string{"level"},
			prometheus.Labels{},
		),
	}
}

// RegisterExamStatsCollector exposes live exam aggregates on the default registry.
func RegisterExamStatsCollector(s StatisticsSource) error {
	return prometheus.Register(NewExamStatsCollector(s))
}

func (c *examStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalActive
	ch <- c.byStatus
	ch <- c.byOrganization
	ch <- c.byLevel
}

// Collect implements Collector.
func (c *examStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.source.Statistics(ctx)
	if err != nil {
		zap.S().Named("exam_collector").Errorf("failed to collect exam statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalActive, prometheus.GaugeValue, float64(stats.TotalActive))

	for status, total := range stats.ByStatus {
		ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(total), string(status))
	}

	for organization, total := range stats.ByOrganization {
		ch <- prometheus.MustNewConstMetric(c.byOrganization, prometheus.GaugeValue, float64(total), organization)
	}

	for level, total := range stats.ByLevel {
		ch <- prometheus.MustNewConstMetric(c.byLevel, prometheus.GaugeValue, float64(total), level)
	}
}
