package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type distinctScrapers struct {
	counter prometheus.Gauge
	seen    map[string]struct{}
	mu      sync.RWMutex
}

const scrapersPerWeek = "scrapers_count_per_week"

var distinctScrapersPerWeekMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: examPipeline,
		Name:      scrapersPerWeek,
		Help:      "number of distinct scrapers that pushed results this week",
	},
)

var ScrapersPerWeek = &distinctScrapers{
	counter: distinctScrapersPerWeekMetric,
	seen:    make(map[string]struct{}),
}

func (d *distinctScrapers) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[string]struct{})
	d.counter.Set(0)
}

// Observe records the scrapers named in one push. Names are compared case-insensitively.
func (d *distinctScrapers) Observe(scrapers ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range scrapers {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, exists := d.seen[key]; exists {
			continue
		}
		d.seen[key] = struct{}{}
		d.counter.Inc()
	}
}

func (d *distinctScrapers) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.seen)
}
