package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics counts schedule loads and saves on both the API and
// the editor side. Source is "api" or "editor".
type AvailabilityMetrics struct {
	loadsTotal    *prometheus.CounterVec
	savesTotal    *prometheus.CounterVec
	loadIssues    *prometheus.CounterVec
	blocksPerSave prometheus.Histogram
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_panel",
			Subsystem: "availability",
			Name:      "loads_total",
			Help:      "Weekly availability loads by outcome",
		}, []string{"source", "status"}),
		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_panel",
			Subsystem: "availability",
			Name:      "saves_total",
			Help:      "Weekly availability replacements by outcome",
		}, []string{"source", "status"}),
		loadIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_panel",
			Subsystem: "availability",
			Name:      "load_issues_total",
			Help:      "Persisted blocks rejected or overlapping on load",
		}, []string{"kind"}),
		blocksPerSave: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic_panel",
			Subsystem: "availability",
			Name:      "blocks_per_save",
			Help:      "Number of blocks in each accepted replacement",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loadsTotal, m.savesTotal, m.loadIssues, m.blocksPerSave)
	return m
}

func (m *AvailabilityMetrics) ObserveLoad(source, status string) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(source, status).Inc()
}

func (m *AvailabilityMetrics) ObserveLoadIssues(rejected, overlaps int) {
	if m == nil {
		return
	}
	if rejected > 0 {
		m.loadIssues.WithLabelValues("rejected").Add(float64(rejected))
	}
	if overlaps > 0 {
		m.loadIssues.WithLabelValues("overlap").Add(float64(overlaps))
	}
}

// ObserveSave records one save attempt. blocks is only observed for
// successful saves.
func (m *AvailabilityMetrics) ObserveSave(source, status string, blocks int) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(source, status).Inc()
	if status == "ok" {
		m.blocksPerSave.Observe(float64(blocks))
	}
}
