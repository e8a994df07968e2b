package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

// AnalysisMetrics counts analysis outcomes. Both the API and the worker
// register it, so it implements ports.AnalysisObserver.
type AnalysisMetrics struct {
	service string

	analysesTotal      *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	acquisitionSources *prometheus.CounterVec
	ocrPagesTotal      *prometheus.CounterVec
	vendorTotal        *prometheus.CounterVec
	reconcileTotal     *prometheus.CounterVec
	warningsTotal      *prometheus.CounterVec
}

func newAnalysisMetrics(service string, registry *prometheus.Registry) *AnalysisMetrics {
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Completed analyses by selected total source.",
		},
		[]string{"service", "total_source"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoice",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds, acquisition included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"service"},
	)
	acquisitionSources := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "acquisition",
			Name:      "source_used_total",
			Help:      "Analyses that used text from each acquisition source.",
		},
		[]string{"service", "source"},
	)
	ocrPagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "acquisition",
			Name:      "ocr_pages_total",
			Help:      "Pages recognized with OCR.",
		},
		[]string{"service"},
	)
	vendorTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "vendor",
			Name:      "classified_total",
			Help:      "Analyses by classified vendor.",
		},
		[]string{"service", "vendor"},
	)
	reconcileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "reconcile",
			Name:      "outcome_total",
			Help:      "Reconciliation outcomes by reason.",
		},
		[]string{"service", "reason"},
	)
	warningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "totals",
			Name:      "warnings_total",
			Help:      "Totals sanity warnings by name.",
		},
		[]string{"service", "warning"},
	)

	registry.MustRegister(analysesTotal, duration, acquisitionSources, ocrPagesTotal, vendorTotal, reconcileTotal, warningsTotal)

	return &AnalysisMetrics{
		service:            service,
		analysesTotal:      analysesTotal,
		duration:           duration,
		acquisitionSources: acquisitionSources,
		ocrPagesTotal:      ocrPagesTotal,
		vendorTotal:        vendorTotal,
		reconcileTotal:     reconcileTotal,
		warningsTotal:      warningsTotal,
	}
}

func (m *AnalysisMetrics) ObserveAnalysis(a *domain.Analysis) {
	if m == nil || a == nil {
		return
	}
	source := string(a.Selection.Source)
	if source == "" {
		source = string(domain.TotalSourceNone)
	}
	m.analysesTotal.WithLabelValues(m.service, source).Inc()
	m.duration.WithLabelValues(m.service).Observe(a.DurationMS / 1000)

	used := a.Acquisition.SourcesUsed
	if used.DirectLayerChars > 0 {
		m.acquisitionSources.WithLabelValues(m.service, string(domain.SourceDirect)).Inc()
	}
	if used.LayoutAwareChars > 0 {
		m.acquisitionSources.WithLabelValues(m.service, string(domain.SourceLayout)).Inc()
	}
	if used.OCRChars > 0 {
		m.acquisitionSources.WithLabelValues(m.service, string(domain.SourceOCR)).Inc()
	}
	if n := len(a.Acquisition.OCRPages); n > 0 {
		m.ocrPagesTotal.WithLabelValues(m.service).Add(float64(n))
	}

	vendor := a.Vendor.VendorKey
	if vendor == "" {
		vendor = domain.GenericVendorKey
	}
	m.vendorTotal.WithLabelValues(m.service, vendor).Inc()
	if a.Reconciliation.Reason != "" {
		m.reconcileTotal.WithLabelValues(m.service, string(a.Reconciliation.Reason)).Inc()
	}
	for _, w := range a.Totals.Warnings {
		m.warningsTotal.WithLabelValues(m.service, w).Inc()
	}
}
