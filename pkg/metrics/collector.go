package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/conftree/pkg/conftree"
)

// DocumentSource returns the currently loaded document, or nil.
type DocumentSource func() *conftree.Document

// documentCollector implements prometheus.Collector, reading the shape of
// the loaded document on each scrape.
type documentCollector struct {
	source DocumentSource

	lines         *prometheus.Desc
	roots         *prometheus.Desc
	maxGeneration *prometheus.Desc
	diagnostics   *prometheus.Desc
}

// NewDocumentCollector returns a collector describing the document
// returned by source.
func NewDocumentCollector(source DocumentSource) prometheus.Collector {
	return &documentCollector{
		source: source,

		lines: prometheus.NewDesc(
			"conftree_document_lines",
			"Lines in the loaded document.",
			[]string{"mode"}, nil,
		),
		roots: prometheus.NewDesc(
			"conftree_document_roots",
			"Top-level nodes in the loaded document.",
			nil, nil,
		),
		maxGeneration: prometheus.NewDesc(
			"conftree_document_max_generation",
			"Deepest generation in the loaded document.",
			nil, nil,
		),
		diagnostics: prometheus.NewDesc(
			"conftree_document_diagnostics",
			"Structural anomalies in the loaded document.",
			[]string{"kind"}, nil,
		),
	}
}

func (c *documentCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lines
	ch <- c.roots
	ch <- c.maxGeneration
	ch <- c.diagnostics
}

func (c *documentCollector) Collect(ch chan<- prometheus.Metric) {
	doc := c.source()
	if doc == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.lines, prometheus.GaugeValue,
		float64(doc.Len()), doc.Mode.String())
	ch <- prometheus.MustNewConstMetric(c.roots, prometheus.GaugeValue,
		float64(len(doc.Roots())))

	maxGen := 0
	for _, n := range doc.Lines {
		if g := n.Generation(); g > maxGen {
			maxGen = g
		}
	}
	ch <- prometheus.MustNewConstMetric(c.maxGeneration, prometheus.GaugeValue, float64(maxGen))

	byKind := make(map[conftree.DiagnosticKind]int)
	for _, d := range doc.Diagnostics {
		byKind[d.Kind]++
	}
	for kind, n := range byKind {
		ch <- prometheus.MustNewConstMetric(c.diagnostics, prometheus.GaugeValue,
			float64(n), kind.String())
	}
}
