package metrics

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/psaab/conftree/pkg/conftree"
)

const sample = `router bgp 65000
 neighbor 192.0.2.2
      remote-as 65001
!
`

func parseWith(t *testing.T, rec *Recorder) *conftree.Document {
	t.Helper()
	opts := conftree.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: rec,
	}
	return conftree.ParseString(sample, opts)
}

func TestRecorder_ObserveBuild(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := NewRecorder(registry)

	parseWith(t, rec)
	parseWith(t, rec)

	if got := testutil.ToFloat64(rec.builds.WithLabelValues("indent")); got != 2 {
		t.Errorf("expected 2 builds, got %f", got)
	}
	if got := testutil.ToFloat64(rec.linesParsed.WithLabelValues("indent")); got != 8 {
		t.Errorf("expected 8 lines, got %f", got)
	}
	if got := testutil.ToFloat64(rec.diagnostics.WithLabelValues("level-jump")); got != 2 {
		t.Errorf("expected 2 level jumps, got %f", got)
	}
	if got := testutil.CollectAndCount(rec.buildDuration); got != 1 {
		t.Errorf("expected 1 histogram, got %d", got)
	}
}

func TestRecorder_ObserveQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := NewRecorder(registry)

	tests := []struct {
		name   string
		found  bool
		err    error
		result string
	}{
		{"found", true, nil, ResultFound},
		{"not found", false, nil, ResultNotFound},
		{"error wins", true, errors.New("bad spec"), ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.ObserveQuery("find", tt.found, tt.err, time.Millisecond)
			count := testutil.ToFloat64(rec.queries.WithLabelValues("find", tt.result))
			if count != 1 {
				t.Errorf("expected 1 %s query, got %f", tt.result, count)
			}
		})
	}

	if got := testutil.CollectAndCount(rec.queryDuration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}

func TestDocumentCollector(t *testing.T) {
	var doc *conftree.Document
	c := NewDocumentCollector(func() *conftree.Document { return doc })

	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("expected no metrics without a document, got %d", got)
	}

	doc = parseWith(t, NewRecorder(prometheus.NewRegistry()))
	expected := `
# HELP conftree_document_diagnostics Structural anomalies in the loaded document.
# TYPE conftree_document_diagnostics gauge
conftree_document_diagnostics{kind="level-jump"} 1
# HELP conftree_document_lines Lines in the loaded document.
# TYPE conftree_document_lines gauge
conftree_document_lines{mode="indent"} 4
# HELP conftree_document_max_generation Deepest generation in the loaded document.
# TYPE conftree_document_max_generation gauge
conftree_document_max_generation 3
# HELP conftree_document_roots Top-level nodes in the loaded document.
# TYPE conftree_document_roots gauge
conftree_document_roots 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}
