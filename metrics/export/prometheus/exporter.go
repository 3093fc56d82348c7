package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/debtflow/authcore"
	"github.com/debtflow/authcore/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricsSource is satisfied by *authcore.Service.
type MetricsSource interface {
	internaldefs.AuditSource
	MetricsSnapshot() authcore.MetricsSnapshot
}

// PrometheusExporter renders Service metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter reading from svc.
func NewPrometheusExporter(svc *authcore.Service) *PrometheusExporter {
	return &PrometheusExporter{source: svc}
}

// NewPrometheusExporterFromSource creates an exporter from any [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It is empty while metrics and audit
// are both disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	audit := make([]uint64, len(internaldefs.AuditDefs))
	var auditTotal uint64
	for i, def := range internaldefs.AuditDefs {
		audit[i] = def.Read(p.source)
		auditTotal += audit[i]
	}
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && auditTotal == 0 {
		return ""
	}

	w := textWriter{}
	w.Grow(8192)
	for _, def := range internaldefs.CounterDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		w.histogram(def, snapshot.Histograms[def.ID])
	}
	for i, def := range internaldefs.AuditDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", audit[i])
	}
	return w.String()
}

type textWriter struct {
	strings.Builder
}

func (w *textWriter) family(name, help, kind string) {
	w.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *textWriter) sample(name, labels string, value uint64) {
	w.WriteString(name)
	if labels != "" {
		w.WriteString("{" + labels + "}")
	}
	w.WriteByte(' ')
	w.WriteString(strconv.FormatUint(value, 10))
	w.WriteByte('\n')
}

func (w *textWriter) histogram(def internaldefs.HistogramDef, raw []uint64) {
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))

	w.family(def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		w.sample(def.Name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	w.sample(def.Name+"_count", "", cumulative[len(cumulative)-1])
	// Snapshots carry bucket counts only.
	w.sample(def.Name+"_sum", "", 0)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
