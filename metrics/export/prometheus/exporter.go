package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is satisfied by *authcore.Engine.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics on every request.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		e.WriteTo(&buf)
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(buf.Bytes())
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// nothing was dropped.
func (e *Exporter) Render() string {
	var b strings.Builder
	e.WriteTo(&b)
	return b.String()
}

// WriteTo writes the exposition text to w.
func (e *Exporter) WriteTo(w io.Writer) {
	if e == nil || e.source == nil {
		return
	}
	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, def := range internaldefs.Counters {
		writeCounter(w, def, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.Histograms {
		writeHistogram(w, def, internaldefs.Cumulative(snapshot.Histograms[def.ID]))
	}
	writeCounter(w, internaldefs.AuditDropped, dropped)
}

func writeHeader(w io.Writer, def internaldefs.Def, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", def.Name, escapeHelp(def.Help), def.Name, kind)
}

func writeCounter(w io.Writer, def internaldefs.Def, value uint64) {
	writeHeader(w, def, "counter")
	fmt.Fprintf(w, "%s %d\n", def.Name, value)
}

func writeHistogram(w io.Writer, def internaldefs.Def, cumulative [8]uint64) {
	writeHeader(w, def, "histogram")
	for i, le := range internaldefs.Bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
	}
	fmt.Fprintf(w, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
	// Sums are not tracked.
	fmt.Fprintf(w, "%s_sum 0\n", def.Name)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
