package metrics

import (
	"strconv"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	autoInserts  *prom.CounterVec
	triggers     prom.Counter
	suppressed   prom.Counter
	accepts      *prom.CounterVec
	titleLookups *prom.CounterVec
	sessions     prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.autoInserts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "anchorlink",
			Name:      "auto_inserts_total",
			Help:      "Display texts inserted automatically after a link was closed",
		}, []string{"embed"})
		pr.triggers = prom.NewCounter(prom.CounterOpts{
			Namespace: "anchorlink",
			Name:      "suggest_triggers_total",
			Help:      "Suggestion popups opened",
		})
		pr.suppressed = prom.NewCounter(prom.CounterOpts{
			Namespace: "anchorlink",
			Name:      "suggest_suppressed_total",
			Help:      "Trigger evaluations swallowed by the post-accept latch",
		})
		pr.accepts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "anchorlink",
			Name:      "suggest_accepts_total",
			Help:      "Accepted suggestions by candidate label",
		}, []string{"candidate"})
		pr.titleLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "anchorlink",
			Name:      "title_lookups_total",
			Help:      "Title property lookups by outcome",
		}, []string{"outcome"})
		pr.sessions = prom.NewGauge(prom.GaugeOpts{
			Namespace: "anchorlink",
			Name:      "open_sessions",
			Help:      "Editing sessions currently open",
		})
		reg.MustRegister(pr.autoInserts, pr.triggers, pr.suppressed, pr.accepts, pr.titleLookups, pr.sessions)
	})
	return pr
}

func (p *PrometheusRecorder) IncAutoInsert(embed bool) {
	if p == nil || p.autoInserts == nil {
		return
	}
	p.autoInserts.WithLabelValues(strconv.FormatBool(embed)).Inc()
}

func (p *PrometheusRecorder) IncTrigger() {
	if p == nil || p.triggers == nil {
		return
	}
	p.triggers.Inc()
}

func (p *PrometheusRecorder) IncSuppressed() {
	if p == nil || p.suppressed == nil {
		return
	}
	p.suppressed.Inc()
}

func (p *PrometheusRecorder) IncAccept(label string) {
	if p == nil || p.accepts == nil {
		return
	}
	p.accepts.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) IncTitleLookup(outcome Outcome) {
	if p == nil || p.titleLookups == nil {
		return
	}
	p.titleLookups.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetOpenSessions(n int) {
	if p == nil || p.sessions == nil {
		return
	}
	p.sessions.Set(float64(n))
}
