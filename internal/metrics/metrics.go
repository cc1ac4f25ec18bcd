// Package metrics exports per-animation tick statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreman2200/lumiplay/internal/playback"
)

const namespace = "lumiplay"

type Collector struct {
	reg *prometheus.Registry

	Ticks        *prometheus.CounterVec
	Repeats      *prometheus.CounterVec
	Ends         *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	RenderTime   *prometheus.HistogramVec
	TickDelay    *prometheus.HistogramVec
	CurrentFrame *prometheus.GaugeVec
}

func New() *Collector {
	labels := []string{"instance"}
	buckets := []float64{.0005, .001, .002, .005, .01, .02, .033, .05, .1, .25}
	c := &Collector{
		reg: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Frames rendered.",
		}, labels),
		Repeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repeats_total",
			Help:      "Completed repeat cycles.",
		}, labels),
		Ends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ends_total",
			Help:      "Runs that reached their end.",
		}, labels),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Ticks that failed to render.",
		}, labels),
		RenderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Time spent rendering and presenting one frame.",
			Buckets:   buckets,
		}, labels),
		TickDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_delay_seconds",
			Help:      "Delay scheduled before the next tick.",
			Buckets:   buckets,
		}, labels),
		CurrentFrame: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame",
			Help:      "Last rendered frame index.",
		}, labels),
	}
	c.reg.MustRegister(c.Ticks, c.Repeats, c.Ends, c.Errors, c.RenderTime, c.TickDelay, c.CurrentFrame)
	return c
}

// Handler serves the collector registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// For returns an Observer recording under the given instance label.
func (c *Collector) For(instance string) *Observer {
	l := prometheus.Labels{"instance": instance}
	return &Observer{
		ticks:   c.Ticks.With(l),
		repeats: c.Repeats.With(l),
		ends:    c.Ends.With(l),
		errors:  c.Errors.With(l),
		render:  c.RenderTime.With(l),
		delay:   c.TickDelay.With(l),
		frame:   c.CurrentFrame.With(l),
	}
}

// Observer implements playback.Observer for one animation instance.
type Observer struct {
	ticks, repeats, ends, errors prometheus.Counter
	render, delay                prometheus.Observer
	frame                        prometheus.Gauge
}

func (o *Observer) ObserveTick(s playback.TickStats) {
	o.ticks.Inc()
	o.frame.Set(float64(s.Frame))
	o.render.Observe(s.Render.Seconds())
	if s.Result == playback.Repeated {
		o.repeats.Inc()
	}
	if s.Finished {
		o.ends.Inc()
	}
	if s.Delay >= 0 {
		o.delay.Observe(s.Delay.Seconds())
	}
}

// RenderError counts a failed tick.
func (o *Observer) RenderError() { o.errors.Inc() }
