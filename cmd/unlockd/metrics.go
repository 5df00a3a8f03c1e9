package main

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "unlockd"

// Metrics counts controller activity. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	triggers       *prometheus.CounterVec
	variantSwaps   *prometheus.CounterVec
	launchFailures prometheus.Counter
	cmdFailures    *prometheus.CounterVec
	silentMode     prometheus.Gauge
	renderers      prometheus.Gauge
}

// NewMetrics registers the controller collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "triggers_total",
				Help:      "Triggers routed, by variant and resulting action.",
			},
			[]string{"variant", "action"},
		),
		variantSwaps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "variant_swaps_total",
				Help:      "Widget variants constructed, by identity.",
			},
			[]string{"variant"},
		),
		launchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "launch_failures_total",
				Help:      "Launches that could not be resolved or started.",
			},
		),
		cmdFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "command_failures_total",
				Help:      "Commands whose collaborator call failed, by command.",
			},
			[]string{"command"},
		),
		silentMode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "silent_mode",
				Help:      "1 while the surface shows silent mode.",
			},
		),
		renderers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "renderers",
				Help:      "Connected render state websocket clients.",
			},
		),
	}

	m.registry.MustRegister(
		m.triggers,
		m.variantSwaps,
		m.launchFailures,
		m.cmdFailures,
		m.silentMode,
		m.renderers,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe updates counters from a reducer broadcast.
func (m *Metrics) observe(b StateBroadcast) {
	if m == nil {
		return
	}
	switch v := b.(type) {
	case BroadcastActionRouted:
		m.triggers.WithLabelValues(v.Variant.String(), actionKind(v.Action)).Inc()
	case BroadcastVariantChanged:
		m.variantSwaps.WithLabelValues(v.Variant.String()).Inc()
	case BroadcastSurfaceChanged:
		if v.Interaction.SilentMode {
			m.silentMode.Set(1)
		} else {
			m.silentMode.Set(0)
		}
	}
}

func (m *Metrics) launchFailed() {
	if m == nil {
		return
	}
	m.launchFailures.Inc()
}

// setRenderers is the hub's OnClients hook.
func (m *Metrics) setRenderers(n int) {
	if m == nil {
		return
	}
	m.renderers.Set(float64(n))
}

func (m *Metrics) commandFailed(cmd Command) {
	if m == nil || cmd == nil {
		return
	}
	name, _, _ := strings.Cut(cmd.String(), "(")
	m.cmdFailures.WithLabelValues(name).Inc()
}
