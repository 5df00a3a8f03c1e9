package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveBroadcasts(t *testing.T) {
	m := NewMetrics()

	m.observe(BroadcastActionRouted{Variant: VariantRing, Action: LaunchConfigured{Slot: 2}})
	m.observe(BroadcastActionRouted{Variant: VariantRing, Action: LaunchConfigured{Slot: 3}})
	m.observe(BroadcastActionRouted{Variant: VariantSlider, Action: Unlock{}})
	m.observe(BroadcastVariantChanged{Variant: VariantWave})
	m.observe(BroadcastSurfaceChanged{Interaction: InteractionState{SilentMode: true}})
	m.launchFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.triggers.WithLabelValues("ring", "launch_configured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.triggers.WithLabelValues("slider", "unlock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.variantSwaps.WithLabelValues("wave")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.launchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.silentMode))

	m.observe(BroadcastSurfaceChanged{})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.silentMode))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe(BroadcastVariantChanged{Variant: VariantSlider})
	m.launchFailed()
	m.setRenderers(2)
}

func TestMetrics_ServedOnMux(t *testing.T) {
	m := NewMetrics()
	m.observe(BroadcastVariantChanged{Variant: VariantRotary})

	mux := newHTTPMux(DefaultConfig().HTTP, nil, m)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `unlockd_variant_swaps_total{variant="rotary"} 1`), body)
}

func TestMetrics_RenderersFollowHub(t *testing.T) {
	m := NewMetrics()
	hub := NewHub(discardLogger(), HubConfig{OnClients: m.setRenderers})

	a := attachRenderer(hub, "a", 1)
	attachRenderer(hub, "b", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.renderers))

	hub.drop(a, "gone")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderers))
}
