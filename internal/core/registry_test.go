package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type stubPlugin struct {
	id            string
	name          string
	version       string
	services      []string
	health        HealthStatus
	healthMessage string
}

func (s stubPlugin) ID() string { return s.id }

func (s stubPlugin) Manifest() Manifest {
	return Manifest{
		PluginID:    s.id,
		DisplayName: s.name,
		Version:     s.version,
		Services:    s.services,
	}
}

func (s stubPlugin) Collectors() []prometheus.Collector { return nil }

func (s stubPlugin) Health() HealthStatus { return s.health }

func (s stubPlugin) HealthMessage() string { return s.healthMessage }

func newStubPlugin(id string) stubPlugin {
	return stubPlugin{
		id:       id,
		name:     "Demo",
		version:  "0.1.0",
		services: []string{"plugins.demo.v1.DemoService"},
		health:   HealthHealthy,
	}
}

func TestRegistryListPlugins(t *testing.T) {
	plugin := newStubPlugin("demo")
	svc := NewRegistryService([]Plugin{plugin})

	summaries := svc.ListPlugins()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(summaries))
	}

	got := summaries[0]
	if got.PluginID != "demo" || got.DisplayName != "Demo" || got.Version != "0.1.0" {
		t.Fatalf("unexpected plugin summary: %+v", got)
	}
	if got.Status != string(HealthHealthy) {
		t.Fatalf("unexpected health status: %s", got.Status)
	}
}

func TestRegistryDescribePlugin(t *testing.T) {
	plugin := newStubPlugin("demo")
	svc := NewRegistryService([]Plugin{plugin})

	descriptor, ok := svc.DescribePlugin("demo")
	if !ok {
		t.Fatalf("expected plugin descriptor")
	}
	if descriptor.PluginID != "demo" {
		t.Fatalf("unexpected plugin id: %s", descriptor.PluginID)
	}
	if len(descriptor.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(descriptor.Services))
	}

	if _, ok := svc.DescribePlugin("missing"); ok {
		t.Fatalf("expected missing plugin to be absent")
	}
}

func TestRegistryHTTP(t *testing.T) {
	svc := NewRegistryService([]Plugin{newStubPlugin("demo")})

	mux := http.NewServeMux()
	svc.RegisterHTTP(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/plugins")
	if err != nil {
		t.Fatalf("GET /plugins error: %v", err)
	}
	defer resp.Body.Close()

	var summaries []PluginSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].PluginID != "demo" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	missing, err := http.Get(ts.URL + "/plugins/nope")
	if err != nil {
		t.Fatalf("GET /plugins/nope error: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestFilterPlugins(t *testing.T) {
	compiled := []Plugin{newStubPlugin("demo"), newStubPlugin("extra")}

	active := FilterPlugins(compiled, map[string]bool{"demo": true}, false)
	if len(active) != 1 || active[0].ID() != "demo" {
		t.Fatalf("unexpected active plugins: %v", active)
	}

	active = FilterPlugins(compiled, map[string]bool{}, true)
	if len(active) != 2 {
		t.Fatalf("expected all plugins, got %d", len(active))
	}
}

func TestValidateEnabledPlugins(t *testing.T) {
	compiled := []Plugin{newStubPlugin("demo")}

	if err := ValidateEnabledPlugins(compiled, map[string]bool{"demo": true}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateEnabledPlugins(compiled, map[string]bool{"missing": true}, false); err == nil {
		t.Fatalf("expected error for missing plugin")
	}
}

func TestValidatePlugins(t *testing.T) {
	if err := ValidatePlugins([]Plugin{newStubPlugin("demo")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidatePlugins([]Plugin{newStubPlugin("Bad-ID")}); err == nil {
		t.Fatalf("expected error for invalid id")
	}

	if err := ValidatePlugins([]Plugin{newStubPlugin("demo"), newStubPlugin("demo")}); err == nil {
		t.Fatalf("expected error for duplicate id")
	}
}
