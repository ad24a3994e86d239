package remo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glockpete/hass-nature-remo/internal/core"
	"github.com/glockpete/hass-nature-remo/internal/rate"
)

const (
	pluginID      = "nature_remo"
	pluginVersion = "1.0.0"
)

// Plugin adapts the service to the host plugin contract.
type Plugin struct {
	service *Service
}

func NewPlugin(service *Service) *Plugin {
	return &Plugin{service: service}
}

func (p *Plugin) ID() string { return pluginID }

func (p *Plugin) Manifest() core.Manifest {
	return core.Manifest{
		PluginID:    pluginID,
		DisplayName: "Nature Remo",
		Version:     pluginVersion,
		Services:    []string{"climate", "sensor"},
	}
}

func (p *Plugin) Collectors() []prometheus.Collector {
	collectors := []prometheus.Collector{NewMetricsCollector(p.service)}
	collectors = append(collectors, rate.MetricsCollectors()...)
	return collectors
}

func (p *Plugin) Health() core.HealthStatus {
	coordinator := p.service.Coordinator()
	if !coordinator.Ready() {
		return core.HealthError
	}
	if coordinator.ConsecutiveFailures() > 0 {
		return core.HealthDegraded
	}
	return core.HealthHealthy
}

func (p *Plugin) HealthMessage() string {
	coordinator := p.service.Coordinator()
	if !coordinator.Ready() {
		return "no successful poll yet"
	}
	if failures := coordinator.ConsecutiveFailures(); failures > 0 {
		return fmt.Sprintf("%d consecutive poll failures since %s",
			failures, coordinator.LastSuccess().Format(time.RFC3339))
	}
	return ""
}

// RegisterHTTP mounts read-only JSON views of the cached snapshot.
func (p *Plugin) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/api/devices", func(w http.ResponseWriter, req *http.Request) {
		snap := p.service.Snapshot()
		if snap == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		devices := make([]Device, 0, len(snap.Devices))
		for _, device := range snap.Devices {
			devices = append(devices, device)
		}
		writeJSON(w, devices)
	})
	mux.HandleFunc("/api/appliances", func(w http.ResponseWriter, req *http.Request) {
		snap := p.service.Snapshot()
		if snap == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		appliances := make([]Appliance, 0, len(snap.Appliances))
		for _, appliance := range snap.Appliances {
			appliances = append(appliances, appliance)
		}
		writeJSON(w, appliances)
	})
	mux.HandleFunc("/api/ac/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/api/ac/")
		climate, err := p.service.Climate(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, climateView(climate))
	})
}

type acView struct {
	ApplianceID string   `json:"appliance_id"`
	Nickname    string   `json:"nickname"`
	Mode        string   `json:"mode"`
	Modes       []string `json:"modes"`
	TargetTemp  *float64 `json:"target_temperature,omitempty"`
	CurrentTemp *float64 `json:"current_temperature,omitempty"`
	MinTemp     float64  `json:"min_temperature"`
	MaxTemp     float64  `json:"max_temperature"`
	Step        float64  `json:"temperature_step"`
	FanMode     string   `json:"fan_mode,omitempty"`
	FanModes    []string `json:"fan_modes,omitempty"`
	SwingMode   string   `json:"swing_mode,omitempty"`
	SwingModes  []string `json:"swing_modes,omitempty"`
	Preset      string   `json:"preset"`
	Presets     []string `json:"presets,omitempty"`
}

func climateView(climate *Climate) acView {
	view := acView{
		ApplianceID: climate.ApplianceID(),
		Nickname:    climate.Nickname(),
		Mode:        string(climate.Mode()),
		MinTemp:     climate.MinTemp(),
		MaxTemp:     climate.MaxTemp(),
		Step:        climate.TemperatureStep(),
		FanMode:     climate.FanMode(),
		FanModes:    climate.FanModes(),
		SwingMode:   climate.SwingMode(),
		SwingModes:  climate.SwingModes(),
		Preset:      string(climate.CurrentPreset()),
	}
	for _, mode := range climate.HVACModes() {
		view.Modes = append(view.Modes, string(mode))
	}
	for _, preset := range climate.Presets() {
		view.Presets = append(view.Presets, string(preset))
	}
	if value, ok := climate.TargetTemperature(); ok {
		view.TargetTemp = &value
	}
	if value, ok := climate.CurrentTemperature(); ok {
		view.CurrentTemp = &value
	}
	return view
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
