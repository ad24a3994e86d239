package core

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// RegistryService provides plugin discovery to clients over HTTP.
type RegistryService struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewRegistryService(plugins []Plugin) *RegistryService {
	return &RegistryService{plugins: plugins}
}

// PluginSummary is the list-view record for a plugin.
type PluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

// PluginDescriptor is the detail-view record for a plugin.
type PluginDescriptor struct {
	PluginID      string   `json:"plugin_id"`
	DisplayName   string   `json:"display_name"`
	Version       string   `json:"version"`
	Services      []string `json:"services,omitempty"`
	Status        string   `json:"status"`
	HealthMessage string   `json:"health_message,omitempty"`
}

// ListPlugins returns a summary of every registered plugin.
func (r *RegistryService) ListPlugins() []PluginSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]PluginSummary, 0, len(r.plugins))
	for _, p := range r.plugins {
		manifest := p.Manifest()
		summaries = append(summaries, PluginSummary{
			PluginID:    manifest.PluginID,
			DisplayName: manifest.DisplayName,
			Version:     manifest.Version,
			Status:      string(p.Health()),
		})
	}
	return summaries
}

// DescribePlugin returns the full descriptor for one plugin.
func (r *RegistryService) DescribePlugin(id string) (PluginDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		manifest := p.Manifest()
		if manifest.PluginID != id {
			continue
		}
		return PluginDescriptor{
			PluginID:      manifest.PluginID,
			DisplayName:   manifest.DisplayName,
			Version:       manifest.Version,
			Services:      manifest.Services,
			Status:        string(p.Health()),
			HealthMessage: p.HealthMessage(),
		}, true
	}
	return PluginDescriptor{}, false
}

// RegisterHTTP mounts the registry at /plugins and /plugins/{id}.
func (r *RegistryService) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/plugins", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, r.ListPlugins())
	})
	mux.HandleFunc("/plugins/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/plugins/")
		descriptor, ok := r.DescribePlugin(id)
		if !ok {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, descriptor)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
