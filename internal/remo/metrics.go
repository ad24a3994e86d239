package remo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exports the cached snapshot as prometheus metrics. It
// never touches the network; the coordinator's poll cycle is the only thing
// that talks to the API.
type MetricsCollector struct {
	service *Service

	pollSuccess   prometheus.Gauge
	pollAge       prometheus.Gauge
	pollFailures  prometheus.Gauge
	deviceTemp    *prometheus.GaugeVec
	deviceHum     *prometheus.GaugeVec
	deviceLux     *prometheus.GaugeVec
	deviceWiFi    *prometheus.GaugeVec
	deviceAvail   *prometheus.GaugeVec
	meterPower    *prometheus.GaugeVec
	meterEnergy   *prometheus.GaugeVec
	acTargetTemp  *prometheus.GaugeVec
	acCurrentTemp *prometheus.GaugeVec
	acMode        *prometheus.GaugeVec
}

func NewMetricsCollector(service *Service) *MetricsCollector {
	deviceLabels := []string{"device_id", "device_name"}
	meterLabels := []string{"appliance_id", "nickname"}
	acLabels := []string{"appliance_id", "nickname"}
	acModeLabels := []string{"appliance_id", "nickname", "mode"}

	return &MetricsCollector{
		service: service,
		pollSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remo_poll_success",
			Help: "Whether the last poll cycle succeeded (1=ok, 0=error)",
		}),
		pollAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remo_snapshot_age_seconds",
			Help: "Seconds since the last successful poll",
		}),
		pollFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remo_poll_consecutive_failures",
			Help: "Consecutive failed poll cycles since the last success",
		}),
		deviceTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_device_temperature_celsius",
			Help: "Ambient temperature reported by the hub device",
		}, deviceLabels),
		deviceHum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_device_humidity_percent",
			Help: "Relative humidity reported by the hub device",
		}, deviceLabels),
		deviceLux: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_device_illuminance_lux",
			Help: "Illuminance reported by the hub device",
		}, deviceLabels),
		deviceWiFi: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_device_wifi_strength_dbm",
			Help: "WiFi signal strength reported by the hub device",
		}, deviceLabels),
		deviceAvail: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_device_available",
			Help: "Whether the device updated within the staleness window (1=available)",
		}, deviceLabels),
		meterPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_meter_power_watts",
			Help: "Instantaneous power reported by the smart meter",
		}, meterLabels),
		meterEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_meter_energy_kwh",
			Help: "Cumulative energy reported by the smart meter",
		}, meterLabels),
		acTargetTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_ac_target_temperature_celsius",
			Help: "Target temperature of the AC appliance",
		}, acLabels),
		acCurrentTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_ac_current_temperature_celsius",
			Help: "Room temperature seen by the AC appliance's hub device",
		}, acLabels),
		acMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remo_ac_mode",
			Help: "Active AC mode (1=active)",
		}, acModeLabels),
	}
}

func (c *MetricsCollector) vecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		c.deviceTemp, c.deviceHum, c.deviceLux, c.deviceWiFi, c.deviceAvail,
		c.meterPower, c.meterEnergy,
		c.acTargetTemp, c.acCurrentTemp, c.acMode,
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.pollSuccess.Describe(ch)
	c.pollAge.Describe(ch)
	c.pollFailures.Describe(ch)
	for _, vec := range c.vecs() {
		vec.Describe(ch)
	}
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	coordinator := c.service.Coordinator()
	snap := coordinator.Snapshot()
	failures := coordinator.ConsecutiveFailures()

	c.pollFailures.Set(float64(failures))
	if failures == 0 && snap != nil {
		c.pollSuccess.Set(1)
	} else {
		c.pollSuccess.Set(0)
	}

	if snap == nil {
		c.pollSuccess.Collect(ch)
		c.pollFailures.Collect(ch)
		return
	}

	now := time.Now()
	c.pollAge.Set(now.Sub(coordinator.LastSuccess()).Seconds())

	for _, vec := range c.vecs() {
		vec.Reset()
	}

	for _, device := range snap.Devices {
		labels := prometheus.Labels{
			"device_id":   device.ID,
			"device_name": device.Name,
		}
		if value, ok := Temperature(device); ok {
			c.deviceTemp.With(labels).Set(value)
		}
		if value, ok := Humidity(device); ok {
			c.deviceHum.With(labels).Set(value)
		}
		if value, ok := Illuminance(device); ok {
			c.deviceLux.With(labels).Set(value)
		}
		if device.WiFiStrength != nil {
			c.deviceWiFi.With(labels).Set(*device.WiFiStrength)
		}
		if DeviceAvailable(device, now, DefaultStaleness) {
			c.deviceAvail.With(labels).Set(1)
		} else {
			c.deviceAvail.With(labels).Set(0)
		}
	}

	for _, appliance := range snap.Appliances {
		if appliance.Type != TypeSmartMeter {
			continue
		}
		labels := prometheus.Labels{
			"appliance_id": appliance.ID,
			"nickname":     appliance.Nickname,
		}
		if value, ok := InstantPower(appliance); ok {
			c.meterPower.With(labels).Set(value)
		}
		if value, ok := CumulativeEnergy(appliance); ok {
			c.meterEnergy.With(labels).Set(value)
		}
	}

	for _, climate := range c.service.Climates() {
		labels := prometheus.Labels{
			"appliance_id": climate.ApplianceID(),
			"nickname":     climate.Nickname(),
		}
		if value, ok := climate.TargetTemperature(); ok {
			c.acTargetTemp.With(labels).Set(value)
		}
		if value, ok := climate.CurrentTemperature(); ok {
			c.acCurrentTemp.With(labels).Set(value)
		}
		c.acMode.With(prometheus.Labels{
			"appliance_id": climate.ApplianceID(),
			"nickname":     climate.Nickname(),
			"mode":         string(climate.Mode()),
		}).Set(1)
	}

	c.pollSuccess.Collect(ch)
	c.pollAge.Collect(ch)
	c.pollFailures.Collect(ch)
	for _, vec := range c.vecs() {
		vec.Collect(ch)
	}
}
