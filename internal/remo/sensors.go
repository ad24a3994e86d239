package remo

import (
	"sort"
	"time"
)

// ECHONET Lite property codes used by Remo E smart meters.
const (
	EPCInstantPower     = 231
	EPCCumulativeEnergy = 224

	// Cumulative readings arrive in Wh; divide to report kWh.
	energyCoefficient = 1000.0
)

// Short sensor-type codes in a device's newest_events map.
const (
	EventTemperature = "te"
	EventHumidity    = "hu"
	EventIlluminance = "il"
)

// DefaultStaleness is how long a device may go without an update before its
// readings are reported unavailable.
const DefaultStaleness = time.Hour

// echonetProperty looks a property up by EPC code. Property order in the
// payload is not contractually stable, so positional access is never safe.
func echonetProperty(a Appliance, epc int) (float64, bool) {
	if a.SmartMeter == nil {
		return 0, false
	}
	for _, prop := range a.SmartMeter.Properties {
		if prop.EPC == epc {
			return prop.Val, true
		}
	}
	return 0, false
}

// InstantPower returns the meter's instantaneous consumption in watts.
func InstantPower(a Appliance) (float64, bool) {
	return echonetProperty(a, EPCInstantPower)
}

// CumulativeEnergy returns the meter's cumulative consumption in kWh.
func CumulativeEnergy(a Appliance) (float64, bool) {
	value, ok := echonetProperty(a, EPCCumulativeEnergy)
	if !ok {
		return 0, false
	}
	return value / energyCoefficient, true
}

func deviceEvent(d Device, kind string) (float64, bool) {
	event, ok := d.NewestEvents[kind]
	if !ok {
		return 0, false
	}
	return event.Val, true
}

// Temperature returns the device's ambient temperature reading in celsius.
func Temperature(d Device) (float64, bool) {
	return deviceEvent(d, EventTemperature)
}

// Humidity returns the device's relative humidity reading in percent.
func Humidity(d Device) (float64, bool) {
	return deviceEvent(d, EventHumidity)
}

// Illuminance returns the device's light reading in lux.
func Illuminance(d Device) (float64, bool) {
	return deviceEvent(d, EventIlluminance)
}

// SensorKinds reports which ambient sensors the device actually has, from
// the event keys present in the record. Capability discovery happens once
// per device, not per read.
func SensorKinds(d Device) []string {
	kinds := make([]string, 0, 3)
	for _, kind := range []string{EventTemperature, EventHumidity, EventIlluminance} {
		if _, ok := d.NewestEvents[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// DeviceAvailable reports whether the device's data is fresh enough to
// serve. A device with no parseable updated_at is treated as unavailable;
// staleness <= 0 selects the default threshold.
func DeviceAvailable(d Device, now time.Time, staleness time.Duration) bool {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	updated, ok := d.UpdatedTime()
	if !ok {
		return false
	}
	return now.Sub(updated) <= staleness
}
