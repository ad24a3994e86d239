package remo

import (
	"strings"
	"time"
)

// Appliance types reported by the API.
const (
	TypeAC         = "AC"
	TypeTV         = "TV"
	TypeLight      = "LIGHT"
	TypeSmartMeter = "EL_SMART_METER"
	TypeIR         = "IR"
)

// Event is one reading in a device's newest_events map.
type Event struct {
	Val       float64 `json:"val"`
	CreatedAt string  `json:"created_at"`
}

// Device is a physical Remo hub unit.
type Device struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	FirmwareVersion string           `json:"firmware_version"`
	SerialNumber    string           `json:"serial_number"`
	MACAddress      string           `json:"mac_address"`
	WiFiStrength    *float64         `json:"wifi_strength,omitempty"`
	UpdatedAt       string           `json:"updated_at"`
	NewestEvents    map[string]Event `json:"newest_events"`
}

// UpdatedTime parses the device's last-update timestamp. The second return is
// false when the field is missing or malformed.
func (d Device) UpdatedTime() (time.Time, bool) {
	if d.UpdatedAt == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, d.UpdatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// DeviceRef is the owning-device echo embedded in an appliance record.
type DeviceRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	FirmwareVersion string `json:"firmware_version"`
}

// Model describes the catalogued appliance model, when known.
type Model struct {
	ID           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
}

// AirconSettings is the raw command state of an AC appliance. All fields are
// vendor strings; absent fields decode as "".
type AirconSettings struct {
	Temp     string `json:"temp"`
	TempUnit string `json:"temp_unit"`
	Mode     string `json:"mode"`
	Vol      string `json:"vol"`
	Dir      string `json:"dir"`
	Button   string `json:"button"`
}

// ModeRange advertises what one vendor mode supports.
type ModeRange struct {
	Temp []string `json:"temp"`
	Vol  []string `json:"vol"`
	Dir  []string `json:"dir"`
}

// AirconRange groups the per-mode capability ranges.
type AirconRange struct {
	Modes        map[string]ModeRange `json:"modes"`
	FixedButtons []string             `json:"fixedButtons"`
}

// Aircon carries AC capability metadata.
type Aircon struct {
	Range AirconRange `json:"range"`
}

// EchonetProperty is one smart-meter property. Ordering within the slice is
// not stable across fetches; always look entries up by EPC code.
type EchonetProperty struct {
	Name string  `json:"name"`
	EPC  int     `json:"epc"`
	Val  float64 `json:"val"`
}

// SmartMeter carries the ECHONET Lite property list of a meter appliance.
type SmartMeter struct {
	Properties []EchonetProperty `json:"echonetlite_properties"`
}

// Appliance is a controllable unit attached to a hub device.
type Appliance struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Nickname   string          `json:"nickname"`
	Device     DeviceRef       `json:"device"`
	Model      *Model          `json:"model"`
	Settings   *AirconSettings `json:"settings"`
	Aircon     *Aircon         `json:"aircon"`
	SmartMeter *SmartMeter     `json:"smart_meter"`
}

// Snapshot is one immutable, internally consistent fetch result. It is
// replaced wholesale on every successful refresh and never mutated.
type Snapshot struct {
	Devices    map[string]Device
	Appliances map[string]Appliance
	FetchedAt  time.Time
}

// NewSnapshot keys the fetched records by id.
func NewSnapshot(devices []Device, appliances []Appliance, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Devices:    make(map[string]Device, len(devices)),
		Appliances: make(map[string]Appliance, len(appliances)),
		FetchedAt:  fetchedAt,
	}
	for _, d := range devices {
		snap.Devices[d.ID] = d
	}
	for _, a := range appliances {
		snap.Appliances[a.ID] = a
	}
	return snap
}

// Device returns the device record for id.
func (s *Snapshot) Device(id string) (Device, bool) {
	d, ok := s.Devices[id]
	return d, ok
}

// Appliance returns the appliance record for id.
func (s *Snapshot) Appliance(id string) (Appliance, bool) {
	a, ok := s.Appliances[id]
	return a, ok
}

// ParentDevice resolves an appliance's owning device. An appliance whose
// device id is unknown to the snapshot is still valid; it just has no parent
// readings.
func (s *Snapshot) ParentDevice(a Appliance) (Device, bool) {
	return s.Device(a.Device.ID)
}

var modelNames = []struct {
	prefix string
	name   string
}{
	{"Remo-E-lite/", "Remo E lite"},
	{"Remo-E/", "Remo E"},
	{"Remo-mini/", "Remo mini"},
	{"Remo/", "Remo"},
}

// ModelName derives a display model from the firmware version string.
// Unknown firmware formats fall back to the raw string.
func ModelName(d Device) string {
	for _, m := range modelNames {
		if strings.HasPrefix(d.FirmwareVersion, m.prefix) {
			return m.name
		}
	}
	return d.FirmwareVersion
}
