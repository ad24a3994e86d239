package remo

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
)

// HVACMode is the abstract operating mode exposed to callers.
type HVACMode string

const (
	HVACOff     HVACMode = "off"
	HVACAuto    HVACMode = "auto"
	HVACCool    HVACMode = "cool"
	HVACHeat    HVACMode = "heat"
	HVACDry     HVACMode = "dry"
	HVACFanOnly HVACMode = "fan_only"
)

// Preset is the button-driven comfort preset.
type Preset string

const (
	PresetNone    Preset = "none"
	PresetEco     Preset = "eco"
	PresetComfort Preset = "comfort"
	PresetBoost   Preset = "boost"
)

const (
	buttonPowerOff = "power-off"

	// Bounds used when the vendor advertises an empty temperature range.
	DefaultMinTemp = 16.0
	DefaultMaxTemp = 30.0
)

// OFF is not a vendor mode; it is expressed through the power-off button.
var modeToVendor = map[HVACMode]string{
	HVACAuto:    "auto",
	HVACCool:    "cool",
	HVACHeat:    "warm",
	HVACDry:     "dry",
	HVACFanOnly: "blow",
}

var vendorToMode = map[string]HVACMode{
	"auto": HVACAuto,
	"cool": HVACCool,
	"warm": HVACHeat,
	"dry":  HVACDry,
	"blow": HVACFanOnly,
}

var presetButtons = map[Preset]string{
	PresetNone:    "normal",
	PresetEco:     "eco",
	PresetComfort: "comfort",
	PresetBoost:   "boost",
}

type airconSender interface {
	SendAirconSettings(ctx context.Context, applianceID string, params map[string]string) (AirconSettings, error)
}

// Climate is the per-appliance control state machine. It derives display
// state from snapshots and translates commands into vendor payloads. State
// set after a successful command is optimistic: the next snapshot is
// authoritative and overwrites it.
type Climate struct {
	sender      airconSender
	applianceID string
	deviceID    string

	defaultTemps map[HVACMode]float64

	mu          sync.Mutex
	nickname    string
	modes       map[string]ModeRange
	mode        HVACMode
	lastMode    HVACMode
	lastTemps   map[HVACMode]float64
	targetTemp  *float64
	currentTemp *float64
	fanMode     string
	swingMode   string
	preset      Preset
}

// NewClimate builds the state machine for one AC appliance and seeds it from
// the appliance's current settings.
func NewClimate(sender airconSender, appliance Appliance, cfg Config) *Climate {
	cfg.applyDefaults()

	c := &Climate{
		sender:      sender,
		applianceID: appliance.ID,
		deviceID:    appliance.Device.ID,
		nickname:    appliance.Nickname,
		defaultTemps: map[HVACMode]float64{
			HVACCool: cfg.DefaultCoolTemp,
			HVACHeat: cfg.DefaultHeatTemp,
		},
		modes:     map[string]ModeRange{},
		lastTemps: map[HVACMode]float64{},
		preset:    PresetNone,
	}

	if appliance.Aircon != nil {
		c.modes = appliance.Aircon.Range.Modes
	}
	c.applySettings(appliance.Settings)
	return c
}

// ApplianceID returns the appliance this instance controls.
func (c *Climate) ApplianceID() string { return c.applianceID }

// DeviceID returns the owning hub device.
func (c *Climate) DeviceID() string { return c.deviceID }

// Nickname returns the user-assigned appliance name.
func (c *Climate) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// ApplySnapshot reconciles local state with a fresh snapshot. Server state
// wins over any optimistic value recorded since the previous poll. An
// appliance missing from the snapshot leaves state untouched; a missing
// parent device only clears the room temperature.
func (c *Climate) ApplySnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}
	appliance, ok := snap.Appliance(c.applianceID)
	if !ok {
		return
	}

	c.mu.Lock()
	c.nickname = appliance.Nickname
	if appliance.Aircon != nil {
		c.modes = appliance.Aircon.Range.Modes
	}
	c.mu.Unlock()

	c.applySettings(appliance.Settings)

	var room *float64
	if device, ok := snap.ParentDevice(appliance); ok {
		if value, ok := Temperature(device); ok {
			room = &value
		}
	}
	c.mu.Lock()
	c.currentTemp = room
	c.mu.Unlock()
}

func (c *Climate) applySettings(settings *AirconSettings) {
	if settings == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if settings.Button == buttonPowerOff {
		if c.mode != HVACOff && c.mode != "" {
			c.lastMode = c.mode
		}
		c.mode = HVACOff
		c.preset = PresetNone
	} else if settings.Mode != "" {
		// Unknown vendor strings keep the previous mode rather than
		// flipping the entity to OFF or crashing.
		if mode, ok := vendorToMode[settings.Mode]; ok {
			c.mode = mode
			c.lastMode = mode
		}
	}

	if value, err := strconv.ParseFloat(settings.Temp, 64); err == nil {
		c.targetTemp = &value
		if c.mode != HVACOff && c.mode != "" {
			c.lastTemps[c.mode] = value
		}
	} else {
		// A malformed setpoint is cleared, not displayed stale.
		c.targetTemp = nil
	}

	c.fanMode = settings.Vol
	c.swingMode = settings.Dir

	for preset, button := range presetButtons {
		if settings.Button == button {
			c.preset = preset
			break
		}
	}
}

// Mode returns the current abstract mode.
func (c *Climate) Mode() HVACMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// TargetTemperature returns the setpoint; ok is false when unknown.
func (c *Climate) TargetTemperature() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.targetTemp == nil {
		return 0, false
	}
	return *c.targetTemp, true
}

// CurrentTemperature returns the room temperature from the parent device.
func (c *Climate) CurrentTemperature() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentTemp == nil {
		return 0, false
	}
	return *c.currentTemp, true
}

// FanMode returns the vendor fan volume string verbatim.
func (c *Climate) FanMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fanMode
}

// SwingMode returns the vendor swing direction string verbatim.
func (c *Climate) SwingMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swingMode
}

// CurrentPreset returns the active preset.
func (c *Climate) CurrentPreset() Preset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preset
}

// Presets lists the supported presets.
func (c *Climate) Presets() []Preset {
	return []Preset{PresetNone, PresetEco, PresetComfort, PresetBoost}
}

// HVACModes lists OFF plus every advertised vendor mode with a mapping.
func (c *Climate) HVACModes() []HVACMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	modes := []HVACMode{HVACOff}
	vendors := make([]string, 0, len(c.modes))
	for vendor := range c.modes {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)
	for _, vendor := range vendors {
		if mode, ok := vendorToMode[vendor]; ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

// FanModes lists the fan volumes for the current mode; nil when off.
func (c *Climate) FanModes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	vendor, ok := modeToVendor[c.mode]
	if !ok {
		return nil
	}
	return c.modes[vendor].Vol
}

// SwingModes lists the swing directions for the current mode; nil when off.
func (c *Climate) SwingModes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	vendor, ok := modeToVendor[c.mode]
	if !ok {
		return nil
	}
	return c.modes[vendor].Dir
}

// MinTemp returns the lower setpoint bound for the current mode.
func (c *Climate) MinTemp() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minTempLocked()
}

// MaxTemp returns the upper setpoint bound for the current mode.
func (c *Climate) MaxTemp() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxTempLocked()
}

// TemperatureStep derives the setpoint granularity from the first two
// advertised values. Only 0.5 and 1.0 are accepted; anything else means the
// advertisement is untrustworthy and the step defaults to 1.0.
func (c *Climate) TemperatureStep() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepLocked()
}

func (c *Climate) minTempLocked() float64 {
	values := c.tempRangeLocked()
	if len(values) == 0 {
		return DefaultMinTemp
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func (c *Climate) maxTempLocked() float64 {
	values := c.tempRangeLocked()
	if len(values) == 0 {
		return DefaultMaxTemp
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func (c *Climate) stepLocked() float64 {
	values := c.tempRangeLocked()
	if len(values) >= 2 {
		step := math.Round(math.Abs(values[1]-values[0])*10) / 10
		if step == 0.5 || step == 1.0 {
			return step
		}
	}
	return 1.0
}

func (c *Climate) tempRangeLocked() []float64 {
	vendor, ok := modeToVendor[c.mode]
	if !ok {
		return nil
	}
	raw := c.modes[vendor].Temp
	values := make([]float64, 0, len(raw))
	for _, s := range raw {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

// SetTemperature clamps the target into the advertised range, rounds it to
// the mode's step, and sends it. The per-mode memory records the value only
// after the API confirms the command.
func (c *Climate) SetTemperature(ctx context.Context, target float64) error {
	c.mu.Lock()
	target = math.Min(math.Max(target, c.minTempLocked()), c.maxTempLocked())
	if c.stepLocked() == 1.0 {
		target = math.Round(target)
	}
	mode := c.mode
	c.mu.Unlock()

	if _, err := c.sender.SendAirconSettings(ctx, c.applianceID, map[string]string{
		"temperature": formatTemp(target),
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.targetTemp = &target
	if mode != HVACOff && mode != "" {
		c.lastTemps[mode] = target
	}
	c.mu.Unlock()
	return nil
}

// SetMode switches the operating mode. For non-OFF modes the payload carries
// a temperature chosen by priority: this mode's last commanded value, then
// the configured default for cool/heat, otherwise none (the vendor keeps its
// own last value).
func (c *Climate) SetMode(ctx context.Context, mode HVACMode) error {
	var params map[string]string
	var sentTemp *float64

	if mode == HVACOff {
		params = map[string]string{"button": buttonPowerOff}
	} else {
		vendor, ok := modeToVendor[mode]
		if !ok {
			return &ValidationError{Message: "unknown mode " + string(mode)}
		}
		params = map[string]string{"operation_mode": vendor}

		c.mu.Lock()
		if last, ok := c.lastTemps[mode]; ok {
			params["temperature"] = formatTemp(last)
			sentTemp = &last
		} else if def, ok := c.defaultTemps[mode]; ok {
			params["temperature"] = formatTemp(def)
			sentTemp = &def
		}
		c.mu.Unlock()
	}

	if _, err := c.sender.SendAirconSettings(ctx, c.applianceID, params); err != nil {
		return err
	}

	c.mu.Lock()
	if mode == HVACOff {
		if c.mode != HVACOff && c.mode != "" {
			c.lastMode = c.mode
		}
		c.preset = PresetNone
	} else {
		c.lastMode = mode
		if sentTemp != nil {
			c.targetTemp = sentTemp
			c.lastTemps[mode] = *sentTemp
		}
	}
	c.mode = mode
	c.mu.Unlock()
	return nil
}

// SetFanMode sends the fan volume verbatim; vendor vocabularies vary by
// device, so there is no enum check beyond non-empty.
func (c *Climate) SetFanMode(ctx context.Context, fan string) error {
	if fan == "" {
		return &ValidationError{Message: "fan mode is required"}
	}
	if _, err := c.sender.SendAirconSettings(ctx, c.applianceID, map[string]string{
		"air_volume": fan,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.fanMode = fan
	c.mu.Unlock()
	return nil
}

// SetSwingMode sends the swing direction verbatim.
func (c *Climate) SetSwingMode(ctx context.Context, swing string) error {
	if swing == "" {
		return &ValidationError{Message: "swing mode is required"}
	}
	if _, err := c.sender.SendAirconSettings(ctx, c.applianceID, map[string]string{
		"air_direction": swing,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.swingMode = swing
	c.mu.Unlock()
	return nil
}

// SetPreset validates the preset against the known table before anything
// goes over the wire.
func (c *Climate) SetPreset(ctx context.Context, preset Preset) error {
	button, ok := presetButtons[preset]
	if !ok {
		return &ValidationError{Message: "unknown preset " + string(preset)}
	}
	if _, err := c.sender.SendAirconSettings(ctx, c.applianceID, map[string]string{
		"button": button,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.preset = preset
	c.mu.Unlock()
	return nil
}

// TurnOn restores the last active mode, falling back to cool when none has
// been recorded yet.
func (c *Climate) TurnOn(ctx context.Context) error {
	c.mu.Lock()
	mode := c.lastMode
	c.mu.Unlock()

	if mode == "" || mode == HVACOff {
		mode = HVACCool
	}
	return c.SetMode(ctx, mode)
}

// TurnOff powers the appliance down, remembering the current mode for the
// next TurnOn.
func (c *Climate) TurnOff(ctx context.Context) error {
	return c.SetMode(ctx, HVACOff)
}

// formatTemp renders whole setpoints without a decimal point so repeated
// commands produce identical payloads.
func formatTemp(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
