package remo

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig controls the optional state publisher. Publishing is disabled
// when Broker is empty.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// Publisher mirrors every successful snapshot onto MQTT as retained JSON
// state topics, one per device, meter, and AC appliance.
type Publisher struct {
	client mqtt.Client
	prefix string
}

type deviceState struct {
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Illuminance  *float64 `json:"illuminance,omitempty"`
	WiFiStrength *float64 `json:"wifi_strength,omitempty"`
	Available    bool     `json:"available"`
}

type meterState struct {
	Nickname string   `json:"nickname"`
	PowerW   *float64 `json:"power_w,omitempty"`
	EnergyKW *float64 `json:"energy_kwh,omitempty"`
}

type acState struct {
	Nickname    string   `json:"nickname"`
	Mode        string   `json:"mode"`
	TargetTemp  *float64 `json:"target_temperature,omitempty"`
	CurrentTemp *float64 `json:"current_temperature,omitempty"`
	FanMode     string   `json:"fan_mode,omitempty"`
	SwingMode   string   `json:"swing_mode,omitempty"`
	Preset      string   `json:"preset"`
}

func NewPublisher(cfg MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "nature_remo"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = randomClientID()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(prefix+"/bridge/availability", "offline", 0, true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	p := &Publisher{client: client, prefix: prefix}
	if err := p.publish(prefix+"/bridge/availability", "online"); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	return p, nil
}

// PublishSnapshot pushes the state of everything in the snapshot. Errors on
// individual topics are collected so one bad publish does not hide the rest.
func (p *Publisher) PublishSnapshot(snap *Snapshot, climates []*Climate) error {
	if snap == nil {
		return nil
	}
	now := time.Now()
	var errs []error

	for _, device := range snap.Devices {
		state := deviceState{
			Name:         device.Name,
			Model:        ModelName(device),
			WiFiStrength: device.WiFiStrength,
			Available:    DeviceAvailable(device, now, DefaultStaleness),
		}
		if value, ok := Temperature(device); ok {
			state.Temperature = &value
		}
		if value, ok := Humidity(device); ok {
			state.Humidity = &value
		}
		if value, ok := Illuminance(device); ok {
			state.Illuminance = &value
		}
		topic := fmt.Sprintf("%s/device/%s/state", p.prefix, device.ID)
		if err := p.publishJSON(topic, state); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", device.ID, err))
		}
	}

	for _, appliance := range snap.Appliances {
		if appliance.Type != TypeSmartMeter {
			continue
		}
		state := meterState{Nickname: appliance.Nickname}
		if value, ok := InstantPower(appliance); ok {
			state.PowerW = &value
		}
		if value, ok := CumulativeEnergy(appliance); ok {
			state.EnergyKW = &value
		}
		topic := fmt.Sprintf("%s/meter/%s/state", p.prefix, appliance.ID)
		if err := p.publishJSON(topic, state); err != nil {
			errs = append(errs, fmt.Errorf("meter %s: %w", appliance.ID, err))
		}
	}

	for _, climate := range climates {
		state := acState{
			Nickname:  climate.Nickname(),
			Mode:      string(climate.Mode()),
			FanMode:   climate.FanMode(),
			SwingMode: climate.SwingMode(),
			Preset:    string(climate.CurrentPreset()),
		}
		if value, ok := climate.TargetTemperature(); ok {
			state.TargetTemp = &value
		}
		if value, ok := climate.CurrentTemperature(); ok {
			state.CurrentTemp = &value
		}
		topic := fmt.Sprintf("%s/ac/%s/state", p.prefix, climate.ApplianceID())
		if err := p.publishJSON(topic, state); err != nil {
			errs = append(errs, fmt.Errorf("ac %s: %w", climate.ApplianceID(), err))
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) publishJSON(topic string, state any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.publish(topic, string(payload))
}

func (p *Publisher) publish(topic, payload string) error {
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close announces the bridge offline and disconnects.
func (p *Publisher) Close() {
	_ = p.publish(p.prefix+"/bridge/availability", "offline")
	p.client.Disconnect(250)
}

func randomClientID() string {
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return "hass-nature-remo-" + base64.RawURLEncoding.EncodeToString(nonce)
}
