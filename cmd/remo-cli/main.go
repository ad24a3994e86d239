package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glockpete/hass-nature-remo/internal/remo"
)

func main() {
	token := flag.String("token", os.Getenv("NATURE_REMO_TOKEN"), "access token (defaults to NATURE_REMO_TOKEN)")
	baseURL := flag.String("base-url", "", "API base URL override")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	if *token == "" {
		fatal("token", fmt.Errorf("missing access token"))
	}

	service, err := remo.NewService(remo.Config{
		AccessToken: *token,
		BaseURL:     *baseURL,
	})
	if err != nil {
		fatal("init", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := service.RefreshNow(ctx)
	if err != nil {
		fatal("fetch", err)
	}

	switch args[0] {
	case "devices":
		devicesCmd(snap)
	case "appliances":
		appliancesCmd(snap)
	case "ac":
		acCmd(ctx, service, args[1:])
	default:
		usage()
		os.Exit(2)
	}
}

func devicesCmd(snap *remo.Snapshot) {
	ids := make([]string, 0, len(snap.Devices))
	for id := range snap.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		device := snap.Devices[id]
		parts := []string{remo.ModelName(device)}
		if value, ok := remo.Temperature(device); ok {
			parts = append(parts, fmt.Sprintf("%.1f°C", value))
		}
		if value, ok := remo.Humidity(device); ok {
			parts = append(parts, fmt.Sprintf("%.0f%%", value))
		}
		if value, ok := remo.Illuminance(device); ok {
			parts = append(parts, fmt.Sprintf("%.0flx", value))
		}
		fmt.Printf("%s\t%s\t%s\n", device.ID, device.Name, strings.Join(parts, " "))
	}
}

func appliancesCmd(snap *remo.Snapshot) {
	ids := make([]string, 0, len(snap.Appliances))
	for id := range snap.Appliances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		appliance := snap.Appliances[id]
		extra := ""
		switch appliance.Type {
		case remo.TypeSmartMeter:
			if value, ok := remo.InstantPower(appliance); ok {
				extra = fmt.Sprintf("%.0fW", value)
			}
		case remo.TypeAC:
			if appliance.Settings != nil {
				extra = appliance.Settings.Mode + " " + appliance.Settings.Temp
			}
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", appliance.ID, appliance.Type, appliance.Nickname, extra)
	}
}

func acCmd(ctx context.Context, service *remo.Service, args []string) {
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	id := args[0]

	switch args[1] {
	case "status":
		climate, err := service.Climate(id)
		if err != nil {
			fatal("ac", err)
		}
		printClimate(climate)
	case "temp":
		if len(args) < 3 {
			fatal("ac temp", fmt.Errorf("missing temperature"))
		}
		target, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fatal("ac temp", err)
		}
		if err := service.SetTemperature(ctx, id, target); err != nil {
			fatal("ac temp", err)
		}
	case "mode":
		if len(args) < 3 {
			fatal("ac mode", fmt.Errorf("missing mode"))
		}
		if err := service.SetMode(ctx, id, remo.HVACMode(args[2])); err != nil {
			fatal("ac mode", err)
		}
	case "fan":
		if len(args) < 3 {
			fatal("ac fan", fmt.Errorf("missing fan mode"))
		}
		if err := service.SetFanMode(ctx, id, args[2]); err != nil {
			fatal("ac fan", err)
		}
	case "swing":
		if len(args) < 3 {
			fatal("ac swing", fmt.Errorf("missing swing mode"))
		}
		if err := service.SetSwingMode(ctx, id, args[2]); err != nil {
			fatal("ac swing", err)
		}
	case "preset":
		if len(args) < 3 {
			fatal("ac preset", fmt.Errorf("missing preset"))
		}
		if err := service.SetPreset(ctx, id, remo.Preset(args[2])); err != nil {
			fatal("ac preset", err)
		}
	case "on":
		if err := service.TurnOn(ctx, id); err != nil {
			fatal("ac on", err)
		}
	case "off":
		if err := service.TurnOff(ctx, id); err != nil {
			fatal("ac off", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func printClimate(climate *remo.Climate) {
	fmt.Printf("id: %s\n", climate.ApplianceID())
	fmt.Printf("name: %s\n", climate.Nickname())
	fmt.Printf("mode: %s\n", climate.Mode())
	if value, ok := climate.TargetTemperature(); ok {
		fmt.Printf("target: %.1f\n", value)
	}
	if value, ok := climate.CurrentTemperature(); ok {
		fmt.Printf("current: %.1f\n", value)
	}
	fmt.Printf("range: %.1f-%.1f step %.1f\n", climate.MinTemp(), climate.MaxTemp(), climate.TemperatureStep())
	if fan := climate.FanMode(); fan != "" {
		fmt.Printf("fan: %s (%s)\n", fan, strings.Join(climate.FanModes(), ", "))
	}
	if swing := climate.SwingMode(); swing != "" {
		fmt.Printf("swing: %s (%s)\n", swing, strings.Join(climate.SwingModes(), ", "))
	}
	fmt.Printf("preset: %s\n", climate.CurrentPreset())

	modes := make([]string, 0, len(climate.HVACModes()))
	for _, mode := range climate.HVACModes() {
		modes = append(modes, string(mode))
	}
	fmt.Printf("modes: %s\n", strings.Join(modes, ", "))
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: remo-cli [-token TOKEN] [-base-url URL] COMMAND

commands:
  devices                      list hub devices and sensor readings
  appliances                   list appliances
  ac ID status                 show AC state
  ac ID temp VALUE             set target temperature
  ac ID mode MODE              set mode (off auto cool heat dry fan_only)
  ac ID fan VALUE              set fan volume
  ac ID swing VALUE            set swing direction
  ac ID preset PRESET          set preset (none eco comfort boost)
  ac ID on|off                 power on or off`)
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "remo-cli: %s: %v\n", what, err)
	os.Exit(1)
}
