package remo

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Service is the entity-facing surface the host collaborator talks to. It
// owns the client, the coordinator, and one climate state machine per AC
// appliance; climate instances persist across refreshes so their per-mode
// memory survives.
type Service struct {
	cfg         Config
	client      *Client
	coordinator *Coordinator

	mu       sync.Mutex
	climates map[string]*Climate
}

func NewService(cfg Config) (*Service, error) {
	cfg.applyDefaults()

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:         cfg,
		client:      client,
		coordinator: NewCoordinator(client, cfg.PollInterval),
		climates:    make(map[string]*Climate),
	}
	s.coordinator.AddListener(s.syncClimates)
	return s, nil
}

// Client exposes the underlying API client.
func (s *Service) Client() *Client { return s.client }

// Coordinator exposes the poll coordinator for composition (Run, listeners).
func (s *Service) Coordinator() *Coordinator { return s.coordinator }

// Snapshot returns the last good snapshot; nil before the first success.
func (s *Service) Snapshot() *Snapshot {
	return s.coordinator.Snapshot()
}

// RefreshNow forces one poll cycle outside the schedule.
func (s *Service) RefreshNow(ctx context.Context) (*Snapshot, error) {
	return s.coordinator.Refresh(ctx)
}

// syncClimates reconciles every climate instance after a refresh and creates
// instances for AC appliances seen for the first time.
func (s *Service) syncClimates(snap *Snapshot) {
	s.mu.Lock()
	for id, appliance := range snap.Appliances {
		if appliance.Type != TypeAC {
			continue
		}
		if _, ok := s.climates[id]; !ok {
			s.climates[id] = NewClimate(s.client, appliance, s.cfg)
		}
	}
	climates := make([]*Climate, 0, len(s.climates))
	for _, climate := range s.climates {
		climates = append(climates, climate)
	}
	s.mu.Unlock()

	for _, climate := range climates {
		climate.ApplySnapshot(snap)
	}
}

// Climate returns the state machine for an AC appliance.
func (s *Service) Climate(applianceID string) (*Climate, error) {
	s.mu.Lock()
	climate, ok := s.climates[applianceID]
	s.mu.Unlock()
	if ok {
		return climate, nil
	}

	snap := s.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("no snapshot yet; refresh first")
	}
	appliance, ok := snap.Appliance(applianceID)
	if !ok {
		return nil, fmt.Errorf("appliance %q not found", applianceID)
	}
	if appliance.Type != TypeAC {
		return nil, &ValidationError{Message: fmt.Sprintf("appliance %q is %s, not AC", applianceID, appliance.Type)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.climates[applianceID]; ok {
		return existing, nil
	}
	climate = NewClimate(s.client, appliance, s.cfg)
	s.climates[applianceID] = climate
	return climate, nil
}

// Climates returns all known climate instances, ordered by appliance id.
func (s *Service) Climates() []*Climate {
	s.mu.Lock()
	defer s.mu.Unlock()

	climates := make([]*Climate, 0, len(s.climates))
	for _, climate := range s.climates {
		climates = append(climates, climate)
	}
	sort.Slice(climates, func(i, j int) bool {
		return climates[i].ApplianceID() < climates[j].ApplianceID()
	})
	return climates
}

// SetTemperature sets the target temperature on an AC appliance.
func (s *Service) SetTemperature(ctx context.Context, applianceID string, target float64) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.SetTemperature(ctx, target)
}

// SetMode sets the operating mode on an AC appliance.
func (s *Service) SetMode(ctx context.Context, applianceID string, mode HVACMode) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.SetMode(ctx, mode)
}

// SetFanMode sets the fan volume on an AC appliance.
func (s *Service) SetFanMode(ctx context.Context, applianceID, fan string) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.SetFanMode(ctx, fan)
}

// SetSwingMode sets the swing direction on an AC appliance.
func (s *Service) SetSwingMode(ctx context.Context, applianceID, swing string) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.SetSwingMode(ctx, swing)
}

// SetPreset sets the comfort preset on an AC appliance.
func (s *Service) SetPreset(ctx context.Context, applianceID string, preset Preset) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.SetPreset(ctx, preset)
}

// TurnOn powers an AC appliance on in its last active mode.
func (s *Service) TurnOn(ctx context.Context, applianceID string) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.TurnOn(ctx)
}

// TurnOff powers an AC appliance off.
func (s *Service) TurnOff(ctx context.Context, applianceID string) error {
	climate, err := s.Climate(applianceID)
	if err != nil {
		return err
	}
	return climate.TurnOff(ctx)
}
