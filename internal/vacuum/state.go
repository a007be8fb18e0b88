package vacuum

import "github.com/denwilliams/go-myvacbot-mqtt/internal/myvacbot"

// Hub-side vacuum states.
const (
	StateCleaning  = "cleaning"
	StateDocked    = "docked"
	StateIdle      = "idle"
	StateReturning = "returning"
	StateError     = "error"
)

type State struct {
	ID                string                 `json:"id"`
	Host              string                 `json:"host"`
	Name              string                 `json:"name"`
	UniqueID          string                 `json:"unique_id,omitempty"`
	CamlasUniqueID    string                 `json:"camlas_unique_id,omitempty"`
	Model             string                 `json:"model,omitempty"`
	Firmware          string                 `json:"firmware,omitempty"`
	Mode              string                 `json:"mode"`
	Charging          string                 `json:"charging"`
	BatteryLevel      int                    `json:"battery_level"`
	Available         bool                   `json:"available"`
	IsOn              bool                   `json:"is_on"`
	SupportedFeatures Feature                `json:"supported_features"`
	Attributes        map[string]interface{} `json:"attributes"`
}

// Docked reports whether the robot sits on a powered dock.
func (s State) Docked() bool {
	switch s.Charging {
	case "", "unconnected", "disconnected":
		return false
	}
	return true
}

// HubState maps the robot mode onto the hub's vacuum states.
func (s State) HubState() string {
	switch s.Mode {
	case myvacbot.ModeCleaning:
		return StateCleaning
	case myvacbot.ModeGoHome:
		return StateReturning
	case myvacbot.ModeNotReady:
		return StateError
	}
	if s.Docked() {
		return StateDocked
	}
	return StateIdle
}

// StatePayload is the combined state document published to the hub.
type StatePayload struct {
	State        string `json:"state"`
	BatteryLevel int    `json:"battery_level"`
	Mode         string `json:"mode"`
}

func (s State) Payload() StatePayload {
	return StatePayload{State: s.HubState(), BatteryLevel: s.BatteryLevel, Mode: s.Mode}
}
