package core

// ControllerState is the per-tick output sent back to the host.
// The zero value is a neutral controller.
type ControllerState struct {
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
	Roll      float64 `json:"roll"`
	Jump      bool    `json:"jump"`
	Boost     bool    `json:"boost"`
	Handbrake bool    `json:"handbrake"`
	UseItem   bool    `json:"useItem"`
}

// IsNeutral reports whether no input is pressed.
func (c ControllerState) IsNeutral() bool {
	return c == ControllerState{}
}
