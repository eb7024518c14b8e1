// Package reliability implements mission profiles, component FIT aggregation
// with qualification multipliers, and the FIT to failure-probability
// conversion used by fault-tree basic events.
package reliability

// MissionProfile describes the operating time and environment a reliability
// analysis converts failure rates against. Durations are hours.
type MissionProfile struct {
	Name           string  `yaml:"name"`
	TauOn          float64 `yaml:"tau_on"`
	TauOff         float64 `yaml:"tau_off"`
	BoardTemp      float64 `yaml:"board_temp"`
	BoardTempMin   float64 `yaml:"board_temp_min"`
	BoardTempMax   float64 `yaml:"board_temp_max"`
	AmbientTemp    float64 `yaml:"ambient_temp"`
	AmbientTempMin float64 `yaml:"ambient_temp_min"`
	AmbientTempMax float64 `yaml:"ambient_temp_max"`
	Humidity       float64 `yaml:"humidity"`
	DutyCycle      float64 `yaml:"duty_cycle"`
	Notes          string  `yaml:"notes,omitempty"`
}

// NewMissionProfile returns a profile with the conventional defaults:
// 25 degC board and ambient, 50% humidity, full duty cycle.
func NewMissionProfile(name string) *MissionProfile {
	return &MissionProfile{
		Name:           name,
		BoardTemp:      25.0,
		BoardTempMin:   25.0,
		BoardTempMax:   25.0,
		AmbientTemp:    25.0,
		AmbientTempMin: 25.0,
		AmbientTempMax: 25.0,
		Humidity:       50.0,
		DutyCycle:      1.0,
	}
}

// Tau returns the total mission exposure time in hours: the sum of the
// configured on and off intervals.
func (mp *MissionProfile) Tau() float64 {
	return mp.TauOn + mp.TauOff
}
