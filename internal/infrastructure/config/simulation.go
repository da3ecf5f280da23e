package config

// SimulationConfig holds run-wide simulation settings
type SimulationConfig struct {
	// Duration is used for scenarios that do not set their own
	Duration int `mapstructure:"duration" validate:"min=1"`

	// StepRate paces runs in steps per second; 0 runs as fast as possible
	StepRate float64 `mapstructure:"step_rate" validate:"min=0"`

	// Snapshots persists every facility snapshot of every step
	Snapshots bool `mapstructure:"snapshots"`

	// Parallelism bounds how many scenarios run at once
	Parallelism int `mapstructure:"parallelism" validate:"min=1"`
}
