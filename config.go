package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"git.fiblab.net/sim/crowding/v2/crowding"
)

// CrowdingConfig names which crowding cost form to build and its
// parameters; unused fields for the chosen Kind are ignored.
type CrowdingConfig struct {
	Kind string  `yaml:"kind" validate:"required,oneof=linear quadratic one_step two_step"`
	A0   float64 `yaml:"a0"`
	A1   float64 `yaml:"a1"`
	A    float64 `yaml:"a"`
	B    float64 `yaml:"b"`
	C    float64 `yaml:"c"`
}

func (c CrowdingConfig) Build() crowding.Function {
	switch c.Kind {
	case "quadratic":
		return crowding.Function{Kind: crowding.Quadratic}
	case "one_step":
		return crowding.NewOneStep(c.A0, c.A, c.B)
	case "two_step":
		return crowding.NewTwoStep(c.A0, c.A1, c.A, c.B, c.C)
	default:
		return crowding.Function{Kind: crowding.Linear}
	}
}

// Config is the top-level run configuration, loaded from a YAML file
// by LoadConfig. No field is read from environment variables (a .env
// file loaded by main does not change it) or from flags. Field names
// mirror spec §6.
type Config struct {
	NetworkPath string `yaml:"network_path" validate:"required"`
	ModelDate   string `yaml:"model_date" validate:"required,len=8,numeric"`

	MaxWalkTransferMeters       float64 `yaml:"max_walk_transfer_meters" validate:"gte=0"`
	WalkingSpeedMetersPerSecond float64 `yaml:"walking_speed_meters_per_second" validate:"gte=0"`
	DefaultSeatedCapacity       int     `yaml:"default_seated_capacity" validate:"gte=0"`
	DefaultStandingCapacity     int     `yaml:"default_standing_capacity" validate:"gte=0"`

	DemandPath           string `yaml:"demand_path"`
	UseRandomDemand      bool   `yaml:"use_random_demand"`
	RandomDemandCount    int    `yaml:"random_demand_count" validate:"gte=0"`
	RandomSeed           int64  `yaml:"random_seed"`
	WindowStartSeconds   int    `yaml:"window_start_seconds" validate:"gte=0"`
	WindowEndSeconds     int    `yaml:"window_end_seconds" validate:"gtefield=WindowStartSeconds"`

	CapacityOverridesPath string `yaml:"capacity_overrides_path"`

	OuterRounds int            `yaml:"outer_rounds" validate:"required,min=1,max=10"`
	BagSize     int            `yaml:"bag_size" validate:"required,min=2,max=5"`
	MaxRounds   int            `yaml:"max_rounds" validate:"required,min=1,max=20"`
	CostUtility float64        `yaml:"cost_utility" validate:"gte=0"`
	Crowding    CrowdingConfig `yaml:"crowding"`
	StepSeconds int            `yaml:"step_seconds" validate:"required,min=1"`
	Threads     int            `yaml:"threads" validate:"gte=0"`

	OutputPath string `yaml:"output_path"`

	// CrowdingSamplePath, if set, writes the configured crowding
	// function's load -> per-minute cost table (spec §6's "crowding
	// function sample" output, used to visually verify the function)
	// for (default_seated_capacity, default_standing_capacity) to this
	// path before the simulation runs; the simulation still runs
	// afterwards.
	CrowdingSamplePath    string `yaml:"crowding_sample_path"`
	CrowdingSampleMaxLoad int    `yaml:"crowding_sample_max_load" validate:"gte=0"`
}

// LoadConfig reads and validates a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
