package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	TerrainContinuous = "continuous"
	TerrainBlocky     = "blocky"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	Sim      Sim      `yaml:"sim" json:"sim"`
	Terrain  Terrain  `yaml:"terrain" json:"terrain"`
	Chunks   Chunks   `yaml:"chunks" json:"chunks"`
	Walker   Walker   `yaml:"walker" json:"walker"`
	Vehicle  Vehicle  `yaml:"vehicle" json:"vehicle"`
	Interact Interact `yaml:"interact" json:"interact"`
	Look     Look     `yaml:"look" json:"look"`
	Notices  Notices  `yaml:"notices" json:"notices"`
}

type Sim struct {
	TickRateHz  int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	StepSeconds float64 `yaml:"step_seconds" json:"step_seconds"`
	// Spawn is the initial camera position (x, y, z).
	Spawn [3]float64 `yaml:"spawn" json:"spawn"`
	// IndexEveryTicks controls how often tick summaries reach the SQLite index.
	IndexEveryTicks int `yaml:"index_every_ticks" json:"index_every_ticks"`
}

type Terrain struct {
	Mode        string  `yaml:"mode" json:"mode"`
	Scale1      float64 `yaml:"scale1" json:"scale1"`
	Scale2      float64 `yaml:"scale2" json:"scale2"`
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
	BlockyScale float64 `yaml:"blocky_scale" json:"blocky_scale"`
	BlockyBase  float64 `yaml:"blocky_base" json:"blocky_base"`
	// Perlin parameters.
	Alpha   float64 `yaml:"alpha" json:"alpha"`
	Beta    float64 `yaml:"beta" json:"beta"`
	Octaves int     `yaml:"octaves" json:"octaves"`

	WaterLine    int `yaml:"water_line" json:"water_line"`
	DirtDepth    int `yaml:"dirt_depth" json:"dirt_depth"`
	TreePermille int `yaml:"tree_permille" json:"tree_permille"`
}

type Chunks struct {
	Size               int `yaml:"size" json:"size"`
	RenderDistance     int `yaml:"render_distance" json:"render_distance"`
	EvictMargin        int `yaml:"evict_margin" json:"evict_margin"`
	MaxGeneratePerTick int `yaml:"max_generate_per_tick" json:"max_generate_per_tick"`
}

type Walker struct {
	Gravity     float64 `yaml:"gravity" json:"gravity"`
	MoveSpeed   float64 `yaml:"move_speed" json:"move_speed"`
	JumpImpulse float64 `yaml:"jump_impulse" json:"jump_impulse"`
	EyeHeight   float64 `yaml:"eye_height" json:"eye_height"`
}

type Vehicle struct {
	Spawn           [2]float64 `yaml:"spawn" json:"spawn"`
	MaxSpeed        float64    `yaml:"max_speed" json:"max_speed"`
	Acceleration    float64    `yaml:"acceleration" json:"acceleration"`
	Deceleration    float64    `yaml:"deceleration" json:"deceleration"`
	RotationSpeed   float64    `yaml:"rotation_speed" json:"rotation_speed"`
	LiftFactor      float64    `yaml:"lift_factor" json:"lift_factor"`
	Gravity         float64    `yaml:"gravity" json:"gravity"`
	PitchBias       float64    `yaml:"pitch_bias" json:"pitch_bias"`
	PitchLimit      float64    `yaml:"pitch_limit" json:"pitch_limit"`
	LevelDamping    float64    `yaml:"level_damping" json:"level_damping"`
	PropellerSpin   float64    `yaml:"propeller_spin" json:"propeller_spin"`
	GroundClearance float64    `yaml:"ground_clearance" json:"ground_clearance"`
	CockpitHeight   float64    `yaml:"cockpit_height" json:"cockpit_height"`
	ExitOffset      [3]float64 `yaml:"exit_offset" json:"exit_offset"`
}

type Interact struct {
	Radius float64 `yaml:"radius" json:"radius"`
}

type Look struct {
	Sensitivity float64 `yaml:"sensitivity" json:"sensitivity"`
	PitchLimit  float64 `yaml:"pitch_limit" json:"pitch_limit"`
}

type Notices struct {
	TTLMs int `yaml:"ttl_ms" json:"ttl_ms"`
}

// Defaults matches the browser client tuning.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Sim: Sim{
			TickRateHz:      20,
			StepSeconds:     0.1,
			Spawn:           [3]float64{0, 15, 0},
			IndexEveryTicks: 20,
		},
		Terrain: Terrain{
			Mode:         TerrainContinuous,
			Scale1:       0.01,
			Scale2:       0.05,
			Amplitude:    5,
			BlockyScale:  12,
			BlockyBase:   5,
			Alpha:        2,
			Beta:         2,
			Octaves:      1,
			WaterLine:    3,
			DirtDepth:    3,
			TreePermille: 20,
		},
		Chunks: Chunks{
			Size:               16,
			RenderDistance:     2,
			EvictMargin:        1,
			MaxGeneratePerTick: 4,
		},
		Walker: Walker{
			Gravity:     9.8,
			MoveSpeed:   10,
			JumpImpulse: 10,
			EyeHeight:   1.8,
		},
		Vehicle: Vehicle{
			Spawn:           [2]float64{15, 20},
			MaxSpeed:        2,
			Acceleration:    0.05,
			Deceleration:    0.02,
			RotationSpeed:   0.02,
			LiftFactor:      0.05,
			Gravity:         0.1,
			PitchBias:       0.01,
			PitchLimit:      math.Pi / 6,
			LevelDamping:    0.95,
			PropellerSpin:   0.5,
			GroundClearance: 1.5,
			CockpitHeight:   2,
			ExitOffset:      [3]float64{3, 0, 0},
		},
		Interact: Interact{Radius: 8},
		Look: Look{
			Sensitivity: 0.002,
			PitchLimit:  math.Pi / 2,
		},
		Notices: Notices{TTLMs: 3000},
	}
}

// Load overlays the YAML file at path on Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.Sim.TickRateHz <= 0 {
		errs = append(errs, errors.New("sim.tick_rate_hz must be > 0"))
	}
	if t.Sim.StepSeconds <= 0 {
		errs = append(errs, errors.New("sim.step_seconds must be > 0"))
	}
	switch t.Terrain.Mode {
	case TerrainContinuous, TerrainBlocky:
	default:
		errs = append(errs, fmt.Errorf("terrain.mode %q: want %q or %q", t.Terrain.Mode, TerrainContinuous, TerrainBlocky))
	}
	if t.Terrain.Octaves <= 0 {
		errs = append(errs, errors.New("terrain.octaves must be > 0"))
	}
	if t.Terrain.TreePermille < 0 || t.Terrain.TreePermille > 1000 {
		errs = append(errs, errors.New("terrain.tree_permille must be within [0,1000]"))
	}
	if t.Chunks.Size <= 0 {
		errs = append(errs, errors.New("chunks.size must be > 0"))
	}
	if t.Chunks.RenderDistance < 0 || t.Chunks.EvictMargin < 0 || t.Chunks.MaxGeneratePerTick < 0 {
		errs = append(errs, errors.New("chunks: render_distance, evict_margin and max_generate_per_tick must be >= 0"))
	}
	if t.Walker.MoveSpeed < 0 || t.Walker.EyeHeight < 0 || t.Walker.Gravity < 0 {
		errs = append(errs, errors.New("walker: move_speed, eye_height and gravity must be >= 0"))
	}
	if t.Vehicle.MaxSpeed <= 0 {
		errs = append(errs, errors.New("vehicle.max_speed must be > 0"))
	}
	if t.Vehicle.Acceleration <= 0 {
		errs = append(errs, errors.New("vehicle.acceleration must be > 0"))
	}
	// Zero deceleration would leave the plane coasting forever.
	if t.Vehicle.Deceleration <= 0 {
		errs = append(errs, errors.New("vehicle.deceleration must be > 0"))
	}
	if t.Vehicle.Gravity < 0 || t.Vehicle.LiftFactor < 0 || t.Vehicle.GroundClearance < 0 {
		errs = append(errs, errors.New("vehicle: gravity, lift_factor and ground_clearance must be >= 0"))
	}
	if t.Vehicle.PitchLimit <= 0 || t.Vehicle.PitchLimit >= math.Pi/2 {
		errs = append(errs, errors.New("vehicle.pitch_limit must be within (0, pi/2)"))
	}
	if t.Vehicle.LevelDamping < 0 || t.Vehicle.LevelDamping > 1 {
		errs = append(errs, errors.New("vehicle.level_damping must be within [0,1]"))
	}
	if t.Interact.Radius <= 0 {
		errs = append(errs, errors.New("interact.radius must be > 0"))
	}
	if t.Look.PitchLimit <= 0 {
		errs = append(errs, errors.New("look.pitch_limit must be > 0"))
	}
	return errors.Join(errs...)
}

// Digest is a sha256 of the canonical YAML encoding.
func (t Tuning) Digest() string {
	b, err := yaml.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
