// Package config provides configuration loading and management for kikusim.
// It handles loading configuration from YAML files, provides default values,
// and builds the domain objects the simulation core consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"kikusim/internal/nav"
	"kikusim/pkg/crystal"
	"kikusim/pkg/detector"
	"kikusim/pkg/rotation"
)

// ReflectorSpec describes one reflector entry in the configuration. A family
// entry is expanded to all cubic symmetry equivalents, a plain entry is used
// as given.
type ReflectorSpec struct {
	// HKL are the Miller indices of the plane
	HKL [3]float64 `yaml:"hkl"`

	// Family expands the indices to the full cubic {hkl} family
	Family bool `yaml:"family"`

	// Theta is the Bragg angle in radians, negative when unknown
	Theta float64 `yaml:"theta"`

	// StructureFactorReal and StructureFactorImag hold the kinematical
	// structure factor, both zero when unknown
	StructureFactorReal float64 `yaml:"structureFactorReal"`
	StructureFactorImag float64 `yaml:"structureFactorImag"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Phase parameters
	Phase struct {
		// Name identifies the crystal phase
		Name string `yaml:"name"`

		// PointGroup is the Hermann-Mauguin point group symbol
		PointGroup string `yaml:"pointGroup"`

		// A, B, C are the unit cell lengths in ångström
		A float64 `yaml:"a"`
		B float64 `yaml:"b"`
		C float64 `yaml:"c"`

		// Alpha, Beta, Gamma are the unit cell angles in degrees
		Alpha float64 `yaml:"alpha"`
		Beta  float64 `yaml:"beta"`
		Gamma float64 `yaml:"gamma"`
	} `yaml:"phase"`

	// Reflectors lists the candidate diffracting planes
	Reflectors []ReflectorSpec `yaml:"reflectors"`

	// Detector parameters
	Detector struct {
		// Rows and Cols are the pixel shape of the detector
		Rows int `yaml:"rows"`
		Cols int `yaml:"cols"`

		// PxSize is the physical pixel size in µm
		PxSize float64 `yaml:"pxSize"`

		// Binning is the camera binning factor
		Binning float64 `yaml:"binning"`

		// Tilt is the detector tilt from vertical in degrees
		Tilt float64 `yaml:"tilt"`

		// Azimuthal is the azimuthal detector angle in degrees
		Azimuthal float64 `yaml:"azimuthal"`

		// SampleTilt is the sample tilt from horizontal in degrees
		SampleTilt float64 `yaml:"sampleTilt"`

		// PCShape is the navigation shape of the projection centers
		PCShape []int `yaml:"pcShape"`

		// PC lists one (PCx, PCy, PCz) triplet per navigation position in
		// the Bruker convention
		PC [][3]float64 `yaml:"pc"`
	} `yaml:"detector"`

	// Orientations parameters
	Orientations struct {
		// Shape is the navigation shape of the orientation map
		Shape []int `yaml:"shape"`

		// Euler lists Bunge ZXZ Euler angle triplets in degrees, row-major
		Euler [][3]float64 `yaml:"euler"`
	} `yaml:"orientations"`

	// Master pattern parameters
	Master struct {
		// HalfSize is the half side length of the pattern in pixels
		HalfSize int `yaml:"halfSize"`

		// Hemisphere selects "upper", "lower" or "both"
		Hemisphere string `yaml:"hemisphere"`

		// Scaling selects the band intensity scaling: "linear", "square"
		// or "none"
		Scaling string `yaml:"scaling"`
	} `yaml:"master"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel
		// processing
		NumCores int `yaml:"numCores"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the directory rendered images are written to
		Dir string `yaml:"dir"`

		// Coordinates selects "pixel" or "gnomonic" overlay coordinates
		Coordinates string `yaml:"coordinates"`

		// ZoneAxes, ZoneAxesLabels and PC toggle the optional overlay
		// features next to the Kikuchi lines
		ZoneAxes       bool `yaml:"zoneAxes"`
		ZoneAxesLabels bool `yaml:"zoneAxesLabels"`
		PC             bool `yaml:"pc"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values: the aluminum
// reference simulation on a 60x60 detector
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default phase parameters
	cfg.Phase.Name = "al"
	cfg.Phase.PointGroup = "m-3m"
	cfg.Phase.A = 4.05
	cfg.Phase.B = 4.05
	cfg.Phase.C = 4.05
	cfg.Phase.Alpha = 90
	cfg.Phase.Beta = 90
	cfg.Phase.Gamma = 90

	// Set default reflector families with Bragg angles for 20 kV electrons
	cfg.Reflectors = []ReflectorSpec{
		{HKL: [3]float64{1, 1, 1}, Family: true, Theta: 0.01836},
		{HKL: [3]float64{2, 0, 0}, Family: true, Theta: 0.02121},
		{HKL: [3]float64{2, 2, 0}, Family: true, Theta: 0.02999},
		{HKL: [3]float64{3, 1, 1}, Family: true, Theta: 0.03517},
	}

	// Set default detector parameters
	cfg.Detector.Rows = 60
	cfg.Detector.Cols = 60
	cfg.Detector.PxSize = 1
	cfg.Detector.Binning = 1
	cfg.Detector.SampleTilt = 70
	cfg.Detector.PCShape = []int{1}
	cfg.Detector.PC = [][3]float64{{0.5, 0.5, 0.5}}

	// Set default orientation parameters
	cfg.Orientations.Shape = []int{1}
	cfg.Orientations.Euler = [][3]float64{{0, 0, 0}}

	// Set default master pattern parameters
	cfg.Master.HalfSize = 200
	cfg.Master.Hemisphere = "upper"
	cfg.Master.Scaling = "none"

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Verbose = true

	// Set default output parameters
	cfg.Output.Dir = "kikusim_output"
	cfg.Output.Coordinates = "pixel"
	cfg.Output.ZoneAxes = true
	cfg.Output.ZoneAxesLabels = true
	cfg.Output.PC = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// BuildPhase constructs the crystal phase described by the configuration
func (c *Config) BuildPhase() (*crystal.Phase, error) {
	lattice, err := crystal.NewLattice(c.Phase.A, c.Phase.B, c.Phase.C,
		c.Phase.Alpha, c.Phase.Beta, c.Phase.Gamma)
	if err != nil {
		return nil, fmt.Errorf("error building lattice: %w", err)
	}
	return &crystal.Phase{
		Name:       c.Phase.Name,
		PointGroup: c.Phase.PointGroup,
		Lattice:    lattice,
	}, nil
}

// BuildReflectors constructs the reflector set described by the
// configuration, expanding family entries to their cubic equivalents.
// Family members inherit the Bragg angle and structure factor of their
// entry. Bragg angles and structure factors are only assigned when every
// entry carries them.
func (c *Config) BuildReflectors() (*crystal.ReflectorSet, error) {
	phase, err := c.BuildPhase()
	if err != nil {
		return nil, err
	}

	var hkl [][3]float64
	var theta []float64
	var factors []complex128
	hasTheta := len(c.Reflectors) > 0
	hasFactors := len(c.Reflectors) > 0
	for _, spec := range c.Reflectors {
		members := [][3]float64{spec.HKL}
		if spec.Family {
			members = crystal.CubicFamily(int(spec.HKL[0]), int(spec.HKL[1]), int(spec.HKL[2]))
		}
		for _, m := range members {
			hkl = append(hkl, m)
			theta = append(theta, spec.Theta)
			factors = append(factors, complex(spec.StructureFactorReal, spec.StructureFactorImag))
		}
		if spec.Theta < 0 {
			hasTheta = false
		}
		if spec.StructureFactorReal == 0 && spec.StructureFactorImag == 0 {
			hasFactors = false
		}
	}

	set, err := crystal.NewReflectorSet(phase, hkl...)
	if err != nil {
		return nil, fmt.Errorf("error building reflector set: %w", err)
	}
	if hasTheta {
		if err := set.SetThetas(theta); err != nil {
			return nil, err
		}
	}
	if hasFactors {
		if err := set.SetStructureFactors(factors); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// BuildDetector constructs the detector described by the configuration
func (c *Config) BuildDetector() (*detector.Detector, error) {
	det, err := detector.New(c.Detector.Rows, c.Detector.Cols)
	if err != nil {
		return nil, fmt.Errorf("error building detector: %w", err)
	}
	det.PxSize = c.Detector.PxSize
	det.Binning = c.Detector.Binning
	det.Tilt = c.Detector.Tilt
	det.Azimuthal = c.Detector.Azimuthal
	det.SampleTilt = c.Detector.SampleTilt

	if len(c.Detector.PC) > 0 {
		shape, err := nav.NewShape(c.Detector.PCShape...)
		if err != nil {
			return nil, fmt.Errorf("error building projection center shape: %w", err)
		}
		if err := det.SetPC(shape, c.Detector.PC...); err != nil {
			return nil, fmt.Errorf("error setting projection centers: %w", err)
		}
	}
	return det, nil
}

// BuildRotations constructs the orientation batch described by the
// configuration
func (c *Config) BuildRotations() (*rotation.Batch, error) {
	shape, err := nav.NewShape(c.Orientations.Shape...)
	if err != nil {
		return nil, fmt.Errorf("error building orientation shape: %w", err)
	}
	rotations := make([]rotation.Rotation, len(c.Orientations.Euler))
	for i, e := range c.Orientations.Euler {
		rotations[i] = rotation.FromEulerDeg(e[0], e[1], e[2])
	}
	batch, err := rotation.NewBatch(shape, rotations...)
	if err != nil {
		return nil, fmt.Errorf("error building orientation batch: %w", err)
	}
	return batch, nil
}
