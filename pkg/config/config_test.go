package config

import (
	"os"
	"path/filepath"
	"testing"

	"kikusim/internal/nav"
)

// TestDefaultConfig verifies the default aluminum reference configuration
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Phase.Name != "al" || cfg.Phase.PointGroup != "m-3m" {
		t.Errorf("Expected default aluminum phase, got %s (%s)", cfg.Phase.Name, cfg.Phase.PointGroup)
	}
	if cfg.Phase.A != 4.05 || cfg.Phase.Alpha != 90 {
		t.Errorf("Expected cubic 4.05 Å cell, got a=%g alpha=%g", cfg.Phase.A, cfg.Phase.Alpha)
	}
	if len(cfg.Reflectors) != 4 {
		t.Errorf("Expected 4 reflector families, got %d", len(cfg.Reflectors))
	}
	if cfg.Detector.Rows != 60 || cfg.Detector.Cols != 60 {
		t.Errorf("Expected 60x60 detector, got %dx%d", cfg.Detector.Rows, cfg.Detector.Cols)
	}
	if cfg.Detector.SampleTilt != 70 {
		t.Errorf("Expected 70 degree sample tilt, got %g", cfg.Detector.SampleTilt)
	}
	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Processing.NumCores)
	}
}

// TestLoadConfigNonexistent verifies defaults are returned when the file is
// missing
func TestLoadConfigNonexistent(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Phase.Name != "al" {
		t.Errorf("Expected default config, got phase %q", cfg.Phase.Name)
	}
}

// TestSaveAndLoadConfig verifies the YAML round trip
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Phase.Name = "ni"
	cfg.Phase.A = 3.52
	cfg.Detector.Rows = 120
	cfg.Orientations.Shape = []int{2, 2}
	cfg.Orientations.Euler = [][3]float64{{0, 0, 0}, {10, 20, 30}, {40, 50, 60}, {70, 80, 90}}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Phase.Name != "ni" || loaded.Phase.A != 3.52 {
		t.Errorf("Expected saved phase, got %s a=%g", loaded.Phase.Name, loaded.Phase.A)
	}
	if loaded.Detector.Rows != 120 {
		t.Errorf("Expected 120 detector rows, got %d", loaded.Detector.Rows)
	}
	if len(loaded.Orientations.Euler) != 4 || loaded.Orientations.Euler[3] != [3]float64{70, 80, 90} {
		t.Errorf("Expected saved orientations, got %v", loaded.Orientations.Euler)
	}
}

// TestLoadConfigInvalidYAML verifies malformed files are rejected
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("phase: [not: a: mapping"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

// TestCreateDefaultConfigFile verifies the generated file loads back
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Detector.Rows != 60 {
		t.Errorf("Expected default detector rows, got %d", loaded.Detector.Rows)
	}
}

// TestBuildPhase verifies lattice construction and validation
func TestBuildPhase(t *testing.T) {
	cfg := DefaultConfig()
	phase, err := cfg.BuildPhase()
	if err != nil {
		t.Fatalf("BuildPhase failed: %v", err)
	}
	if phase.String() != "al (m-3m)" {
		t.Errorf("Expected \"al (m-3m)\", got %q", phase.String())
	}

	cfg.Phase.A = -1
	if _, err := cfg.BuildPhase(); err == nil {
		t.Error("Expected error for negative cell length")
	}
}

// TestBuildReflectors verifies family expansion and metadata assignment
func TestBuildReflectors(t *testing.T) {
	cfg := DefaultConfig()
	set, err := cfg.BuildReflectors()
	if err != nil {
		t.Fatalf("BuildReflectors failed: %v", err)
	}
	// {111} + {200} + {220} + {311} symmetrize to 8 + 6 + 12 + 24 vectors
	if set.Len() != 50 {
		t.Errorf("Expected 50 reflectors, got %d", set.Len())
	}
	if !set.HasTheta() {
		t.Error("Expected Bragg angles from the default config")
	}

	// An entry without a Bragg angle leaves the whole set without them
	cfg.Reflectors = append(cfg.Reflectors, ReflectorSpec{HKL: [3]float64{4, 0, 0}, Theta: -1})
	set2, err := cfg.BuildReflectors()
	if err != nil {
		t.Fatalf("BuildReflectors failed: %v", err)
	}
	if set2.Len() != 51 {
		t.Errorf("Expected 51 reflectors, got %d", set2.Len())
	}
	if set2.HasTheta() {
		t.Error("Expected no Bragg angles when one entry lacks them")
	}
}

// TestBuildDetector verifies geometry and projection center wiring
func TestBuildDetector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.Tilt = 8
	cfg.Detector.PCShape = []int{2}
	cfg.Detector.PC = [][3]float64{{0.4, 0.5, 0.5}, {0.6, 0.5, 0.5}}

	det, err := cfg.BuildDetector()
	if err != nil {
		t.Fatalf("BuildDetector failed: %v", err)
	}
	if det.Tilt != 8 || det.SampleTilt != 70 {
		t.Errorf("Expected tilt 8 and sample tilt 70, got %g and %g", det.Tilt, det.SampleTilt)
	}
	if det.NavSize() != 2 || det.PC(1) != [3]float64{0.6, 0.5, 0.5} {
		t.Errorf("Expected 2 projection centers, got %d: %v", det.NavSize(), det.PC(1))
	}

	cfg.Detector.PC = [][3]float64{{0.5, 0.5, 0}}
	cfg.Detector.PCShape = []int{1}
	if _, err := cfg.BuildDetector(); err == nil {
		t.Error("Expected error for zero PCz")
	}
}

// TestBuildRotations verifies the orientation batch
func TestBuildRotations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Orientations.Shape = []int{2, 2}
	cfg.Orientations.Euler = [][3]float64{{0, 0, 0}, {10, 20, 30}, {40, 50, 60}, {70, 80, 90}}

	batch, err := cfg.BuildRotations()
	if err != nil {
		t.Fatalf("BuildRotations failed: %v", err)
	}
	if batch.Len() != 4 || !batch.Shape().Equal(nav.MustShape(2, 2)) {
		t.Errorf("Expected batch of shape (2, 2), got %v of length %d", batch.Shape(), batch.Len())
	}

	cfg.Orientations.Shape = []int{3}
	if _, err := cfg.BuildRotations(); err == nil {
		t.Error("Expected error for shape and orientation count mismatch")
	}
}
