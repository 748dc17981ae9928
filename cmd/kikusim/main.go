package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"kikusim/pkg/config"
	"kikusim/pkg/simulation"
	"kikusim/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "kikusim.yaml", "Path to the YAML configuration file")
	mode := flag.String("mode", "geometrical", "Simulation mode: geometrical or master")
	outputDir := flag.String("output", "", "Output directory (overrides the configuration)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: configuration value)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if cfg.Processing.NumCores < 1 {
		cfg.Processing.NumCores = runtime.NumCPU()
	}

	fmt.Println("================================")
	fmt.Println("KIKUSIM - GEOMETRICAL AND KINEMATICAL KIKUCHI PATTERN SIMULATION")
	fmt.Println("================================")

	reflectors, err := cfg.BuildReflectors()
	if err != nil {
		log.Fatalf("Failed to build reflectors: %v", err)
	}
	sim, err := simulation.NewSimulator(reflectors)
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}
	sim.SetWorkers(cfg.Processing.NumCores)
	if cfg.Processing.Verbose {
		sim.SetProgressCallback(func(done, total int, stage string) {
			if stage != "" {
				fmt.Printf("[%d/%d] %s\n", done, total, stage)
			}
		})
	}

	fmt.Printf("Phase: %s\n", sim.Phase())
	fmt.Printf("Reflectors: %d\n", reflectors.Len())
	fmt.Printf("Using %d cores\n", cfg.Processing.NumCores)

	switch *mode {
	case "geometrical":
		runGeometrical(cfg, sim)
	case "master":
		runMaster(cfg, sim)
	default:
		log.Fatalf("Unknown mode %q, options are 'geometrical' or 'master'", *mode)
	}
}

// runGeometrical projects the reflectors onto the configured detector for
// every orientation and renders one overlay image per navigation position.
func runGeometrical(cfg *config.Config, sim *simulation.Simulator) {
	det, err := cfg.BuildDetector()
	if err != nil {
		log.Fatalf("Failed to build detector: %v", err)
	}
	rotations, err := cfg.BuildRotations()
	if err != nil {
		log.Fatalf("Failed to build orientations: %v", err)
	}

	fmt.Printf("Detector: %dx%d px, sample tilt %.1f°, detector tilt %.1f°\n",
		det.NRows, det.NCols, det.SampleTilt, det.Tilt)
	fmt.Printf("Orientations: %v\n", rotations.Shape())

	fmt.Println("\nStarting geometrical simulation...")
	startTime := time.Now()
	result, err := sim.OnDetector(det, rotations)
	if err != nil {
		log.Fatalf("Geometrical simulation failed: %v", err)
	}
	elapsed := time.Since(startTime)

	fmt.Printf("\nSimulation completed in %.3f seconds\n", elapsed.Seconds())
	fmt.Printf("%s\n", result)
	fmt.Printf("Visible reflectors: %d\n", result.Reflectors().Len())
	fmt.Printf("Visible zone axes: %d\n", len(result.ZoneAxes()))
	fmt.Printf("Max gnomonic radius: %.4f\n", result.MaxGnomonicRadius())

	opts := simulation.DefaultCollectionOptions()
	opts.ZoneAxes = cfg.Output.ZoneAxes
	opts.ZoneAxesLabels = cfg.Output.ZoneAxesLabels
	opts.PC = cfg.Output.PC
	if space, err := simulation.ParseCoordinateSpace(cfg.Output.Coordinates); err == nil {
		opts.Coordinates = space
	}

	renderer := visualization.NewRenderer()
	shape := result.NavigationShape()
	for p := 0; p < shape.Size(); p++ {
		index, err := shape.MultiIndex(p)
		if err != nil {
			log.Fatalf("Failed to resolve navigation index: %v", err)
		}
		img, err := renderer.RenderPattern(result, index, opts)
		if err != nil {
			log.Fatalf("Failed to render pattern %v: %v", index, err)
		}
		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("pattern_%03d.png", p))
		if err := visualization.SavePNG(img, path); err != nil {
			log.Fatalf("Failed to save pattern image: %v", err)
		}
		if cfg.Processing.Verbose {
			lines, _ := result.LinesCoordinates(index, opts.Coordinates)
			fmt.Printf("Pattern %v: %d visible lines, saved to %s\n", index, len(lines), path)
		}
	}
	fmt.Printf("\nOverlay images saved to: %s\n", cfg.Output.Dir)
}

// runMaster computes the kinematical master pattern and renders one
// grayscale image per hemisphere.
func runMaster(cfg *config.Config, sim *simulation.Simulator) {
	hemisphere, err := simulation.ParseHemisphere(cfg.Master.Hemisphere)
	if err != nil {
		log.Fatalf("Invalid master pattern configuration: %v", err)
	}
	scaling, err := simulation.ParseScaling(cfg.Master.Scaling)
	if err != nil {
		log.Fatalf("Invalid master pattern configuration: %v", err)
	}

	fmt.Printf("Master pattern: half size %d, %s hemisphere(s), %s scaling\n",
		cfg.Master.HalfSize, hemisphere, scaling)

	fmt.Println("\nStarting master pattern simulation...")
	startTime := time.Now()
	mp, err := sim.CalculateMasterPattern(cfg.Master.HalfSize, hemisphere, scaling)
	if err != nil {
		log.Fatalf("Master pattern simulation failed: %v", err)
	}
	elapsed := time.Since(startTime)

	fmt.Printf("\nSimulation completed in %.3f seconds\n", elapsed.Seconds())
	fmt.Printf("%s\n", mp)

	// Intensity statistics over each hemisphere image
	for h := 0; h < mp.NumHemispheres(); h++ {
		data := mp.Hemi(h)
		fmt.Printf("Hemisphere %d: min %.3f, max %.3f, mean %.3f, std %.3f\n",
			h, floats.Min(data), floats.Max(data), stat.Mean(data, nil), stat.StdDev(data, nil))

		img, err := visualization.RenderMasterPattern(mp, h)
		if err != nil {
			log.Fatalf("Failed to render master pattern: %v", err)
		}
		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("master_%d.png", h))
		if err := visualization.SavePNG(img, path); err != nil {
			log.Fatalf("Failed to save master pattern image: %v", err)
		}
		fmt.Printf("Hemisphere %d saved to: %s\n", h, path)
	}
}
