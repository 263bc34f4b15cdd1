// Command lavasim runs the lava simulation headless for a number of frames,
// optionally writing frame images and per-frame telemetry.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/lava"
	"github.com/gogpu/lava/backend"
	_ "github.com/gogpu/lava/backend/software"
	_ "github.com/gogpu/lava/backend/wgpu"
	"github.com/gogpu/lava/config"
	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/render"
	"github.com/gogpu/lava/telemetry"
)

type flags struct {
	configPath string
	frames     int
	backend    string
	separate   bool
	preset     string
	pause      bool
	restartAt  int
	outDir     string
	pngEvery   int
	csv        bool
	verbose    bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to config YAML (empty = defaults)")
	flag.IntVar(&f.frames, "frames", 0, "frames to run (0 = config)")
	flag.StringVar(&f.backend, "backend", "", "device backend: software, wgpu (empty = config or first available)")
	flag.BoolVar(&f.separate, "separate-queues", false, "use distinct graphics and compute queues")
	flag.StringVar(&f.preset, "preset", "", "material preset: solid, liquid")
	flag.BoolVar(&f.pause, "pause", false, "start paused (dt = 0)")
	flag.IntVar(&f.restartAt, "restart-at", 0, "reseed the particles at this frame (0 = never)")
	flag.StringVar(&f.outDir, "out", "", "output directory for images, telemetry and the effective config")
	flag.IntVar(&f.pngEvery, "png-every", 0, "write a PNG every N frames (0 = config)")
	flag.BoolVar(&f.csv, "csv", false, "write telemetry.csv to the output directory")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	lava.SetLogger(logger)

	if err := run(f, logger); err != nil {
		slog.Error("lavasim failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig merges command-line overrides into the file configuration.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if f.frames > 0 {
		cfg.Simulation.Frames = f.frames
	}
	if f.backend != "" {
		cfg.Device.Backend = f.backend
	}
	if set["separate-queues"] {
		cfg.Device.SeparateQueues = f.separate
	}
	if f.preset != "" {
		cfg.Material.Preset = f.preset
	}
	if f.outDir != "" {
		cfg.Output.Dir = f.outDir
	}
	if f.pngEvery > 0 {
		cfg.Output.PNGEvery = f.pngEvery
	}
	if set["csv"] {
		cfg.Output.Telemetry = f.csv
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDevice(cfg *config.Config) (gpucore.Device, error) {
	opts := backend.OpenOptions{SeparateQueues: cfg.Device.SeparateQueues}
	if cfg.Device.Backend == "" {
		return backend.OpenDefault(opts)
	}
	return backend.Open(cfg.Device.Backend, opts)
}

func run(f flags, logger *slog.Logger) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := cfg.WriteYAML(filepath.Join(cfg.Output.Dir, "config.yaml")); err != nil {
			return err
		}
	}

	tun, err := cfg.Tunables()
	if err != nil {
		return err
	}
	tun.Paused = f.pause

	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Info("device opened", "backend", dev.Name(), "shared_queue", dev.Queues().Shared())

	renderer := render.NewPointRenderer(cfg.Output.Width, cfg.Output.Height, cfg.Simulation.GridResolution)
	if cfg.Output.HUD {
		hud, err := render.NewHUD(render.DefaultHUDSize)
		if err != nil {
			return err
		}
		defer hud.Close()
		renderer.SetHUD(hud)
	}

	opts := append(cfg.Options(), lava.WithRenderer(renderer))
	sim, err := lava.New(dev, tun, opts...)
	if err != nil {
		return err
	}
	defer sim.Close()

	var tw *telemetry.Writer
	if cfg.Output.Telemetry {
		tw, err = telemetry.Create(filepath.Join(cfg.Output.Dir, "telemetry.csv"))
		if err != nil {
			return err
		}
		defer tw.Close()
	}

	start := time.Now()
	var last telemetry.Sample
	for frame := 1; frame <= cfg.Simulation.Frames; frame++ {
		if frame == f.restartAt {
			if err := sim.Restart(); err != nil {
				return err
			}
			logger.Info("restarted", "frame", frame)
		}

		if hud := renderer.HUD(); hud != nil {
			hud.SetLines(
				fmt.Sprintf("frame %d", frame),
				fmt.Sprintf("lambda %.1f  mu %.1f", tun.ElasticLambda, tun.ElasticMu),
			)
		}

		elapsed := float32(time.Since(start).Seconds())
		if _, err := sim.Frame(elapsed); err != nil {
			return err
		}

		if tw != nil {
			ps, err := sim.Particles()
			if err != nil {
				return err
			}
			fs, err := sim.DeformationGradients()
			if err != nil {
				return err
			}
			last = telemetry.Collect(frame, float64(elapsed), ps, fs)
			if err := tw.Write(last); err != nil {
				return err
			}
			logger.Debug("frame", "sample", last)
		}

		if n := cfg.Output.PNGEvery; n > 0 && frame%n == 0 {
			path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("frame_%05d.png", frame))
			if err := renderer.SavePNG(path); err != nil {
				return err
			}
		}
	}

	st := sim.Stats()
	p := message.NewPrinter(language.English)
	logger.Info(p.Sprintf("ran %d frames (%d skipped, %d restarts) of %d particles in %v",
		st.Frames, st.Skipped, st.Restarts, cfg.Simulation.ParticleCount, time.Since(start).Round(time.Millisecond)))
	if tw != nil && last.NonFinite > 0 {
		return errors.New("simulation produced non-finite particle state")
	}
	return nil
}
