package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/vanderheijden86/atlasview/internal/datasource"
	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/config"
	"github.com/vanderheijden86/atlasview/pkg/focus"
	"github.com/vanderheijden86/atlasview/pkg/render"
	"github.com/vanderheijden86/atlasview/pkg/scene"
	"github.com/vanderheijden86/atlasview/pkg/thumbs"
	"github.com/vanderheijden86/atlasview/pkg/ui"
	"github.com/vanderheijden86/atlasview/pkg/version"
	"github.com/vanderheijden86/atlasview/pkg/watcher"
)

func main() {
	dataDir := flag.String("data", ".", "Directory holding the clustering database or JSON export")
	configPath := flag.String("config", "", "Config file path (default: XDG config dir)")
	exportPath := flag.String("export", "", "Render a static snapshot to this file (.png or .svg) and exit")
	exportW := flag.Int("width", 1280, "Export canvas width in px")
	exportH := flag.Int("height", 800, "Export canvas height in px")
	noWatch := flag.Bool("no-watch", false, "Disable live reload when the source changes")
	checkSources := flag.Bool("check-sources", false, "Compare all discovered sources for inconsistencies and exit")
	versionFlag := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: atlasview [options]")
		fmt.Println("\nAn interactive viewport for image clustering results.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("atlasview %s\n", version.Version)
		os.Exit(0)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Warn("config load failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}

	if *checkSources {
		os.Exit(runCheckSources(*dataDir, logger))
	}

	if *exportPath != "" {
		if err := runExport(*dataDir, *exportPath, *exportW, *exportH, cfg, logger); err != nil {
			logger.Error("export failed", "err", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "atlasview: stdout is not a terminal (use -export for headless rendering)")
		os.Exit(1)
	}

	var w *watcher.Watcher
	if !*noWatch {
		if src, err := bestSourcePath(*dataDir); err == nil {
			w, err = watcher.NewWatcher(src)
			if err != nil {
				logger.Warn("watcher init failed", "err", err)
				w = nil
			} else if err := w.Start(); err != nil {
				logger.Warn("watcher start failed", "err", err)
				w = nil
			}
		}
	}

	m := ui.NewModel(*dataDir, cfg, logger, w)
	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running atlasview: %v\n", err)
		os.Exit(1)
	}
}

// bestSourcePath returns the path of the freshest valid source, for watching.
func bestSourcePath(dataDir string) (string, error) {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return "", err
	}
	best, err := datasource.SelectBestSource(sources)
	if err != nil {
		return "", err
	}
	return best.Path, nil
}

func runCheckSources(dataDir string, logger *log.Logger) int {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		logger.Error("source discovery failed", "err", err)
		return 1
	}
	if len(sources) == 0 {
		fmt.Printf("No sources found in %s\n", dataDir)
		return 1
	}
	for _, s := range sources {
		fmt.Println(s.String())
	}

	diffs, err := datasource.CheckAllSourcesConsistent(sources, datasource.DefaultDiffOptions())
	if err != nil {
		logger.Error("consistency check failed", "err", err)
		return 1
	}
	if len(diffs) == 0 {
		fmt.Println("All sources consistent")
		return 0
	}
	for _, d := range diffs {
		fmt.Println(d.Summary())
	}
	return 1
}

// runExport renders the current snapshot headlessly: load, fit the camera to
// everything, decode thumbnails synchronously, write the image.
func runExport(dataDir, outPath string, width, height int, cfg config.Config, logger *log.Logger) error {
	snap, err := datasource.LoadSnapshot(dataDir)
	if err != nil {
		return err
	}

	cam := camera.New(float64(width), float64(height), camera.Options{
		MinScale: cfg.Camera.MinScale,
		MaxScale: cfg.Camera.MaxScale,
	})
	asm := scene.NewAssembler(scene.Options{
		LODThreshold:  cfg.Scene.LODThreshold,
		SpiralRadius:  cfg.Layout.SpiralRadius,
		ItemRadius:    cfg.Layout.ItemRadius,
		ClusterRadius: cfg.Layout.ClusterRadius,
		Relax:         cfg.Layout.Relax(),
		NoiseRadius:   cfg.Layout.NoiseRingRadius,
	})
	asm.SetSnapshot(snap)

	foc := focus.NewCoordinator(cam, asm, logger)
	now := time.Now()
	foc.Recenter(200, now)
	// Step past the animation window so the pose lands on the fit.
	cam.Advance(now.Add(2 * focus.DefaultDuration))

	cmds := asm.Build(cam)

	loader := thumbs.NewLoader(cfg.Thumbs.Concurrency, cfg.Thumbs.MaxEdge)
	var wg sync.WaitGroup
	for _, c := range cmds {
		if c.Kind != scene.KindItem || c.Thumbnail == "" {
			continue
		}
		wg.Add(1)
		loader.Request(context.Background(), c.ID, c.Thumbnail, func(int64) { wg.Done() })
	}
	wg.Wait()

	err = render.SaveSnapshot(render.SnapshotOptions{
		Path:     outPath,
		Width:    width,
		Height:   height,
		Title:    filepath.Base(dataDir),
		Pose:     cam.Pose(),
		Commands: cmds,
		Thumbs: func(id int64) image.Image {
			img, ok := loader.Get(id)
			if !ok {
				return nil
			}
			return img
		},
	})
	if err != nil {
		return err
	}

	logger.Info("snapshot exported", "path", outPath, "commands", len(cmds))
	return nil
}

func runTUIProgram(m *ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set AV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("AV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	return err
}
