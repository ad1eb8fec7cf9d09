package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"image-bridge/internal/config"
	"image-bridge/internal/dispatch"
	"image-bridge/internal/eventbus"
	"image-bridge/internal/imagemap"
	"image-bridge/internal/logger"
	"image-bridge/internal/memory"
	"image-bridge/internal/models"
	"image-bridge/internal/shutdown"
	"image-bridge/internal/translate"
	"image-bridge/internal/window"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName    = "Image Bridge"
	AppID      = "com.imagebridge.bridge"
	AppVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "image-bridge.yaml", "path to the YAML configuration")
	headless := flag.Bool("headless", false, "run the demo without windows and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	if *headless {
		cfg.Window.Headless = true
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	appLogger, closer, err := logger.New(cfg.Logging.Output, level)
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer closer.Close()

	if cfg.Window.Headless {
		if err := runHeadless(cfg, appLogger, os.Stdout); err != nil {
			appLogger.Error("Main", err, nil)
			os.Exit(1)
		}
		return
	}

	runGUI(cfg, appLogger)
}

// bridge holds every long-lived component of one run.
type bridge struct {
	cfg      *config.Config
	log      logger.Logger
	memory   *memory.Manager
	scratch  *memory.Pool
	displays *models.DisplayRepository
	bus      *eventbus.Bus
	queue    *dispatch.Queue
	session  *imagemap.Session
	shutdown *shutdown.Manager
}

func newBridge(cfg *config.Config, appLogger logger.Logger, exec dispatch.Executor, windows func(*eventbus.Bus) window.Manager) *bridge {
	mem := memory.NewManager(cfg.Memory.LimitBytes, appLogger)
	scratch := memory.NewPool(cfg.Memory.ScratchPlanes)
	displays := models.NewDisplayRepository()

	toolkit := translate.NewToolkit(appLogger, cfg.Harmonization.Workers, mem)
	harmonizer := translate.NewHarmonizer(toolkit, scratch, appLogger)

	bus := eventbus.NewBus(cfg.Dispatch.EventBuffer, exec, appLogger)
	queue := dispatch.NewQueue(cfg.Dispatch.QueueSize, exec, appLogger)
	go queue.Run()

	wm := windows(bus)
	idMap := imagemap.New(imagemap.Options{
		Harmonizer: harmonizer,
		Windows:    wm,
		Displays:   displays,
		Disposer:   queue,
		Logger:     appLogger,
	})

	mode := imagemap.ModeModern
	if cfg.LegacyMode() {
		mode = imagemap.ModeLegacy
	}
	session := imagemap.NewSession(idMap, wm, mode, appLogger)
	session.Subscribe(bus)

	sm := shutdown.NewManager(appLogger, 0)
	sm.Register("displays", displays)
	sm.Register("scratch", shutdown.Func(func() { scratch.Cleanup() }))
	sm.Register("dispatch", queue)
	sm.Register("events", bus)

	appLogger.Info("Main", "bridge initialized", map[string]interface{}{
		"mode":    mode.String(),
		"workers": cfg.Harmonization.Workers,
	})

	return &bridge{
		cfg:      cfg,
		log:      appLogger,
		memory:   mem,
		scratch:  scratch,
		displays: displays,
		bus:      bus,
		queue:    queue,
		session:  session,
		shutdown: sm,
	}
}

func (b *bridge) status() string {
	stats := b.displays.Stats()
	mem := b.memory.GetStats()
	return fmt.Sprintf("%s mode, %d pairings, %d displays, %d planes, %.1f MiB live",
		b.session.Mode(), len(b.session.Map().Pairings()), stats.Displays, stats.Planes,
		float64(mem.Live())/(1024*1024))
}

func runGUI(cfg *config.Config, appLogger logger.Logger) {
	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})
	fyneApp := app.NewWithID(AppID)

	b := newBridge(cfg, appLogger, dispatch.FyneExecutor(), func(bus *eventbus.Bus) window.Manager {
		return window.NewFyneManager(fyneApp, cfg.Window.Width, cfg.Window.Height, func(imp *models.LegacyImage) {
			bus.Publish(eventbus.Event{Type: eventbus.LegacyClosed, Legacy: imp})
		})
	})
	b.shutdown.Listen(fyneApp.Quit)

	control := newControlWindow(fyneApp, b)
	// Shutdown waits on work queued through fyne.Do; keep it off the main goroutine.
	control.window.SetOnClosed(func() { go b.shutdown.Shutdown() })
	control.window.ShowAndRun()
}

func runHeadless(cfg *config.Config, appLogger logger.Logger, out io.Writer) error {
	b := newBridge(cfg, appLogger, dispatch.Inline, func(*eventbus.Bus) window.Manager {
		return window.NewHeadless(true)
	})
	defer b.shutdown.Shutdown()

	return runDemo(b, out)
}
