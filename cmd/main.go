// AutoClick - native auto-clicker service
// Global hotkeys start and stop click-path playback and cursor
// clicking; a click recorder and a local control API ride along.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"autoclick/internal/api"
	"autoclick/internal/autostart"
	"autoclick/internal/clicker"
	"autoclick/internal/config"
	"autoclick/internal/hotkey"
	"autoclick/internal/input"
	"autoclick/internal/osutils"
	"autoclick/internal/recorder"
	"autoclick/internal/router"
	"autoclick/internal/status"
	"autoclick/internal/tray"
)

var (
	version   = "1.0.0"
	listProf  = flag.Bool("list", false, "List configured profiles")
	playProf  = flag.String("play", "", "Play a profile's click path once and exit")
	showPath  = flag.Bool("config", false, "Print the config file path")
	showVer   = flag.Bool("version", false, "Show version")
	minimized = flag.Bool("minimized", false, "Start without user interaction (used by autostart)")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("autoclick version %s\n", version)
		return
	}

	// Initialize config
	cfgMgr, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	if *showPath {
		fmt.Println(cfgMgr.Path())
		return
	}

	if *listProf {
		listProfiles(cfgMgr)
		return
	}

	if *playProf != "" {
		playOnce(cfgMgr, *playProf)
		return
	}

	// Default: run as background service
	runService(cfgMgr)
}

func listProfiles(cfgMgr *config.Manager) {
	cfg := cfgMgr.Get()
	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		return
	}

	fmt.Println("Profiles:")
	fmt.Println("---------")
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		fmt.Printf("ID: %s\n", p.ID)
		fmt.Printf("  Name: %s\n", p.Name)
		if p.Mode() == config.ModeClickPath {
			fmt.Printf("  Mode: click path (%d steps)\n", len(p.ClickPath))
		} else {
			fmt.Printf("  Mode: cursor (%s every %dms)\n", p.CursorButton, p.CursorIntervalMs)
		}
		fmt.Printf("  Hotkeys: start=%s end=%s\n", p.StartHotkey, p.EndHotkey)
		fmt.Printf("  Active: %v, Saved: %v\n", p.IsActive, p.IsSaved)
		fmt.Println()
	}
}

// playOnce replays a profile's click path from the CLI, printing each
// executed step.
func playOnce(cfgMgr *config.Manager, profileID string) {
	p := cfgMgr.GetProfile(profileID)
	if p == nil {
		log.Fatalf("Profile %s not found", profileID)
	}
	if p.Mode() != config.ModeClickPath {
		log.Fatalf("Profile %s has no click path to play", profileID)
	}

	bus := status.NewBus()
	events := bus.Subscribe()
	go func() {
		for ev := range events {
			switch ev.Kind {
			case status.StepExecuted:
				if ev.Step != nil {
					fmt.Printf("step %d: %s click at (%d,%d)\n", ev.StepIndex, ev.Step.Button, ev.Step.X, ev.Step.Y)
				}
			case status.Error:
				fmt.Printf("error at step %d: %s\n", ev.StepIndex, ev.Detail)
			}
		}
	}()

	exec := clicker.NewPathExecutor(input.NewInjector(), bus, p.ID, false)
	if err := exec.Start(p.ClickPath); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}
	exec.Wait()
	fmt.Printf("Played %d steps of profile %s\n", len(p.ClickPath), p.ID)
}

func runService(cfgMgr *config.Manager) {
	cfg := cfgMgr.Get()
	bus := status.NewBus()

	// Mirror runtime errors into the log
	go func() {
		events := bus.Subscribe()
		for ev := range events {
			if ev.Kind == status.Error {
				log.Printf("Service: Error event (profile=%s): %s", ev.ProfileID, ev.Detail)
			}
		}
	}()

	listener := hotkey.NewListener()
	if err := listener.Start(); err != nil {
		log.Fatalf("Failed to start hotkey listener: %v", err)
	}

	injector := input.NewInjector()
	rt := router.NewRouter(listener, bus, injector)

	threshold := time.Duration(cfg.General.DoubleClickMs) * time.Millisecond
	rec := recorder.NewRecorder(bus, listener, threshold)

	// Recorder control hotkeys are protected: profile hotkeys may not
	// displace them
	if cfg.General.RecordStartHotkey != "" {
		if _, err := listener.RegisterProtected(cfg.General.RecordStartHotkey, func() {
			rec.Start()
		}); err != nil {
			log.Printf("Warning: failed to register record-start hotkey: %v", err)
		}
	}
	if cfg.General.RecordStopHotkey != "" {
		if _, err := listener.RegisterProtected(cfg.General.RecordStopHotkey, func() {
			path := rec.Stop()
			if len(path) == 0 {
				return
			}
			saveRecording(cfgMgr, path)
		}); err != nil {
			log.Printf("Warning: failed to register record-stop hotkey: %v", err)
		}
	}

	// Helper to line hotkey bindings up with the stored profiles; runs
	// again whenever the config changes (e.g. via the API)
	refreshProfiles := func() {
		cfg := cfgMgr.Get()
		current := make(map[string]bool, len(cfg.Profiles))
		for i := range cfg.Profiles {
			p := cfg.Profiles[i]
			current[p.ID] = true
			if p.IsSaved && p.IsActive {
				if err := rt.RegisterProfile(p); err != nil {
					log.Printf("Warning: failed to register hotkeys for profile %s: %v", p.ID, err)
				}
			} else {
				rt.UnregisterProfile(p.ID)
			}
		}
		// Drop bindings for profiles that were deleted
		for _, id := range rt.RegisteredIDs() {
			if !current[id] {
				rt.UnregisterProfile(id)
			}
		}
		log.Printf("Service: Refreshed %d profiles", len(cfg.Profiles))
	}

	refreshProfiles()
	cfgMgr.RegisterChangeCallback(refreshProfiles)

	if cfg.General.StartOnBoot && !autostart.IsEnabled() {
		if err := autostart.Enable(); err != nil {
			log.Printf("Warning: failed to enable autostart: %v", err)
		}
	}

	// Local control API
	if cfg.General.APIEnabled {
		apiServer := api.NewServer(cfgMgr, rt, bus)
		go func() {
			if err := apiServer.Start(cfg.General.APIPort); err != nil {
				log.Printf("Warning: API server exited: %v", err)
			}
		}()
	}

	// Tray
	t := tray.New("AutoClick - Auto Clicker")

	for i := range cfg.Profiles {
		p := cfg.Profiles[i]
		if !p.IsSaved || !p.IsActive {
			continue
		}
		id, name := p.ID, p.Name
		var itemID int
		itemID = t.AddMenuItem(fmt.Sprintf("Run %s", name), func() {
			if rt.Running(id) {
				rt.StopProfile(id)
				t.SetItemTitle(itemID, fmt.Sprintf("Run %s", name))
			} else {
				rt.StartProfile(id)
				t.SetItemTitle(itemID, fmt.Sprintf("Stop %s", name))
			}
		})
	}

	t.AddSeparator()

	t.AddMenuItem("Open Config Folder", func() {
		if err := osutils.OpenFolder(filepath.Dir(cfgMgr.Path())); err != nil {
			log.Printf("Failed to open config folder: %v", err)
		}
	})

	var autostartItem int
	autostartItem = t.AddMenuItem("Start on Login", func() {
		if autostart.IsEnabled() {
			if err := autostart.Disable(); err != nil {
				log.Printf("Failed to disable autostart: %v", err)
				return
			}
			t.SetItemChecked(autostartItem, false)
		} else {
			if err := autostart.Enable(); err != nil {
				log.Printf("Failed to enable autostart: %v", err)
				return
			}
			t.SetItemChecked(autostartItem, true)
		}
	})
	t.SetItemChecked(autostartItem, autostart.IsEnabled())

	t.AddSeparator()

	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		t.Stop()
	}()

	if *minimized || cfg.General.StartMinimized {
		log.Println("AutoClick Service running minimized.")
	} else {
		log.Println("AutoClick Service running. Press Ctrl+C to stop.")
	}
	t.Run()

	// Teardown: release bindings, stop playback, drop the OS hooks
	rt.Close()
	listener.Close()
}

// saveRecording stores the freshly captured path on a scratch profile
// so the GUI can pick it up and attach it where the user wants.
func saveRecording(cfgMgr *config.Manager, path []config.ClickStep) {
	p := cfgMgr.GetProfile("last-recording")
	if p == nil {
		p = &config.Profile{
			ID:   "last-recording",
			Name: "Last recording",
		}
	}
	p.ClickPath = path
	p.IsSaved = false
	p.IsActive = false
	cfgMgr.SetProfile(*p)
	if err := cfgMgr.Save(); err != nil {
		log.Printf("Recorder: Failed to save recording: %v", err)
		return
	}
	log.Printf("Recorder: Saved %d-step recording", len(path))
}
