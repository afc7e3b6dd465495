// Package config provides configuration management for the auto-clicker.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Mouse button names used throughout the application.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonMiddle = "middle"
)

// HotkeyUnset is the sentinel for a profile slot with no hotkey assigned.
const HotkeyUnset = "#"

// Mode describes how a profile clicks when its start hotkey fires.
type Mode string

const (
	// ModeClickPath replays the profile's recorded click path.
	ModeClickPath Mode = "click_path"

	// ModeCursorPosition clicks continuously at the live cursor position.
	ModeCursorPosition Mode = "cursor_position"
)

// ClickStep is one recorded or authored click action in a click path.
type ClickStep struct {
	// X, Y are absolute screen coordinates, fixed at record time
	X int `json:"x"`
	Y int `json:"y"`

	// Button is one of ButtonLeft, ButtonRight, ButtonMiddle
	Button string `json:"button"`

	// ClickCount is the number of clicks fired at this step (2 = double click)
	ClickCount int `json:"click_count"`

	// DelayMs is the wait before this step executes, measured from the
	// previous step's click. The first step of a recording carries 0,
	// so nothing is awaited after the final click.
	DelayMs int `json:"delay_ms"`

	// Label is a display name with no effect on playback
	Label string `json:"label,omitempty"`
}

// Profile represents one hotkey-driven clicking configuration
type Profile struct {
	// ID is an opaque unique key
	ID string `json:"id"`

	// Name is the user-visible profile name
	Name string `json:"name"`

	// StartHotkey starts clicking (e.g. "Ctrl+Shift+F10"); HotkeyUnset or "" means none
	StartHotkey string `json:"start_hotkey"`

	// EndHotkey stops clicking
	EndHotkey string `json:"end_hotkey"`

	// IsActive and IsSaved gate hotkey registration: both must hold
	IsActive bool `json:"is_active"`
	IsSaved  bool `json:"is_saved"`

	// ClickPath is the recorded step sequence; empty means cursor mode
	ClickPath []ClickStep `json:"click_path,omitempty"`

	// Cursor mode settings, used only when ClickPath is empty
	CursorIntervalMs int    `json:"cursor_interval_ms"`
	CursorButton     string `json:"cursor_button"`
	CursorCount      int    `json:"cursor_count"` // 0 = unlimited
}

// Mode derives the profile's execution mode from its click path.
// There is deliberately no stored mode flag: emptying the click path
// reverts the profile to cursor mode.
func (p *Profile) Mode() Mode {
	if len(p.ClickPath) > 0 {
		return ModeClickPath
	}
	return ModeCursorPosition
}

// HasStartHotkey reports whether a usable start hotkey is assigned.
func (p *Profile) HasStartHotkey() bool {
	return p.StartHotkey != "" && p.StartHotkey != HotkeyUnset
}

// HasEndHotkey reports whether a usable end hotkey is assigned.
func (p *Profile) HasEndHotkey() bool {
	return p.EndHotkey != "" && p.EndHotkey != HotkeyUnset
}

// Clone returns a deep copy of the profile, including its click path.
// Registration snapshots are clones so a hotkey firing mid-edit sees a
// consistent configuration.
func (p *Profile) Clone() *Profile {
	cp := *p
	if p.ClickPath != nil {
		cp.ClickPath = make([]ClickStep, len(p.ClickPath))
		copy(cp.ClickPath, p.ClickPath)
	}
	return &cp
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// StartOnBoot determines if the app starts on login
	StartOnBoot bool `json:"start_on_boot"`

	// StartMinimized starts the app minimized to tray
	StartMinimized bool `json:"start_minimized"`

	// APIEnabled enables the local status/event feed for the GUI
	APIEnabled bool `json:"api_enabled"`

	// APIPort is the loopback port for the event feed (default: 18473)
	APIPort int `json:"api_port"`

	// RecordStartHotkey begins click-path recording (fixed at startup)
	RecordStartHotkey string `json:"record_start_hotkey"`

	// RecordStopHotkey ends click-path recording
	RecordStopHotkey string `json:"record_stop_hotkey"`

	// DoubleClickMs overrides the OS double-click grouping threshold
	// during recording; 0 means use the OS-reported value
	DoubleClickMs int `json:"double_click_ms,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Profiles []Profile     `json:"profiles"`
	General  GeneralConfig `json:"general"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Profiles: []Profile{},
		General: GeneralConfig{
			StartMinimized:    true,
			APIEnabled:        true,
			APIPort:           18473,
			RecordStartHotkey: "Ctrl+W",
			RecordStopHotkey:  "Ctrl+Q",
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

// NewManagerAt creates a manager bound to an explicit file path.
// Used by tests and by the -config flag.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "autoclick")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "autoclick")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "autoclick")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file location.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	if err := json.Unmarshal(data, m.config); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	cb := m.onChanged
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// GetProfile returns a copy of a profile by ID, or nil if unknown
func (m *Manager) GetProfile(id string) *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Profiles {
		if m.config.Profiles[i].ID == id {
			return m.config.Profiles[i].Clone()
		}
	}
	return nil
}

// SetProfile updates or adds a profile
func (m *Manager) SetProfile(profile Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Profiles {
		if m.config.Profiles[i].ID == profile.ID {
			m.config.Profiles[i] = profile
			return
		}
	}
	// Not found, add new
	m.config.Profiles = append(m.config.Profiles, profile)
}

// DeleteProfile removes a profile by ID
func (m *Manager) DeleteProfile(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Profiles {
		if m.config.Profiles[i].ID == id {
			m.config.Profiles = append(m.config.Profiles[:i], m.config.Profiles[i+1:]...)
			return
		}
	}
}

// SetClickPath replaces a profile's click path wholesale.
// The recorder hands its finalized path here.
func (m *Manager) SetClickPath(id string, path []ClickStep) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Profiles {
		if m.config.Profiles[i].ID == id {
			m.config.Profiles[i].ClickPath = path
			return true
		}
	}
	return false
}
