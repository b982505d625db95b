package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfigPathEnvVar = "SCREENSHOTS_CONFIG"
	EnvPathEnvVar    = "SCREENSHOTS_ENV"

	DefaultScreenshotHotkey = "Ctrl+Alt+S"
	DefaultWindowHotkey     = "Ctrl+Alt+W"
	DefaultEventBackend     = "native"
	DefaultPanKey           = 49 // space
)

type LoadOptions struct {
	ConfigPathOverride   string
	EnvPathOverride      string
	CaptureDirOverride   string
	OutputDirOverride    string
	EventBackendOverride string
}

type Config struct {
	CaptureDir          string `toml:"capture_dir"`
	ScreencapturePath   string `toml:"screencapture_path"`
	SoundEnabled        bool   `toml:"sound_enabled"`
	WindowShadowEnabled bool   `toml:"window_shadow_enabled"`
	EventBackend        string `toml:"event_backend"`
	PanKey              int    `toml:"pan_key"`
	WatchDir            string `toml:"watch_dir"`
	ScreenshotHotkey    string `toml:"screenshot_hotkey"`
	WindowHotkey        string `toml:"window_hotkey"`
	OutputDir           string `toml:"output_dir"`
	MaxWidth            int    `toml:"max_width"`
	MaxHeight           int    `toml:"max_height"`
	EnableFileLogging   bool   `toml:"enable_file_logging"`
	CleanupWorkers      int    `toml:"cleanup_workers"`
	// CaptureTimeoutSeconds bounds each daemon capture; 0 means no limit.
	CaptureTimeoutSeconds int `toml:"capture_timeout_seconds"`

	// ConfigPath and EnvPath record which files were read, if any.
	ConfigPath string   `toml:"-"`
	EnvPath    string   `toml:"-"`
	Warnings   []string `toml:"-"`
}

func defaults() *Config {
	return &Config{
		SoundEnabled:        true,
		WindowShadowEnabled: true,
		EventBackend:        DefaultEventBackend,
		PanKey:              DefaultPanKey,
		ScreenshotHotkey:    DefaultScreenshotHotkey,
		WindowHotkey:        DefaultWindowHotkey,
		CleanupWorkers:      1,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := defaults()

	// Sources, lowest priority first:
	// 1) config.toml ($SCREENSHOTS_CONFIG or ~/.config/screenshots/config.toml)
	// 2) .env beside the executable, else $SCREENSHOTS_ENV
	// 3) process environment
	// 4) LoadOptions
	if err := cfg.loadFile(resolveConfigPath(opts)); err != nil {
		return nil, err
	}

	envPath := resolveEnvPath(opts)
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("failed to read %s: %v", envPath, err))
		} else {
			cfg.EnvPath = envPath
		}
	}

	cfg.applyEnv()
	cfg.applyOverrides(opts)
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	md, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		c.Warnings = append(c.Warnings, fmt.Sprintf("unknown config key: %q", key.String()))
	}
	c.ConfigPath = path
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.CaptureDir, "SCREENSHOTS_DIR")
	setString(&c.ScreencapturePath, "SCREENCAPTURE_PATH")
	setBool(&c.SoundEnabled, "SOUND_ENABLED")
	setBool(&c.WindowShadowEnabled, "WINDOW_SHADOW_ENABLED")
	setString(&c.EventBackend, "EVENT_BACKEND")
	setInt(&c.PanKey, "PAN_KEY")
	setString(&c.WatchDir, "WATCH_DIR")
	setString(&c.ScreenshotHotkey, "SCREENSHOT_HOTKEY")
	setString(&c.WindowHotkey, "WINDOW_HOTKEY")
	setString(&c.OutputDir, "OUTPUT_DIR")
	setInt(&c.MaxWidth, "MAX_WIDTH")
	setInt(&c.MaxHeight, "MAX_HEIGHT")
	setBool(&c.EnableFileLogging, "ENABLE_FILE_LOGGING")
	setInt(&c.CleanupWorkers, "CLEANUP_WORKERS")
	setInt(&c.CaptureTimeoutSeconds, "CAPTURE_TIMEOUT_SECONDS")
}

func (c *Config) applyOverrides(opts LoadOptions) {
	if v := strings.TrimSpace(opts.CaptureDirOverride); v != "" {
		c.CaptureDir = v
	}
	if v := strings.TrimSpace(opts.OutputDirOverride); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(opts.EventBackendOverride); v != "" {
		c.EventBackend = v
	}
}

func (c *Config) normalize() {
	c.CaptureDir = expandHome(c.CaptureDir)
	c.WatchDir = expandHome(c.WatchDir)
	c.OutputDir = expandHome(c.OutputDir)

	switch strings.ToLower(strings.TrimSpace(c.EventBackend)) {
	case "gohook", "hook":
		c.EventBackend = "gohook"
	default:
		c.EventBackend = DefaultEventBackend
	}
	if c.PanKey <= 0 || c.PanKey > 0xFFFF {
		c.PanKey = DefaultPanKey
	}
	if c.CleanupWorkers <= 0 {
		c.CleanupWorkers = 1
	}
	if c.MaxWidth < 0 {
		c.MaxWidth = 0
	}
	if c.MaxHeight < 0 {
		c.MaxHeight = 0
	}
	if c.CaptureTimeoutSeconds < 0 {
		c.CaptureTimeoutSeconds = 0
	}
}

// CaptureTimeout is CaptureTimeoutSeconds as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSeconds) * time.Second
}

func resolveConfigPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.ConfigPathOverride); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "screenshots", "config.toml")
}

func resolveEnvPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.EnvPathOverride); p != "" {
		return p
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
