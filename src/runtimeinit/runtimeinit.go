package runtimeinit

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"screenshots/src/capture"
	"screenshots/src/clipboard"
	"screenshots/src/config"
	"screenshots/src/hook"
	"screenshots/src/permissions"
	"screenshots/src/worker"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(enableFileLogging bool, dir string)
	// InitClipboard is needed by commands that copy captures.
	InitClipboard bool
	// RequestPermissions prompts for Input Monitoring when undecided.
	RequestPermissions bool
}

func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging, LogDir(cfg))
	}
	for _, w := range cfg.Warnings {
		log.Printf("Config warning: %s", w)
	}
	if cfg.ConfigPath != "" {
		log.Printf("Config: loaded %s", cfg.ConfigPath)
	}

	if opts.RequestPermissions {
		permissions.RequestNeededPermissions()
	}
	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}
	return cfg, nil
}

// LogDir is where the debug log goes: beside the config file when there is
// one, else the user cache directory.
func LogDir(cfg *config.Config) string {
	if cfg != nil && cfg.ConfigPath != "" {
		return filepath.Dir(cfg.ConfigPath)
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "screenshots")
	}
	return ""
}

// NewCaptureCLI builds the capture coordinator described by cfg. The caller
// must Close the returned pool after the CLI is done.
func NewCaptureCLI(cfg *config.Config, bus *hook.Bus) (*capture.CLI, *worker.Pool) {
	pool := worker.New(cfg.CleanupWorkers)
	cli := capture.New(capture.Options{
		Directory:    cfg.CaptureDir,
		Executable:   cfg.ScreencapturePath,
		EventBackend: cfg.EventBackend,
		Bus:          bus,
		PanKey:       uint16(cfg.PanKey),
		Cleanup:      pool,
	})
	return cli, pool
}
