package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/buttonlink/internal/config"
	"github.com/chaz8081/buttonlink/internal/input"
	"github.com/chaz8081/buttonlink/internal/leds"
	"github.com/chaz8081/buttonlink/internal/link"
	"github.com/chaz8081/buttonlink/internal/notify"
	"github.com/chaz8081/buttonlink/internal/transport"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/buttonlink/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetLogLoggerLevel(logLevel(cfg.LogLevel))

	printBanner(cfg)

	// LED panel: sysfs-backed when any role is mapped, otherwise inert
	panel := buildPanel(cfg)

	// BLE transport
	bt := transport.NewBluetooth(transport.BluetoothConfig{
		DeviceName:         cfg.Device.Name,
		ServiceUUID:        cfg.Service.UUID,
		CharacteristicUUID: cfg.Service.Characteristic,
		MinInterval:        time.Duration(cfg.Connection.MinIntervalMs) * time.Millisecond,
		MaxInterval:        time.Duration(cfg.Connection.MaxIntervalMs) * time.Millisecond,
		SupervisionTimeout: time.Duration(cfg.Connection.SupervisionTimeoutMs) * time.Millisecond,
	})

	// Core: notification channel, connection state machine, input relay
	channel := notify.NewChannel(bt)
	machine := link.NewMachine(bt, channel, panel)
	relay := input.NewRelay(cfg.Input.Line, channel, panel)

	// Link events must be wired before the stack comes up
	bt.SetLinkEvents(machine)

	if err := bt.Enable(); err != nil {
		log.Fatalf("Failed to enable BLE stack: %v\n\nEnsure the Bluetooth adapter is present and powered.", err)
	}

	if err := machine.Start(); err != nil {
		log.Fatalf("Failed to start advertising: %v", err)
	}
	log.Printf("Advertising as %q", cfg.Device.Name)

	// Input source: the configured key stands in for the button
	source := input.NewKeyboardSource(cfg.Input.Key, cfg.Input.Line)
	go source.Start()
	log.Printf("Button ready (key: %s, line: %d). Ctrl+C to quit.", cfg.Input.Key, cfg.Input.Line)

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Main event loop
	events := source.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.Println("Input source stopped")
				return
			}
			relay.HandleEdge(ev)

		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			source.Stop()
			if drops := machine.Drops(); drops > 0 {
				log.Printf("Dropped %d transport calls this session", drops)
			}
			log.Println("Goodbye!")
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// buildPanel wires the sysfs LED panel if any role has a mapped device
// name; otherwise LED updates go nowhere.
func buildPanel(cfg *config.Config) leds.Panel {
	names := map[leds.LED]string{
		leds.Button:      cfg.LEDs.Button,
		leds.Advertising: cfg.LEDs.Advertising,
		leds.Connected:   cfg.LEDs.Connected,
	}
	if cfg.LEDs.Button == "" && cfg.LEDs.Advertising == "" && cfg.LEDs.Connected == "" {
		return leds.NullPanel{}
	}
	return leds.NewSysfsPanel(cfg.LEDs.Dir, names)
}

// logLevel maps the config level string to a slog level.
func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== buttonlink ===")
	fmt.Printf("  Device:  %s\n", cfg.Device.Name)
	fmt.Printf("  Service: %s\n", cfg.Service.UUID)
	fmt.Printf("  Conn:    %d-%dms interval, %dms timeout\n",
		cfg.Connection.MinIntervalMs, cfg.Connection.MaxIntervalMs, cfg.Connection.SupervisionTimeoutMs)
	fmt.Printf("  Button:  line %d (key: %s)\n", cfg.Input.Line, cfg.Input.Key)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
