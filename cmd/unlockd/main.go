package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("unlockd v%s\n", version)
	fmt.Println("Lock surface interaction daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  unlockd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Hosts the lock surface controller. Gestures and lifecycle events arrive")
	fmt.Println("  over a unix socket, render state and host requests go out over a")
	fmt.Println("  websocket. The ringer and app launcher are reached over MQTT when")
	fmt.Println("  configured.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  unlockd -config /etc/unlockd/unlockd.yaml")
	fmt.Println()
	fmt.Println("  # Landscape surface with the wave tab and menu key unlock")
	fmt.Println("  unlockd -orientation landscape -tab-variant wave -menu-key")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Reading input devices needs root or membership of the 'input' group")
	fmt.Printf("  - The menu key is also enabled when %s exists\n", defaultMenuKeyOverrideFile)
	fmt.Println()
}

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		settingsPath   = flag.String("settings", "", "Path to the lock surface settings file (overrides settings.path)")
		tabVariant     = flag.String("tab-variant", "", "Variant for the default layout: slider|wave")
		orientation    = flag.String("orientation", "", "Initial orientation: portrait|landscape")
		keyguardBypass = flag.Bool("keyguard-bypass", false, "Unlock when a hardware keyboard is opened")
		ipcSocketPath  = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		httpPort       = flag.Int("http-port", 0, "HTTP listener port for websocket and metrics (0 disables)")
		mqttEnabled    = flag.Bool("mqtt", false, "Use the MQTT device bus for ringer and launcher")
		mqttBroker     = flag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://127.0.0.1:1883)")
		inputDevice    = flag.String("input-device", "", "Linux input event device for hardware keys")
		menuKey        = flag.Bool("menu-key", false, "Let the menu key unlock")
		logLevelStr    = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var o FlagOverrides
	if set["settings"] {
		o.SettingsPath = settingsPath
	}
	if set["tab-variant"] {
		o.TabVariant = tabVariant
	}
	if set["orientation"] {
		o.Orientation = orientation
	}
	if set["keyguard-bypass"] {
		o.KeyguardBypass = keyguardBypass
	}
	if set["ipc-socket"] {
		o.IPCSocketPath = ipcSocketPath
	}
	if set["http-port"] {
		o.HTTPPort = httpPort
	}
	if set["mqtt"] {
		o.MQTTEnabled = mqttEnabled
	}
	if set["mqtt-broker"] {
		o.MQTTBroker = mqttBroker
	}
	if set["input-device"] {
		o.InputDevice = inputDevice
	}
	if set["menu-key"] {
		o.MenuKey = menuKey
	}
	if set["log-level"] {
		o.LogLevel = logLevelStr
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("unlockd stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// run wires the collaborators and blocks until ctx is done or a component fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	metrics := NewMetrics()
	broadcasts := make(chan StateBroadcast, 256)

	store := NewFileStore(cfg.Settings.Path, time.Duration(cfg.Settings.PollIntervalMS)*time.Millisecond, logger)

	var (
		ringer   RingerService
		dispatch Dispatcher
	)
	if cfg.MQTT.Enabled {
		bus, err := ConnectBus(ctx, cfg.MQTT, logger)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer bus.Close()

		topics := busTopics(cfg.MQTT.TopicPrefix)
		mr, err := NewMQTTRinger(bus, topics)
		if err != nil {
			return err
		}
		defer mr.Close()

		ringer = mr
		dispatch = busDispatcher(bus, topics)
	} else {
		logger.Info("mqtt disabled; using in-process ringer and log-only launcher")
		ringer = NewLocalRinger(RingerNormal)
		dispatch = logDispatcher(logger)
	}

	controller := NewController(store, ringer, 64, logger)
	wsServer := NewServer(logger, controller.Events(), ServerConfig{
		Hub: HubConfig{OnClients: metrics.setRenderers},
	})

	opts := cfg.ToSurfaceOptions()
	state := NewLockState(opts)
	fx := &Effects{
		Ringer:   ringer,
		Launcher: NewTableLauncher(cfg.Launcher.Schemes, dispatch),
		Host:     NewHubHost(broadcasts, logger),
		Pings:    newPingTimer(),
		Metrics:  metrics,
	}

	logger.Debug("configuration",
		"settings", cfg.Settings.Path,
		"tab_variant", opts.TabVariant,
		"orientation", opts.Orientation,
		"keyguard_bypass", opts.KeyguardBypass,
		"menu_key", opts.MenuKeyUnlock,
		"ipc_socket", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"mqtt", cfg.MQTT.Enabled,
		"input_devices", cfg.Input.Devices)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return controller.Run(gctx, state, fx, broadcasts)
	})
	g.Go(func() error {
		wsServer.Hub().Run(gctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(gctx, wsServer.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, controller.Events(), logger)
	})
	g.Go(func() error {
		return store.Watch(gctx)
	})
	if cfg.HTTP.Port > 0 {
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, newHTTPMux(cfg.HTTP, wsServer, metrics), logger)
		})
	}
	if len(cfg.Input.Devices) > 0 {
		g.Go(func() error {
			return runInputReaders(gctx, cfg.Input.Devices, controller.Events(), logger)
		})
	}

	logger.Info("listening", "ipc", cfg.IPC.SocketPath, "http_port", cfg.HTTP.Port, "version", version)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
