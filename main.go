package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CristiGvl/picoOmenCtl/api"
	"github.com/CristiGvl/picoOmenCtl/internal/bios"
	"github.com/CristiGvl/picoOmenCtl/internal/config"
	"github.com/CristiGvl/picoOmenCtl/internal/ec"
	"github.com/CristiGvl/picoOmenCtl/internal/fan"
	"github.com/CristiGvl/picoOmenCtl/internal/logging"
	"github.com/CristiGvl/picoOmenCtl/internal/platform"
	"github.com/CristiGvl/picoOmenCtl/internal/profile"
	"github.com/CristiGvl/picoOmenCtl/internal/temps"
	"github.com/spf13/pflag"
)

func main() {
	// Parse command line flags
	flags := pflag.NewFlagSet("picoOmenCtl", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Path to a YAML config file")
	port := flags.StringP("port", "p", "", "Port to run the server on")
	bind := flags.String("bind", "", "IP address to bind the server to")
	logLevel := flags.String("log-level", "", "Log level (debug, info, warn, error)")
	fanSpeed := flags.Int("fan", -1, "Set fan speed percentage and exit")
	reset := flags.Bool("reset", false, "Return fans to firmware control and exit")
	perfMode := flags.String("performance", "", "Set performance mode (performance, default, comfort) and exit")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	var overrides config.Overrides
	if flags.Changed("port") {
		overrides.Port = port
	}
	if flags.Changed("bind") {
		overrides.Bind = bind
	}
	if flags.Changed("log-level") {
		overrides.LogLevel = logLevel
	}
	if err := cfg.Apply(overrides); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Validate platform support
	if err := platform.ValidateSupport(); err != nil {
		logger.Error("platform validation failed", "error", err)
		os.Exit(1)
	}

	if !platform.IsElevated() {
		logger.Warn("not running elevated, direct EC access will likely be refused")
	}

	ctx := context.Background()

	board := resolveBoard(ctx, cfg, logger)
	resolver := profile.NewResolver(cfg.Profiles)
	deviceProfile, supported := resolver.GetProfile(board.BoardID, board.ProductName)
	if supported {
		logger.Info("device profile resolved", "board", board.BoardID, "profile", deviceProfile.Name)
	} else {
		deviceProfile = profile.Default()
		logger.Warn("no device profile for this board, using defaults", "board", board.BoardID, "product", board.ProductName)
	}

	provider := bios.NewProvider(bios.ProviderConfig{Root: cfg.BiosCfgDir})
	settings := bios.NewChannel(provider, cfg.WMITimeout, logger)

	access := ec.NewAccess(ec.NewOpener(ec.DriverConfig{
		Device: cfg.ECDevice,
		Base:   deviceProfile.ECBase,
	}), settings, logger)
	defer access.Close()

	state := access.Initialize(ctx)
	logger.Info("hardware access channel selected", "state", state)

	fanController := fan.NewController(access, settings, deviceProfile, logger)

	// One-shot commands
	if flags.Changed("fan") || *reset || flags.Changed("performance") {
		code := runOnce(ctx, fanController, settings, *fanSpeed, *reset, *perfMode, flags.Changed("fan"), flags.Changed("performance"))
		access.Close()
		os.Exit(code)
	}

	deps := api.Deps{
		Access:      access,
		Fan:         fanController,
		Performance: settings,
		Temps:       temps.NewReader(),
		Board:       board,
		Logger:      logger,

		AllowedOrigins: cfg.AllowedOrigins,
	}
	if supported {
		deps.Profile = &deviceProfile
	}

	// Create and start the API server
	server, err := api.NewServer(deps)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		// hand the fans back to the firmware before exiting
		if res := fanController.ResetToAuto(ctx); !res.OK() {
			logger.Warn("failed to restore automatic fan control", "reason", res.Reason)
		}
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
		access.Close()
		os.Exit(0)
	}()

	// Start the server
	logger.Info("starting picoOmenCtl server", "address", cfg.Address())
	if err := server.Start(cfg.Address()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// resolveBoard prefers configured identifiers over host detection
func resolveBoard(ctx context.Context, cfg *config.Config, logger *slog.Logger) *profile.Board {
	board := &profile.Board{BoardID: cfg.BoardID, ProductName: cfg.ProductName}
	if board.BoardID != "" {
		return board
	}

	detected, err := profile.Detect(ctx)
	if err != nil {
		logger.Warn("board detection failed", "error", err)
		return board
	}
	if board.ProductName == "" {
		board.ProductName = detected.ProductName
	}
	board.BoardID = detected.BoardID
	return board
}

// runOnce applies command line requests and returns the process exit code
func runOnce(ctx context.Context, fanController *fan.Controller, settings *bios.Channel, speed int, reset bool, mode string, setFan, setMode bool) int {
	exitCode := 0

	if setMode {
		if err := settings.SetPerformanceMode(ctx, mode); err != nil {
			fmt.Fprintf(os.Stderr, "performance mode: %v\n", err)
			exitCode = 1
		} else {
			fmt.Printf("performance mode: %s\n", bios.ParsePerformanceMode(mode).Value())
		}
	}

	if setFan {
		res := fanController.SetFanSpeed(ctx, speed)
		fmt.Printf("fan speed %d%%: %s\n", fan.ClampPercent(speed), res)
		if !res.OK() {
			exitCode = 1
		}
	}

	if reset {
		res := fanController.ResetToAuto(ctx)
		fmt.Printf("fan reset: %s\n", res)
		if !res.OK() {
			exitCode = 1
		}
	}

	return exitCode
}
