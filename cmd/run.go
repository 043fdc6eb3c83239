package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"adsbridge/pkg/bridge"
	"adsbridge/pkg/config"
	"adsbridge/pkg/event"
	"adsbridge/pkg/logger"
	"adsbridge/pkg/ui/monitor"

	"github.com/spf13/cobra"
)

var (
	runDuration time.Duration
	runCalls    []string
	runJournal  bool
)

var runCmd = &cobra.Command{
	Use:   "run <script.lua>",
	Short: "Run a Lua script against the sandbox SDK",
	Long:  "Loads adsbridge configuration, launches a Lua runtime with the plugin library preloaded, runs the script and logs every delivery until interrupted.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runScript(args[0], false)
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor <script.lua>",
	Short: "Run a Lua script with the delivery monitor",
	Long:  "Runs the script like run does and opens a terminal monitor that shows deliveries and sends load, show, fill, click and suspend commands.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runScript(args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)

	for _, c := range []*cobra.Command{runCmd, monitorCmd} {
		c.Flags().BoolVar(&runJournal, "journal", false, "record deliveries in the journal database")
	}
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	runCmd.Flags().StringArrayVar(&runCalls, "call", nil, "global Lua function to call after the script starts (repeatable)")
}

func runScript(path string, withMonitor bool) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}
	if runJournal {
		cfg.Journal.Enabled = true
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		return
	}
	if withMonitor {
		// The monitor owns the terminal.
		appLogger = logger.Discard()
	}
	slog.SetDefault(appLogger)
	log := slog.Default().With("component", "cmd.run")

	name, source, err := readScript(path)
	if err != nil {
		log.Error("Script unavailable", "error", err)
		return
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 && !withMonitor {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, runDuration)
		defer cancel()
	}

	session, err := bridge.Start(runCtx, cfg, appLogger, bridge.Options{ObserveDeliveries: !withMonitor})
	if err != nil {
		log.Error("Failed to start bridge", "error", err)
		return
	}
	defer session.Close()

	if withMonitor {
		deliveries, unsubscribe := session.Bus().SubscribeDeliveries(runCtx, 256)
		defer unsubscribe()

		if err := session.Run(runCtx, name, source); err != nil {
			fmt.Printf("script failed: %v\n", err)
			return
		}
		if err := monitor.Run(runCtx, monitorInfo(cfg, session.Runtime().ID(), name), deliveries, session.Submit); err != nil {
			fmt.Printf("monitor failed: %v\n", err)
		}
		return
	}

	if err := session.Run(runCtx, name, source); err != nil {
		log.Error("Script failed", "script", name, "error", err)
		return
	}
	for _, fn := range runCalls {
		if err := session.Runtime().CallGlobal(runCtx, fn); err != nil {
			log.Error("Call failed", "function", fn, "error", err)
		}
	}

	log.Info("Bridge running", "script", name, "provider", cfg.Plugin.Provider, "library", cfg.Plugin.LibraryName)
	<-runCtx.Done()
	log.Info("Bridge stopping", "reason", context.Cause(runCtx))
}

func readScript(path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", errors.New("script path is required")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read script: %w", err)
	}

	return filepath.Base(path), string(content), nil
}

func monitorInfo(cfg *config.Config, sessionID, script string) monitor.Info {
	return monitor.Info{
		Provider:  cfg.Plugin.Provider,
		SessionID: sessionID,
		Script:    script,
		Fill: map[event.AdUnitType]bool{
			event.OfferWall:     cfg.Sandbox.Fill.OfferWall,
			event.Interstitial:  cfg.Sandbox.Fill.Interstitial,
			event.RewardedVideo: cfg.Sandbox.Fill.RewardedVideo,
		},
	}
}
