// attritiond hosts the survival attrition engine as a standalone process.
// A VTT-side bridge feeds it world-time ticks, actor snapshots and
// consumption events over stdin; the engine tracks hunger, thirst and rest
// and writes exhaustion back through the rule-system adapter. A simulation
// mode runs a scripted party instead, for trying out tolerance and terrain
// settings without a game session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/logging"
	intOtel "github.com/fitvtt/attrition/internal/otel"
)

// version info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ProgramName string = "attritiond"
)

var (
	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func main() {
	configDir := flag.String("config", ".", "directory containing attrition.cfg.json")
	simulateDays := flag.Int("simulate", 0, "run a scripted party for N in-game days and exit")
	statusDir := flag.String("status", "", "directory for the periodic status file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", ProgramName, CurrentVersion, BuildDate)
		return
	}

	// bootstrap logging to stdout until the log file exists
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil, nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, ProgramName, SessionStartTime)
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	if viper.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  ProgramName,
			BatchTimeout: 5 * time.Second,
			LogWriter:    LogFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	// re-setup logging with the file, world-time context and optional OTel
	var world *worldState
	worldClock := func() []slog.Attr {
		if world == nil {
			return nil
		}
		return []slog.Attr{slog.Int64("worldTime", world.Now())}
	}
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), worldClock, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", CurrentVersion, "build", BuildDate)

	dbLog := zerolog.New(LogFile).With().Timestamp().Logger()

	world = newWorldState(Logger)
	eng, err := newEngine(world, Logger, dbLog, *statusDir)
	if err != nil {
		Logger.Error("Failed to build engine", "error", err)
		os.Exit(1)
	}

	if *simulateDays > 0 {
		Logger.Info("Running simulation", "days", *simulateDays)
		if err := runSimulation(eng, os.Stdout, *simulateDays); err != nil {
			Logger.Error("Simulation failed", "error", err)
		}
		shutdown(eng)
		return
	}

	eng.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	b := newBridge(eng, os.Stdout, Logger)
	bridgeDone := make(chan struct{})
	go func() {
		b.Run(ctx, os.Stdin)
		close(bridgeDone)
	}()

	select {
	case <-sig:
		Logger.Info("Shutting down on signal")
		cancel()
		// unblock the pending read; the bridge must drain before Stop
		// closes the tick channel it sends on
		os.Stdin.Close()
		<-bridgeDone
	case <-bridgeDone:
		Logger.Info("Host stream closed, shutting down")
	}

	shutdown(eng)
}

func shutdown(eng *engine) {
	eng.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Error("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
