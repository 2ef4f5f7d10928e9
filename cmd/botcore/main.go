package main

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

	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/internal/api"
	"github.com/RedUtils/botcore/internal/config"
	"github.com/RedUtils/botcore/internal/dispatcher"
	"github.com/RedUtils/botcore/internal/influx"
	"github.com/RedUtils/botcore/internal/journal"
	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/match"
	"github.com/RedUtils/botcore/internal/monitor"
	intOtel "github.com/RedUtils/botcore/internal/otel"
	"github.com/RedUtils/botcore/internal/parser"
	"github.com/RedUtils/botcore/internal/prediction"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/internal/strategy"
	"github.com/RedUtils/botcore/internal/worker"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/RedUtils/botcore/pkg/hostio"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	ProcessName = "botcore"
)

// ConfigDirEnv overrides the directory the config file is read from.
const ConfigDirEnv = "BOTCORE_CONFIG_DIR"

// app holds every long lived component of the process.
type app struct {
	sessionStart time.Time

	logger     *slog.Logger
	logManager *logging.SlogManager
	zlog       zerolog.Logger
	logFile    *os.File
	otel       *intOtel.Provider

	matchContext *match.Context
	dispatcher   *dispatcher.Dispatcher
	backend      storage.Backend
	influx       *influx.Manager
	journal      *journal.Writer
	agent        *agent.Agent
	worker       *worker.Manager
	monitor      *monitor.Service
}

func main() {
	a := &app{
		sessionStart: time.Now(),
		matchContext: match.NewContext(),
	}

	cfgErr := config.Load(configDir())
	a.setupLogging()
	if cfgErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		a.logger.Info("Loaded config")
	}

	args := os.Args[1:]
	replay := len(args) > 0 && strings.ToLower(args[0]) == "replay"

	if err := a.setup(!replay); err != nil {
		a.logger.Error("Startup failed", "error", err)
		a.shutdown()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if replay {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "No journal files provided.")
			a.shutdown()
			os.Exit(2)
		}
		err = a.replay(ctx, args[1:])
	} else {
		err = a.serve(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Stopped with error", "error", err)
	}

	a.shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// configDir returns the directory holding the config file: $BOTCORE_CONFIG_DIR,
// else the directory of the executable.
func configDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// setupLogging opens the session log file and wires slog, zerolog, Graylog
// and OTel. stdout carries the host protocol, so nothing may log there.
func (a *app) setupLogging() {
	a.logManager = logging.NewSlogManager()

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs dir %s: %v\n", logsDir, err)
	}

	logPath := logging.LogFilePath(logsDir, ProcessName, a.sessionStart)
	if _, err := os.Stat(logPath); err == nil {
		_ = os.Rename(logPath, logPath+".old")
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create/open log file %s: %v\n", logPath, err)
	} else {
		a.logFile = f
	}

	out := os.Stderr
	if a.logFile != nil {
		out = a.logFile
	}

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		InstanceID:     fmt.Sprintf("%s-%d", ProcessName, viper.GetInt("agent.index")),
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      out,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		a.otel, _ = intOtel.New(intOtel.Config{})
	}

	if viper.GetBool("graylog.enabled") {
		if err := a.logManager.UseGraylog(viper.GetString("graylog.address")); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to set up Graylog: %v\n", err)
		}
	}

	a.logManager.UseContext(func() []slog.Attr {
		if !a.matchContext.Active() {
			return nil
		}
		m := a.matchContext.GetMatch()
		return []slog.Attr{
			slog.String("match", m.Name),
			slog.Uint64("matchId", uint64(m.ID)),
		}
	})

	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}
	level := viper.GetString("logLevel")
	a.logManager.Setup(out, level, otelLogProvider)
	a.logger = a.logManager.Logger()
	a.logger.Info("Logging to file", "path", logPath, "version", Version, "buildDate", BuildDate)

	zlvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlvl = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(out).Level(zlvl).With().Timestamp().Str("process", ProcessName).Logger()
}

// setup builds the agent and its sinks and registers every host command.
// The journal is skipped when replaying so a replay does not record itself.
func (a *app) setup(withJournal bool) error {
	var err error

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	agentCfg := config.GetAgentConfig()
	policy, err := agent.ParseMalformedPolicy(agentCfg.MalformedPolicy)
	if err != nil {
		a.logger.Warn("Unknown malformed policy, repeating last output", "error", err)
		policy = agent.RepeatLast
	}
	predCfg := config.GetPredictionConfig()

	p := parser.NewParser(a.logger, Version)
	a.agent, err = agent.New(agent.Config{
		Name:            agentCfg.Name,
		Index:           agentCfg.Index,
		Team:            core.Team(agentCfg.Team),
		MalformedPolicy: policy,
		Prediction: prediction.Config{
			MaxSlices: predCfg.MaxSlices,
			Horizon:   predCfg.Horizon,
		},
	}, p, strategy.Kickoff{Chase: agentCfg.Chase}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	a.backend = a.initStorage()

	a.influx = influx.NewManager(config.GetInfluxConfig(), a.zlog,
		filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("influx_backup_%s.lp.gz", a.sessionStart.Format("20060102_150405"))))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = a.influx.Connect(ctx)
	cancel()
	switch {
	case errors.Is(err, influx.ErrDisabled):
		a.logger.Debug("InfluxDB disabled")
		a.influx = nil
	case err != nil:
		a.logger.Warn("Failed to set up InfluxDB", "error", err)
		a.influx = nil
	case !a.influx.Valid():
		a.logger.Warn("InfluxDB unreachable, writing line protocol backup")
	default:
		a.logger.Info("Connected to InfluxDB")
	}

	journalCfg := config.GetJournalConfig()
	if withJournal && journalCfg.Enabled {
		a.journal = journal.NewWriter(journalCfg.Dir, ProcessName)
		a.logger.Info("Journaling host commands", "dir", journalCfg.Dir)
	}

	var uploader worker.Uploader
	if key := viper.GetString("api.apiKey"); key != "" {
		client := api.New(viper.GetString("api.serverUrl"), key)
		uploader = client
		go a.checkServerStatus(client)
	}

	a.worker = worker.NewManager(worker.Dependencies{
		Agent:        a.agent,
		Parser:       p,
		MatchContext: a.matchContext,
		LogManager:   a.logManager,
		Influx:       a.influx,
		Journal:      a.journal,
		Uploader:     uploader,
		AgentName:    agentCfg.Name,
		DefaultTag:   viper.GetString("defaultTag"),
	}, a.backend)
	a.worker.RegisterHandlers(a.dispatcher)

	a.monitor = monitor.NewService(monitor.Dependencies{
		LogManager:   a.logManager,
		MatchContext: a.matchContext,
		Agent:        a.agent,
		Backend:      a.backend,
		Influx:       a.influx,
		StatusDir:    viper.GetString("logsDir"),
		Interval:     viper.GetDuration("monitor.interval"),
	})

	a.registerLifecycleHandlers()
	a.logger.Info("Handlers registered", "commands", a.dispatcher.Commands())

	return a.monitor.Start()
}

func (a *app) registerLifecycleHandlers() {
	a.dispatcher.Register(":VERSION:", func(dispatcher.Event) (any, error) {
		return []string{Version, BuildDate}, nil
	})
	a.dispatcher.Register(":STATUS:", func(dispatcher.Event) (any, error) {
		return a.monitor.Sample(), nil
	})
}

func (a *app) checkServerStatus(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Healthcheck(ctx); err != nil {
		a.logger.Warn("Replay server is not reachable", "error", err)
		return
	}
	a.logger.Info("Replay server is reachable")
}

// serve answers host commands on stdin/stdout until EOF or a signal.
func (a *app) serve(ctx context.Context) error {
	a.logger.Info("Serving host commands on stdin")
	srv := hostio.NewServer(a.dispatcher, os.Stdin, os.Stdout, hostio.SplitArgs(":METRIC:"))
	return srv.Serve(ctx)
}

// replay feeds journaled commands back through the handlers and prints each
// reply, so a recorded session can be re-run against a changed strategy.
func (a *app) replay(ctx context.Context, paths []string) error {
	var total, failed int
	for _, path := range paths {
		entries, err := journal.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading journal %s: %w", path, err)
		}
		a.logger.Info("Replaying journal", "path", path, "entries", len(entries))

		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := a.dispatcher.Dispatch(dispatcher.Event{
				Command:   e.Command,
				Args:      e.Args,
				Timestamp: e.Time,
			})
			total++
			if err != nil {
				failed++
			}
			fmt.Fprintln(os.Stdout, hostio.FormatResponse(e.Command, result, err))
		}
	}
	a.logger.Info("Replay finished", "commands", total, "errors", failed)
	return nil
}

// shutdown ends a match the host left open and closes every sink.
func (a *app) shutdown() {
	logger := a.logger

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.worker != nil && a.matchContext.Active() {
		if path, err := a.worker.EndMatch(); err != nil {
			logger.Error("Failed to end match on shutdown", "error", err)
		} else if path != "" {
			logger.Info("Recording written", "path", path)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Error("Failed to close journal", "error", err)
		}
	}

	logger.Info("Shutdown complete")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	_ = a.logManager.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
