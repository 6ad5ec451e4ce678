package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/config"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/control"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/instancelock"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/monitor"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/monitoring"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/supervisorctl"

	flags "github.com/jessevdk/go-flags"
)

func logPrefix(program string) string {
	return fmt.Sprintf("program: %s, ", program)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	_, err := parser.ParseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	// used until the configured zap logger exists
	bootstrap := sprintfLogging.NewStdSprintfLogger()
	bootstrapLogger := logging.NewLogger(
		logPrefix(opts.ProgramName), logging.LogFuncs{
			Debugf: bootstrap.Debugf,
			Infof:  bootstrap.Infof,
			Warnf:  bootstrap.Warnf,
			Errorf: bootstrap.Errorf,
		})

	cfg, err := buildConfig(opts, bootstrapLogger)
	if err != nil {
		bootstrap.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		bootstrap.Errorf("Monitor failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.MonitorConfig) error {
	sugar, closeLog, err := logging.NewZapLogger(cfg.Log)
	if err != nil {
		return errors.NewConfigError("failed to create logger", err)
	}
	defer closeLog()

	logger := logging.NewLogger(logPrefix(cfg.ProgramName), logging.ZapLogFuncs(sugar))
	logger.Debugf("Configuration: %+v", *cfg)

	if cfg.LockDir != "" {
		lock, err := instancelock.Acquire(cfg.LockDir, cfg.ProgramName)
		if err != nil {
			return err
		}
		defer lock.Release()
		logger.Debugf("Instance lock acquired, path: %s", lock.Path())
	}

	controller := supervisorctl.NewController(cfg.Control, logger)

	checks, err := monitoring.BuildChecks(cfg, controller, logger)
	if err != nil {
		return err
	}

	m, err := monitor.New(monitor.Options{
		ProgramName:  cfg.ProgramName,
		Interval:     cfg.Interval,
		InitialDelay: cfg.InitialDelay,
	}, checks, controller, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if cfg.StatusAddr != "" {
		server, err := control.Listen(cfg.StatusAddr, m, logger)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(ctx); err != nil {
				logger.Errorf("Status server: %v", err)
			}
		}()
	}

	err = runMonitor(ctx, m, logger)

	// stops the status server as well when the loop ended on its own
	stop()
	wg.Wait()
	return err
}

type runner interface {
	Run(ctx context.Context) error
}

// runMonitor treats a stop caused by ctx as a clean shutdown and passes
// any other stop on as an error
func runMonitor(ctx context.Context, m runner, logger logging.Logger) error {
	err := m.Run(ctx)
	if ctx.Err() != nil {
		logger.Infof("Shutting down: %v", ctx.Err())
		return nil
	}
	if err == nil {
		err = errors.NewIOError("monitor loop stopped unexpectedly", nil)
	}
	logger.Errorf("Monitor loop stopped: %v", err)
	return err
}
