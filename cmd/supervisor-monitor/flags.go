package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/config"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
)

// seconds accepts a bare number of seconds ("60") or a Go duration ("1m30s")
type seconds time.Duration

func (s *seconds) UnmarshalFlag(value string) error {
	var d time.Duration
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n*float64(time.Second) > math.MaxInt64 {
			return fmt.Errorf("duration %q out of range", value)
		}
		d = time.Duration(n * float64(time.Second))
	} else if d, err = time.ParseDuration(value); err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration %q must not be negative", value)
	}
	*s = seconds(d)
	return nil
}

func (s seconds) MarshalFlag() (string, error) {
	return time.Duration(s).String(), nil
}

type flagOptions struct {
	Config string `short:"c" long:"config" description:"YAML configuration file; flags override its values"`

	ProgramName    string   `short:"p" long:"program-name" description:"Program name (supervisor)"`
	Interval       *seconds `long:"timeout" description:"Monitor interval between checks (seconds or duration, default 60s)"`
	InitialDelay   *seconds `long:"initial-delay" description:"Wait before the first check"`
	MemoryMaxSize  int      `short:"m" long:"memory-max-size" description:"Max resident memory size of the process (MB)"`
	MemoryProbe    string   `long:"memory-probe" description:"How to read resident memory" choice:"ps" choice:"proc"`
	RequestURL     string   `long:"request-url" description:"Health endpoint URL; 5xx or no response triggers a restart"`
	RequestTimeout *seconds `short:"t" long:"request-timeout" description:"Request timeout (seconds or duration, default 5s)"`
	GRPCAddress    string   `long:"grpc-address" description:"host:port serving grpc.health.v1"`
	GRPCService    string   `long:"grpc-service" description:"Service name for the gRPC health check"`

	Ctl        string   `long:"ctl" description:"Control command (default supervisorctl)"`
	CtlArgs    []string `long:"ctl-arg" description:"Extra leading control command argument (repeatable)"`
	CtlTimeout *seconds `long:"ctl-timeout" description:"Timeout of control and memory query commands (default 10s)"`

	StatusAddr string `long:"status-addr" description:"Serve /status and /healthz on this address"`
	LockDir    string `long:"lock-dir" description:"Directory of the per-program instance lock"`

	LogLevel  string `short:"l" long:"log-level" description:"Log verbosity" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogFormat string `long:"log-format" description:"Log encoding" choice:"console" choice:"json"`
	LogOutput string `long:"log-output" description:"stdout, stderr or a file path"`
}

// buildConfig layers defaults, the optional file and the command line
func buildConfig(opts flagOptions, logger logging.Logger) (*config.MonitorConfig, error) {
	cfg := config.DefaultConfig()
	if opts.Config != "" {
		loaded, err := config.LoadConfigFromFile(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyFlags(cfg, opts); err != nil {
		return nil, err
	}

	if err := config.Finalize(cfg, logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag given on the command line. Zero
// durations are rejected here since config defaults treat zero as unset.
func applyFlags(cfg *config.MonitorConfig, opts flagOptions) error {
	problems := errors.NewErrorCollection()
	positive := func(flag string, value *seconds, target *time.Duration) {
		if value == nil {
			return
		}
		if *value <= 0 {
			problems.Add(errors.NewValidationError(fmt.Sprintf("--%s must be positive", flag), nil))
			return
		}
		*target = time.Duration(*value)
	}

	positive("timeout", opts.Interval, &cfg.Interval)
	positive("request-timeout", opts.RequestTimeout, &cfg.RequestTimeout)
	positive("ctl-timeout", opts.CtlTimeout, &cfg.Control.Timeout)
	if opts.InitialDelay != nil {
		cfg.InitialDelay = time.Duration(*opts.InitialDelay)
	}

	if opts.ProgramName != "" {
		cfg.ProgramName = opts.ProgramName
	}
	if opts.MemoryMaxSize != 0 {
		cfg.MemoryLimitMB = opts.MemoryMaxSize
	}
	if opts.MemoryProbe != "" {
		cfg.MemoryProbe = opts.MemoryProbe
	}
	if opts.RequestURL != "" {
		cfg.EndpointURL = opts.RequestURL
	}
	if opts.GRPCAddress != "" {
		cfg.GRPCAddress = opts.GRPCAddress
	}
	if opts.GRPCService != "" {
		cfg.GRPCService = opts.GRPCService
	}
	if opts.Ctl != "" {
		cfg.Control.Command = opts.Ctl
	}
	if len(opts.CtlArgs) > 0 {
		cfg.Control.Args = opts.CtlArgs
	}
	if opts.StatusAddr != "" {
		cfg.StatusAddr = opts.StatusAddr
	}
	if opts.LockDir != "" {
		cfg.LockDir = opts.LockDir
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.LogOutput != "" {
		cfg.Log.Output = opts.LogOutput
	}

	if err := problems.ToError(); err != nil {
		return errors.NewConfigError("invalid command line", err)
	}
	return nil
}
