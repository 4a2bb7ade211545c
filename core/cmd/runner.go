// Package cmd runs a bot process: config, bootstrap, signal handling.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/suggestbot/core/config"
	"github.com/m3rciful/suggestbot/core/logger"
	coretelegram "github.com/m3rciful/suggestbot/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
// Apps holding resources may also implement io.Closer.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals cancel the run; defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// ConfigPath resolves the config file location from the environment or the
// default.
func (o Options) ConfigPath() (string, error) {
	env := cmp.Or(o.ConfigEnvVar, defaultConfigEnv)
	if p := cmp.Or(os.Getenv(env), o.DefaultConfigPath); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

func (o Options) validate() error {
	switch {
	case o.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case o.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}
	return nil
}

// Run loads configuration, bootstraps the Telegram app, and runs the bot
// until a signal arrives.
func Run(opts Options) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}
	startedAt := time.Now()

	cfg, err := load(opts)
	if err != nil {
		return err
	}
	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		err = errors.Join(err, release(opts, application))
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	runOpts.OnStart = announceReady(runOpts.OnStart, startedAt)
	runOpts.OnStop = announceShutdown(runOpts.OnStop)

	ctx, cancel := signal.NotifyContext(context.Background(), signalsOf(opts)...)
	defer cancel()
	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

func load(opts Options) (ConfigCarrier, error) {
	path, err := opts.ConfigPath()
	if err != nil {
		return nil, err
	}
	// The structured logger is configured by Bootstrap, after this point.
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return nil, errors.New("cmd: loaded config is missing core configuration")
	}
	return cfg, nil
}

// release closes the app, when it holds resources, and then flushes the
// logger. Logger errors go to the standard log since the sink is gone.
func release(opts Options, application TelegramApp) error {
	var err error
	if closer, ok := application.(io.Closer); ok {
		err = closer.Close()
	}
	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if lerr := shutdown(); lerr != nil {
		log.Printf("logger shutdown error: %v", lerr)
	}
	return err
}

func signalsOf(opts Options) []os.Signal {
	if len(opts.Signals) > 0 {
		return opts.Signals
	}
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

type hook = func(ctx context.Context, rt coretelegram.Runtime) error

func announceReady(next hook, startedAt time.Time) hook {
	return func(ctx context.Context, rt coretelegram.Runtime) error {
		if next != nil {
			if err := next(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "app.ready",
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
}

func announceShutdown(next hook) hook {
	return func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "app.shutdown")
		if next == nil {
			return nil
		}
		return next(ctx, rt)
	}
}
