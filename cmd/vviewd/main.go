package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/hyprpal/vview/internal/config"
	"github.com/hyprpal/vview/internal/control"
	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/layout"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
	"github.com/hyprpal/vview/internal/util"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "vview", "config.yaml")

	fs := pflag.NewFlagSet("vviewd", pflag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", defaultConfig, "path to YAML config")
	logLevel := fs.String("log-level", "", "log level (trace|debug|info|warn|error), overrides the config")
	socket := fs.String("socket", "", "control socket path")
	startView := fs.String("view", "", "initial view to activate, overrides the config")
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, raw, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := util.NewLogger(util.ParseLogLevel(level))

	host := control.Host{
		Pool:      state.NewMemorySource(),
		Layout:    layout.NewBoard(),
		Variables: state.NewVariables(),
		Metrics:   metrics.NewCollector(cfg.Telemetry.Enabled),
	}
	eng := engine.New(engine.NewRegistry(), host.Pool, host.Layout, logger.With("engine"), host.Metrics)
	trackLocals(eng, host.Variables, cfg.Locals)
	for _, v := range rules.BuildViews(cfg) {
		eng.Register(v)
	}

	initial := cfg.InitialView
	if *startView != "" {
		initial = *startView
	}
	if initial != "" {
		if err := eng.Switch(initial); err != nil {
			logger.Warnf("failed to activate view %s: %v", initial, err)
		}
	}

	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfgFullPath = filepath.Clean(cfgFullPath)
	reloader := newConfigReloader(cfgFullPath, logger, eng, host.Variables, host.Metrics, cfg, raw)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(cfgFullPath)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgFullPath, reloadRequests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrlSrv, err := control.NewServer(eng, host, logger.With("control"), reloader.Reload, *socket)
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}
	errs := make(chan error, 1)
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-errs:
			if err != nil {
				return fmt.Errorf("control server exited: %w", err)
			}
			logger.Infof("daemon stopped")
			return nil
		case reason := <-reloadRequests:
			if err := reloader.Reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reloader.Reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}
