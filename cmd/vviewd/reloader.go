package main

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hyprpal/vview/internal/config"
	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
	"github.com/hyprpal/vview/internal/util"
)

type configReloader struct {
	mu             sync.Mutex
	path           string
	logger         *util.Logger
	engine         *engine.Engine
	variables      *state.Variables
	metrics        *metrics.Collector
	lastConfig     *config.Config
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, eng *engine.Engine, vars *state.Variables, collector *metrics.Collector, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		engine:         eng,
		variables:      vars,
		metrics:        collector,
		lastConfig:     cfg,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload re-reads the config file and applies it. A rejected file leaves the
// previous views in place and logs its diff against the last valid one.
// Concurrent callers are applied one at a time.
func (r *configReloader) Reload(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}
	if lintErrs := cfg.Lint(); len(lintErrs) > 0 {
		r.logLintErrors(lintErrs)
		r.logDiff(raw)
		return errors.New(lintErrs[0].Error())
	}

	if changes := config.DiffConfigs(r.lastConfig, cfg); changes == "" {
		r.logger.Infof("config unchanged, reapplying")
	} else {
		r.logger.Infof("applying config changes:\n%s", changes)
	}
	r.logger.SetLevel(util.ParseLogLevel(cfg.LogLevel))
	trackLocals(r.engine, r.variables, cfg.Locals)
	r.engine.ReloadViews(rules.BuildViews(cfg))
	if r.metrics != nil {
		r.metrics.SetEnabled(cfg.Telemetry.Enabled)
	}

	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}

func (r *configReloader) logLintErrors(errs []config.LintError) {
	r.logger.Warnf("config validation failed with %d issue(s):", len(errs))
	for _, lintErr := range errs {
		r.logger.Warnf(" - %s", lintErr.Error())
	}
}

// trackLocals binds each named variable to the host-reported store.
func trackLocals(eng *engine.Engine, vars *state.Variables, names []string) {
	for _, name := range names {
		name := name
		eng.Track(engine.Binding{
			Name:    name,
			Capture: func() any { return vars.Get(name) },
			Apply:   func(v any) { vars.Set(name, v) },
		})
	}
}
