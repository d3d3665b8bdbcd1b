package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyprpal/vview/internal/layout"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
	"github.com/hyprpal/vview/internal/util"
)

// ErrUnknownView is returned when an operation names a view that is not
// registered.
var ErrUnknownView = errors.New("unknown view")

// UnknownViewError carries the missing name and the closest registered name.
type UnknownViewError struct {
	Name       string
	Suggestion string
}

func (e *UnknownViewError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown view %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown view %q", e.Name)
}

func (e *UnknownViewError) Is(target error) bool {
	return target == ErrUnknownView
}

// Environment saves and restores the host's window arrangement.
type Environment interface {
	CaptureLayout() layout.Snapshot
	CaptureNeutralLayout() layout.Snapshot
	RestoreLayout(layout.Snapshot)
}

// Binding tracks one process-wide variable whose value is saved per view.
type Binding struct {
	Name    string
	Capture func() any
	Apply   func(value any)
}

// Trigger describes what caused a switch.
type Trigger string

const (
	TriggerCommand  Trigger = "command"
	TriggerResource Trigger = "resource"
)

type nopEnvironment struct{}

func (nopEnvironment) CaptureLayout() layout.Snapshot        { return layout.Snapshot{} }
func (nopEnvironment) CaptureNeutralLayout() layout.Snapshot { return layout.Snapshot{} }
func (nopEnvironment) RestoreLayout(layout.Snapshot)         {}

// Engine is the lifecycle controller. It owns the registry and serializes
// every registration, unregistration and switch so that the save, promote
// and load steps of a switch never interleave.
type Engine struct {
	source  state.DataSource
	env     Environment
	logger  *util.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	registry  *Registry
	bindings  []Binding
	switchLog *switchLog
	now       func() time.Time
}

// New creates an engine around registry. A nil registry starts empty and a
// nil environment disables layout capture.
func New(registry *Registry, source state.DataSource, env Environment, logger *util.Logger, collector *metrics.Collector) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	if env == nil {
		env = nopEnvironment{}
	}
	return &Engine{
		source:    source,
		env:       env,
		logger:    logger,
		metrics:   collector,
		registry:  registry,
		switchLog: newSwitchLog(0),
		now:       time.Now,
	}
}

// Track adds a variable binding saved and restored on every switch. A
// second binding with an already tracked name is ignored.
func (e *Engine) Track(b Binding) bool {
	if b.Name == "" || b.Capture == nil || b.Apply == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.bindings {
		if existing.Name == b.Name {
			return false
		}
	}
	e.bindings = append(e.bindings, b)
	return true
}

// Tracked returns the tracked variable names in tracking order.
func (e *Engine) Tracked() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.bindings))
	for i, b := range e.bindings {
		names[i] = b.Name
	}
	return names
}

// Register adds v to the registry and captures its initial state: the
// present value of every tracked variable and a neutral layout. Registering
// a name that already exists replaces its rules and weight only.
func (e *Engine) Register(v *rules.View) {
	if v == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registerLocked(v)
}

func (e *Engine) registerLocked(v *rules.View) {
	if !e.registry.insert(v) {
		e.logger.Infof("redefined view %s (%d rules, weight %d)", v.Name, len(v.Rules), v.Weight)
		return
	}
	v.State = rules.Snapshot{
		Variables: e.captureVariablesLocked(),
		Layout:    e.env.CaptureNeutralLayout(),
	}
	e.metrics.RecordRegistration(v.Name)
	e.logger.Infof("registered view %s (%d rules, weight %d)", v.Name, len(v.Rules), v.Weight)
}

// Unregister removes name from the registry and the history. It reports
// whether anything was removed.
func (e *Engine) Unregister(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unregisterLocked(name)
}

func (e *Engine) unregisterLocked(name string) bool {
	if !e.registry.remove(name) {
		return false
	}
	e.logger.Infof("unregistered view %s", name)
	return true
}

// Reset forgets every view and the history. Tracked bindings are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Reset()
	e.switchLog = newSwitchLog(0)
	e.logger.Infof("registry reset")
}

// ReloadViews replaces the registered view set: names absent from views
// are unregistered, known names are redefined in place and new names are
// registered. The history order of surviving views is kept.
func (e *Engine) ReloadViews(views []*rules.View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wanted := make(map[string]struct{}, len(views))
	for _, v := range views {
		if v != nil {
			wanted[v.Name] = struct{}{}
		}
	}
	for _, name := range e.registry.History() {
		if _, ok := wanted[name]; !ok {
			e.unregisterLocked(name)
		}
	}
	for _, v := range views {
		if v != nil {
			e.registerLocked(v)
		}
	}
	e.logger.Infof("reloaded %d views", e.registry.Len())
}

// Switch makes name the current view. The outgoing view's variables and
// layout are saved before the history changes and the incoming view's are
// applied after.
func (e *Engine) Switch(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	target, ok := e.registry.Lookup(name)
	if !ok {
		return e.unknownViewLocked(name)
	}
	e.switchLocked(target, TriggerCommand, "")
	return nil
}

// SwitchResource switches to the view that best owns res when it differs
// from the current one. It reports whether a switch happened; resources no
// view can take are ignored.
func (e *Engine) SwitchResource(res *state.Resource) bool {
	if res == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	best := e.registry.BestView(res)
	if best == nil {
		e.logger.Debugf("no view for resource %s", res.Name)
		return false
	}
	if rules.Owns(best, res) {
		e.metrics.RecordOwnership(best.Name)
	}
	if current := e.registry.Current(); current != nil && current.Name == best.Name {
		e.logger.Tracef("resource %s stays in view %s", res.Name, best.Name)
		return false
	}
	e.switchLocked(best, TriggerResource, res.ID)
	return true
}

// ActivateResource looks up id in the live pool and switches to its best
// view. Unknown ids return an error; see SwitchResource for the result.
func (e *Engine) ActivateResource(ctx context.Context, id string) (bool, error) {
	world, err := e.world(ctx)
	if err != nil {
		return false, err
	}
	res := world.FindResource(id)
	if res == nil {
		return false, fmt.Errorf("resource %q not found", id)
	}
	return e.SwitchResource(res), nil
}

func (e *Engine) switchLocked(target *rules.View, trigger Trigger, resourceID string) {
	from := ""
	if outgoing := e.registry.Current(); outgoing != nil {
		from = outgoing.Name
		outgoing.State.Variables = e.captureVariablesLocked()
		outgoing.State.Layout = e.env.CaptureLayout()
	}
	e.registry.promote(target.Name)
	for _, b := range e.bindings {
		if value, ok := target.State.Variables[b.Name]; ok {
			b.Apply(value)
		}
	}
	if target.State.Layout.Neutral() {
		e.logger.Debugf("view %s has no saved layout, restoring neutral layout", target.Name)
	}
	e.env.RestoreLayout(target.State.Layout)

	e.switchLog.record(SwitchRecord{
		Timestamp: e.now(),
		From:      from,
		To:        target.Name,
		Trigger:   trigger,
		Resource:  resourceID,
	})
	e.metrics.RecordSwitch(target.Name, trigger == TriggerResource)
	if from == "" {
		e.logger.Infof("switched to view %s (%s)", target.Name, trigger)
		return
	}
	e.logger.Infof("switched from view %s to %s (%s)", from, target.Name, trigger)
}

func (e *Engine) captureVariablesLocked() map[string]any {
	values := make(map[string]any, len(e.bindings))
	for _, b := range e.bindings {
		values[b.Name] = b.Capture()
	}
	return values
}

func (e *Engine) unknownViewLocked(name string) error {
	names := make([]string, 0, e.registry.Len())
	for _, v := range e.registry.Views() {
		names = append(names, v.Name)
	}
	return &UnknownViewError{Name: name, Suggestion: suggest(name, names)}
}

// Current returns the current view, or nil before any view is registered.
// The returned view must not be mutated.
func (e *Engine) Current() *rules.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Current()
}

// Lookup returns the registered view called name.
func (e *Engine) Lookup(name string) (*rules.View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Lookup(name)
}

// History returns the activation history, most recent first.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.History()
}

// Views returns the registered views in history order.
func (e *Engine) Views() []*rules.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Views()
}

// BestView returns the view that should own res; see Registry.BestView.
func (e *Engine) BestView(res *state.Resource) *rules.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.BestView(res)
}

// Members enumerates the live pool and returns the resources owned by the
// view called name.
func (e *Engine) Members(ctx context.Context, name string) ([]state.Resource, error) {
	e.mu.Lock()
	v, ok := e.registry.Lookup(name)
	if !ok {
		err := e.unknownViewLocked(name)
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()
	world, err := e.world(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Members(v, world.Resources), nil
}

// ViewScore is one view's standing for an explained resource.
type ViewScore struct {
	View  string           `json:"view"`
	Score int              `json:"score"`
	Rank  int              `json:"rank"`
	Trace rules.ScoreTrace `json:"trace"`
}

// Explanation describes how BestView decided for a resource.
type Explanation struct {
	Resource state.Resource `json:"resource"`
	Views    []ViewScore    `json:"views"`
	Chosen   string         `json:"chosen,omitempty"`
	Fallback bool           `json:"fallback"`
}

// Explain scores res against every registered view in history order and
// reports the view BestView picks.
func (e *Engine) Explain(res state.Resource) Explanation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Explanation{Resource: res}
	for i, v := range e.registry.Views() {
		trace := rules.TraceScore(v, &res)
		out.Views = append(out.Views, ViewScore{View: v.Name, Score: trace.Score, Rank: i, Trace: trace})
	}
	best := e.registry.BestView(&res)
	if best != nil {
		out.Chosen = best.Name
		out.Fallback = !rules.Owns(best, &res)
	}
	return out
}

// SwitchHistory returns the recorded switches, oldest first.
func (e *Engine) SwitchHistory() []SwitchRecord {
	e.mu.Lock()
	log := e.switchLog
	e.mu.Unlock()
	return log.snapshot()
}

func (e *Engine) world(ctx context.Context) (*state.World, error) {
	if e.source == nil {
		return &state.World{}, nil
	}
	world, err := state.NewWorld(ctx, e.source)
	if err != nil {
		return nil, fmt.Errorf("enumerate resources: %w", err)
	}
	return world, nil
}
