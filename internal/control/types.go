package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/state"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionViewList         = "view.list"
	ActionViewCurrent      = "view.current"
	ActionViewSwitch       = "view.switch"
	ActionViewUnregister   = "view.unregister"
	ActionViewMembers      = "view.members"
	ActionResourceOpen     = "resource.open"
	ActionResourceClose    = "resource.close"
	ActionResourceActivate = "resource.activate"
	ActionResourceExplain  = "resource.explain"
	ActionVariableSet      = "variable.set"
	ActionLayoutSet        = "layout.set"
	ActionInspect          = "inspect"
	ActionMetrics          = "metrics"
	ActionReload           = "reload"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ViewInfo summarizes one registered view.
type ViewInfo struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Rules  int    `json:"rules"`
	Rank   int    `json:"rank"`
}

// ViewStatus describes the current view, the history and the registered set.
type ViewStatus struct {
	Current string     `json:"current,omitempty"`
	History []string   `json:"history"`
	Views   []ViewInfo `json:"views"`
}

// SwitchResult is returned by view.switch and resource.activate. Layout and
// Variables are what the host should apply after the switch.
type SwitchResult struct {
	Switched  bool           `json:"switched"`
	View      string         `json:"view,omitempty"`
	Layout    string         `json:"layout,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// MembersResult lists the resources a view owns.
type MembersResult struct {
	View      string           `json:"view"`
	Resources []state.Resource `json:"resources"`
}

// Explanation mirrors engine.Explanation.
type Explanation = engine.Explanation

// InspectorSnapshot captures the daemon's state for debugging.
type InspectorSnapshot struct {
	Status    ViewStatus            `json:"status"`
	Resources []state.Resource      `json:"resources,omitempty"`
	Active    string                `json:"active,omitempty"`
	Tracked   []string              `json:"tracked,omitempty"`
	Variables map[string]any        `json:"variables,omitempty"`
	Layout    string                `json:"layout,omitempty"`
	Switches  []engine.SwitchRecord `json:"switches,omitempty"`
}

// MetricsSnapshot mirrors the collector payload.
type MetricsSnapshot = metrics.Snapshot

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("VVIEW_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "vview", SocketFileName), nil
}
