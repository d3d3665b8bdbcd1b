package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hyprpal/vview/internal/control"
	"github.com/hyprpal/vview/internal/state"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running vview daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	ViewStatus        = control.ViewStatus
	SwitchResult      = control.SwitchResult
	MembersResult     = control.MembersResult
	Explanation       = control.Explanation
	InspectorSnapshot = control.InspectorSnapshot
	MetricsSnapshot   = control.MetricsSnapshot
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Views retrieves the current view, the history and the registered views.
func (c *Client) Views(ctx context.Context) (ViewStatus, error) {
	var status ViewStatus
	if err := c.do(ctx, control.Request{Action: control.ActionViewList}, &status); err != nil {
		return ViewStatus{}, err
	}
	return status, nil
}

// Switch makes name the current view.
func (c *Client) Switch(ctx context.Context, name string) (SwitchResult, error) {
	if name == "" {
		return SwitchResult{}, errors.New("view name cannot be empty")
	}
	var result SwitchResult
	req := control.Request{Action: control.ActionViewSwitch, Params: map[string]any{"name": name}}
	if err := c.do(ctx, req, &result); err != nil {
		return SwitchResult{}, err
	}
	return result, nil
}

// Unregister removes a view until the next reload.
func (c *Client) Unregister(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("view name cannot be empty")
	}
	return c.do(ctx, control.Request{Action: control.ActionViewUnregister, Params: map[string]any{"name": name}}, nil)
}

// Members lists the resources owned by name, or by the current view when
// name is empty.
func (c *Client) Members(ctx context.Context, name string) (MembersResult, error) {
	params := map[string]any{}
	if name != "" {
		params["name"] = name
	}
	var result MembersResult
	if err := c.do(ctx, control.Request{Action: control.ActionViewMembers, Params: params}, &result); err != nil {
		return MembersResult{}, err
	}
	return result, nil
}

// Open reports a resource to the daemon.
func (c *Client) Open(ctx context.Context, res state.Resource) error {
	if res.ID == "" {
		return errors.New("resource id cannot be empty")
	}
	return c.do(ctx, control.Request{Action: control.ActionResourceOpen, Params: map[string]any{"resource": res}}, nil)
}

// Close forgets a resource.
func (c *Client) Close(ctx context.Context, id string) error {
	return c.do(ctx, control.Request{Action: control.ActionResourceClose, Params: map[string]any{"id": id}}, nil)
}

// Activate marks a resource as displayed, switching views when needed.
func (c *Client) Activate(ctx context.Context, id string) (SwitchResult, error) {
	var result SwitchResult
	if err := c.do(ctx, control.Request{Action: control.ActionResourceActivate, Params: map[string]any{"id": id}}, &result); err != nil {
		return SwitchResult{}, err
	}
	return result, nil
}

// Explain asks the daemon how it scores a known resource.
func (c *Client) Explain(ctx context.Context, id string) (Explanation, error) {
	var exp Explanation
	if err := c.do(ctx, control.Request{Action: control.ActionResourceExplain, Params: map[string]any{"id": id}}, &exp); err != nil {
		return Explanation{}, err
	}
	return exp, nil
}

// SetVariable updates the daemon's copy of a tracked variable.
func (c *Client) SetVariable(ctx context.Context, name string, value any) error {
	return c.do(ctx, control.Request{Action: control.ActionVariableSet, Params: map[string]any{"name": name, "value": value}}, nil)
}

// SetLayout reports the host's present window arrangement.
func (c *Client) SetLayout(ctx context.Context, data string) error {
	return c.do(ctx, control.Request{Action: control.ActionLayoutSet, Params: map[string]any{"data": data}}, nil)
}

// Inspect retrieves the daemon's inspector payload.
func (c *Client) Inspect(ctx context.Context) (InspectorSnapshot, error) {
	var snap InspectorSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionInspect}, &snap); err != nil {
		return InspectorSnapshot{}, err
	}
	return snap, nil
}

// Metrics retrieves the daemon's counters.
func (c *Client) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	var snap MetricsSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionMetrics}, &snap); err != nil {
		return MetricsSnapshot{}, err
	}
	return snap, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
