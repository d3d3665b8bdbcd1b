package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/layout"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/state"
	"github.com/hyprpal/vview/internal/util"
)

// Host groups the host-facing stores the daemon keeps alongside the engine.
type Host struct {
	Pool      *state.MemorySource
	Layout    *layout.Board
	Variables *state.Variables
	Metrics   *metrics.Collector
}

// Server hosts the vview control socket and serves requests.
type Server struct {
	engine     *engine.Engine
	host       Host
	logger     *util.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server listening on socketPath, or on the
// default path when socketPath is empty.
func NewServer(eng *engine.Engine, host Host, logger *util.Logger, reload func(reason string) error, socketPath string) (*Server, error) {
	if socketPath == "" {
		path, err := DefaultSocketPath()
		if err != nil {
			return nil, err
		}
		socketPath = path
	}
	if host.Pool == nil {
		host.Pool = state.NewMemorySource()
	}
	if host.Layout == nil {
		host.Layout = layout.NewBoard()
	}
	if host.Variables == nil {
		host.Variables = state.NewVariables()
	}
	return &Server{
		engine:     eng,
		host:       host,
		logger:     logger,
		reload:     reload,
		socketPath: socketPath,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	s.logger.Debugf("control request %s", req.Action)
	data, err := s.dispatch(ctx, req)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, data)
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Action {
	case ActionViewList, ActionViewCurrent:
		return s.viewStatus(), nil
	case ActionViewSwitch:
		return s.handleViewSwitch(req.Params)
	case ActionViewUnregister:
		return s.handleViewUnregister(req.Params)
	case ActionViewMembers:
		return s.handleViewMembers(ctx, req.Params)
	case ActionResourceOpen:
		return s.handleResourceOpen(req.Params)
	case ActionResourceClose:
		return s.handleResourceClose(req.Params)
	case ActionResourceActivate:
		return s.handleResourceActivate(ctx, req.Params)
	case ActionResourceExplain:
		return s.handleResourceExplain(req.Params)
	case ActionVariableSet:
		return s.handleVariableSet(req.Params)
	case ActionLayoutSet:
		return s.handleLayoutSet(req.Params)
	case ActionInspect:
		return s.inspect(), nil
	case ActionMetrics:
		return s.host.Metrics.Snapshot(), nil
	case ActionReload:
		return s.handleReload()
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
}

func (s *Server) viewStatus() ViewStatus {
	status := ViewStatus{History: s.engine.History()}
	if cur := s.engine.Current(); cur != nil {
		status.Current = cur.Name
	}
	for i, v := range s.engine.Views() {
		status.Views = append(status.Views, ViewInfo{Name: v.Name, Weight: v.Weight, Rules: len(v.Rules), Rank: i})
	}
	return status
}

func (s *Server) handleViewSwitch(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, errors.New("missing view name")
	}
	if err := s.engine.Switch(name); err != nil {
		return nil, err
	}
	return s.switchResult(true), nil
}

func (s *Server) handleViewUnregister(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, errors.New("missing view name")
	}
	if !s.engine.Unregister(name) {
		return nil, &engine.UnknownViewError{Name: name}
	}
	return s.viewStatus(), nil
}

func (s *Server) handleViewMembers(ctx context.Context, params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		if cur := s.engine.Current(); cur != nil {
			name = cur.Name
		}
	}
	if name == "" {
		return nil, errors.New("missing view name")
	}
	members, err := s.engine.Members(ctx, name)
	if err != nil {
		return nil, err
	}
	return MembersResult{View: name, Resources: members}, nil
}

func (s *Server) handleResourceOpen(params map[string]any) (any, error) {
	var res state.Resource
	if err := decodeParam(params, "resource", &res); err != nil {
		return nil, err
	}
	if _, err := s.host.Pool.Open(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) handleResourceClose(params map[string]any) (any, error) {
	id, _ := params["id"].(string)
	if id == "" {
		return nil, errors.New("missing resource id")
	}
	removed, err := s.host.Pool.Close(id)
	if err != nil {
		return nil, fmt.Errorf("close %q: %w", id, err)
	}
	return removed, nil
}

func (s *Server) handleResourceActivate(ctx context.Context, params map[string]any) (any, error) {
	id, _ := params["id"].(string)
	if id == "" {
		return nil, errors.New("missing resource id")
	}
	if _, ok := s.host.Pool.Activate(id); !ok {
		return nil, fmt.Errorf("resource %q not found", id)
	}
	switched, err := s.engine.ActivateResource(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.switchResult(switched), nil
}

func (s *Server) handleResourceExplain(params map[string]any) (any, error) {
	id, _ := params["id"].(string)
	var res state.Resource
	if id != "" {
		found, ok := s.host.Pool.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("resource %q not found", id)
		}
		res = found
	} else if err := decodeParam(params, "resource", &res); err != nil {
		return nil, fmt.Errorf("explain needs an id or a resource: %w", err)
	}
	return s.engine.Explain(res), nil
}

func (s *Server) handleVariableSet(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, errors.New("missing variable name")
	}
	s.host.Variables.Set(name, params["value"])
	return nil, nil
}

func (s *Server) handleLayoutSet(params map[string]any) (any, error) {
	data, ok := params["data"].(string)
	if !ok {
		return nil, errors.New("layout data must be a string")
	}
	s.host.Layout.Set(data)
	return nil, nil
}

func (s *Server) handleReload() (any, error) {
	if s.reload == nil {
		return nil, errors.New("reload not supported")
	}
	if err := s.reload("control request"); err != nil {
		return nil, err
	}
	return s.viewStatus(), nil
}

func (s *Server) switchResult(switched bool) SwitchResult {
	result := SwitchResult{
		Switched:  switched,
		Layout:    s.host.Layout.Current(),
		Variables: s.host.Variables.Snapshot(),
	}
	if cur := s.engine.Current(); cur != nil {
		result.View = cur.Name
	}
	return result
}

func (s *Server) inspect() InspectorSnapshot {
	snap := InspectorSnapshot{
		Status:    s.viewStatus(),
		Tracked:   s.engine.Tracked(),
		Variables: s.host.Variables.Snapshot(),
		Layout:    s.host.Layout.Current(),
		Switches:  s.engine.SwitchHistory(),
	}
	world := s.host.Pool.Snapshot()
	snap.Resources = world.Resources
	if active := world.ActiveResource(); active != nil {
		snap.Active = active.ID
	}
	return snap
}

func decodeParam(params map[string]any, key string, out any) error {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fmt.Errorf("missing %s", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
