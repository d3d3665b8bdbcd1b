package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/layout"
	"github.com/hyprpal/vview/internal/metrics"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
	"github.com/hyprpal/vview/internal/util"
)

type testDaemon struct {
	srv   *Server
	eng   *engine.Engine
	host  Host
	calls int
}

func newTestDaemon(t *testing.T) *testDaemon {
	t.Helper()
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	host := Host{
		Pool:      state.NewMemorySource(),
		Layout:    layout.NewBoard(),
		Variables: state.NewVariables(),
		Metrics:   metrics.NewCollector(true),
	}
	eng := engine.New(nil, host.Pool, host.Layout, logger, host.Metrics)
	eng.Track(engine.Binding{
		Name:    "compile-command",
		Capture: func() any { return host.Variables.Get("compile-command") },
		Apply:   func(v any) { host.Variables.Set("compile-command", v) },
	})
	eng.Register(rules.NewView("code", 0, rules.NewNameRule("", "*.go", 1)))
	eng.Register(rules.NewView("notes", 0, rules.NewCategoryRule("", "org-mode", 1)))
	d := &testDaemon{eng: eng, host: host}
	srv, err := NewServer(eng, host, logger, func(string) error {
		d.calls++
		return nil
	}, "/tmp/vview-test.sock")
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	d.srv = srv
	return d
}

func roundTrip(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	var (
		wg   sync.WaitGroup
		resp Response
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := json.NewEncoder(clientConn).Encode(req); err != nil {
			t.Errorf("encode request: %v", err)
			return
		}
		if err := json.NewDecoder(clientConn).Decode(&resp); err != nil {
			t.Errorf("decode response: %v", err)
		}
	}()

	srv.handle(context.Background(), serverConn)
	wg.Wait()
	return resp
}

func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	if resp.Status != StatusOK {
		t.Fatalf("expected ok status, got %s (error=%s)", resp.Status, resp.Error)
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("encode data: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestViewSwitchAppliesIncomingState(t *testing.T) {
	d := newTestDaemon(t)
	d.host.Variables.Set("compile-command", "go test")
	d.host.Layout.Set("code-layout")

	resp := roundTrip(t, d.srv, Request{Action: ActionViewSwitch, Params: map[string]any{"name": "notes"}})
	var result SwitchResult
	decodeData(t, resp, &result)
	if result.View != "notes" || !result.Switched {
		t.Fatalf("unexpected switch result %+v", result)
	}
	if result.Layout != "" {
		t.Fatalf("notes was registered with a neutral layout, got %q", result.Layout)
	}
	if result.Variables["compile-command"] != nil {
		t.Fatalf("notes captured no compile-command, got %v", result.Variables)
	}

	resp = roundTrip(t, d.srv, Request{Action: ActionViewSwitch, Params: map[string]any{"name": "code"}})
	decodeData(t, resp, &result)
	if result.Layout != "code-layout" || result.Variables["compile-command"] != "go test" {
		t.Fatalf("code state not restored: %+v", result)
	}
}

func TestViewSwitchUnknownSuggests(t *testing.T) {
	d := newTestDaemon(t)
	resp := roundTrip(t, d.srv, Request{Action: ActionViewSwitch, Params: map[string]any{"name": "ntoes"}})
	if resp.Status != StatusError || !strings.Contains(resp.Error, `did you mean "notes"`) {
		t.Fatalf("expected suggestion error, got %+v", resp)
	}
	resp = roundTrip(t, d.srv, Request{Action: ActionViewSwitch})
	if resp.Status != StatusError || resp.Error != "missing view name" {
		t.Fatalf("expected missing name error, got %+v", resp)
	}
}

func TestResourceActivateSwitchesView(t *testing.T) {
	d := newTestDaemon(t)
	open := Request{Action: ActionResourceOpen, Params: map[string]any{
		"resource": map[string]any{"id": "7", "name": "todo.org", "category": "org-mode"},
	}}
	if resp := roundTrip(t, d.srv, open); resp.Status != StatusOK {
		t.Fatalf("open failed: %+v", resp)
	}

	resp := roundTrip(t, d.srv, Request{Action: ActionResourceActivate, Params: map[string]any{"id": "7"}})
	var result SwitchResult
	decodeData(t, resp, &result)
	if !result.Switched || result.View != "notes" {
		t.Fatalf("expected automatic switch to notes, got %+v", result)
	}

	resp = roundTrip(t, d.srv, Request{Action: ActionResourceActivate, Params: map[string]any{"id": "missing"}})
	if resp.Status != StatusError {
		t.Fatalf("expected error for unknown resource, got %+v", resp)
	}

	resp = roundTrip(t, d.srv, Request{Action: ActionViewMembers})
	var members MembersResult
	decodeData(t, resp, &members)
	if members.View != "notes" || len(members.Resources) != 1 || members.Resources[0].ID != "7" {
		t.Fatalf("unexpected members %+v", members)
	}

	resp = roundTrip(t, d.srv, Request{Action: ActionResourceExplain, Params: map[string]any{"id": "7"}})
	var exp Explanation
	decodeData(t, resp, &exp)
	if exp.Chosen != "notes" || exp.Fallback || len(exp.Views) != 2 {
		t.Fatalf("unexpected explanation %+v", exp)
	}

	if resp := roundTrip(t, d.srv, Request{Action: ActionResourceClose, Params: map[string]any{"id": "7"}}); resp.Status != StatusOK {
		t.Fatalf("close failed: %+v", resp)
	}
	var inspect InspectorSnapshot
	decodeData(t, roundTrip(t, d.srv, Request{Action: ActionInspect}), &inspect)
	if len(inspect.Resources) != 0 || inspect.Status.Current != "notes" || len(inspect.Switches) != 1 {
		t.Fatalf("unexpected inspector payload %+v", inspect)
	}
	if len(inspect.Tracked) != 1 || inspect.Tracked[0] != "compile-command" {
		t.Fatalf("unexpected tracked variables %v", inspect.Tracked)
	}
}

func TestViewUnregisterAndList(t *testing.T) {
	d := newTestDaemon(t)
	resp := roundTrip(t, d.srv, Request{Action: ActionViewUnregister, Params: map[string]any{"name": "code"}})
	var status ViewStatus
	decodeData(t, resp, &status)
	if status.Current != "notes" || len(status.Views) != 1 || len(status.History) != 1 {
		t.Fatalf("unexpected status after unregister %+v", status)
	}
	resp = roundTrip(t, d.srv, Request{Action: ActionViewUnregister, Params: map[string]any{"name": "code"}})
	if resp.Status != StatusError || !strings.Contains(resp.Error, "unknown view") {
		t.Fatalf("expected unknown view error, got %+v", resp)
	}
}

func TestReloadAndUnknownAction(t *testing.T) {
	d := newTestDaemon(t)
	if resp := roundTrip(t, d.srv, Request{Action: ActionReload}); resp.Status != StatusOK {
		t.Fatalf("reload failed: %+v", resp)
	}
	if d.calls != 1 {
		t.Fatalf("expected reload callback once, got %d", d.calls)
	}
	d.srv.reload = func(string) error { return errors.New("bad config") }
	if resp := roundTrip(t, d.srv, Request{Action: ActionReload}); resp.Error != "bad config" {
		t.Fatalf("expected reload error, got %+v", resp)
	}
	if resp := roundTrip(t, d.srv, Request{Action: "bogus"}); resp.Status != StatusError {
		t.Fatalf("expected error for unknown action, got %+v", resp)
	}
}

func TestVariableAndLayoutSet(t *testing.T) {
	d := newTestDaemon(t)
	if resp := roundTrip(t, d.srv, Request{Action: ActionVariableSet, Params: map[string]any{"name": "compile-command", "value": "make"}}); resp.Status != StatusOK {
		t.Fatalf("variable.set failed: %+v", resp)
	}
	if d.host.Variables.Get("compile-command") != "make" {
		t.Fatalf("variable not stored")
	}
	if resp := roundTrip(t, d.srv, Request{Action: ActionLayoutSet, Params: map[string]any{"data": 3}}); resp.Status != StatusError {
		t.Fatalf("expected error for non-string layout")
	}
	if resp := roundTrip(t, d.srv, Request{Action: ActionLayoutSet, Params: map[string]any{"data": "vsplit"}}); resp.Status != StatusOK {
		t.Fatalf("layout.set failed: %+v", resp)
	}
	if d.host.Layout.Current() != "vsplit" {
		t.Fatalf("layout not stored")
	}
}

func TestResourceExplainReportsDecodeErrors(t *testing.T) {
	d := newTestDaemon(t)
	resp := roundTrip(t, d.srv, Request{Action: ActionResourceExplain, Params: map[string]any{"resource": "main.go"}})
	if resp.Status != StatusError || !strings.Contains(resp.Error, "decode resource") {
		t.Fatalf("expected decode error, got %+v", resp)
	}
	resp = roundTrip(t, d.srv, Request{Action: ActionResourceExplain})
	if resp.Status != StatusError || !strings.Contains(resp.Error, "missing resource") {
		t.Fatalf("expected missing resource error, got %+v", resp)
	}

	resp = roundTrip(t, d.srv, Request{Action: ActionResourceExplain, Params: map[string]any{
		"resource": map[string]any{"id": "tmp", "name": "scratch.go"},
	}})
	var explanation Explanation
	decodeData(t, resp, &explanation)
	if explanation.Chosen != "code" || explanation.Fallback {
		t.Fatalf("unexpected explanation %+v", explanation)
	}
}

func TestInspectReportsActiveResource(t *testing.T) {
	d := newTestDaemon(t)
	if _, err := d.host.Pool.Open(state.Resource{ID: "b1", Name: "main.go"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if resp := roundTrip(t, d.srv, Request{Action: ActionResourceActivate, Params: map[string]any{"id": "b1"}}); resp.Status != StatusOK {
		t.Fatalf("activate failed: %+v", resp)
	}

	var snap InspectorSnapshot
	decodeData(t, roundTrip(t, d.srv, Request{Action: ActionInspect}), &snap)
	if snap.Active != "b1" || len(snap.Resources) != 1 {
		t.Fatalf("unexpected inspector payload %+v", snap)
	}

	if _, err := d.host.Pool.Close("b1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	var after InspectorSnapshot
	decodeData(t, roundTrip(t, d.srv, Request{Action: ActionInspect}), &after)
	if after.Active != "" || len(after.Resources) != 0 {
		t.Fatalf("closed resource still reported: %+v", after)
	}
}
