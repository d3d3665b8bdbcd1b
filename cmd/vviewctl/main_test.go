package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyprpal/vview/internal/control/client"
	"github.com/hyprpal/vview/internal/engine"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestRunCheckSuccess(t *testing.T) {
	cfg := `views:
  - name: code
    rules:
      - name: "*.go"
        score: 1
`
	path := writeTempConfig(t, cfg)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	if err := runCheck([]string{"--config", path}, &stdout, &stderr); err != nil {
		t.Fatalf("runCheck returned error: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "Configuration OK" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
	if strings.TrimSpace(stderr.String()) != "" {
		t.Fatalf("expected no stderr, got %q", stderr.String())
	}
}

func TestRunCheckFailure(t *testing.T) {
	cfg := `locals: [fill-column, fill-column]
initialView: missing
views:
  - name: ""
    rules:
      - name: "*.go"
        category: go
`
	path := writeTempConfig(t, cfg)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	err := runCheck([]string{"--config", path}, &stdout, &stderr)
	if err == nil {
		t.Fatalf("expected error from runCheck")
	}
	if strings.TrimSpace(stdout.String()) != "" {
		t.Fatalf("expected no stdout, got %q", stdout.String())
	}
	output := stderr.String()
	if !strings.Contains(output, "Configuration has 4 issue(s)") {
		t.Fatalf("expected aggregated error output, got %q", output)
	}
	if !strings.Contains(output, `locals[1]: duplicate variable "fill-column"`) {
		t.Fatalf("missing duplicate local error: %q", output)
	}
	if !strings.Contains(output, "views[0].name: cannot be empty") {
		t.Fatalf("missing view name error: %q", output)
	}
	if !strings.Contains(output, "views[0].rules[0]: must set only one of name, path or category, got name, category") {
		t.Fatalf("missing rule kind error: %q", output)
	}
	if !strings.Contains(output, `initialView: references unknown view "missing"`) {
		t.Fatalf("missing initial view error: %q", output)
	}
}

func TestRunCheckRequiresConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := runCheck(nil, &stdout, &stderr); err == nil {
		t.Fatalf("expected error without --config")
	}
}

func TestPrintExplanation(t *testing.T) {
	res := state.Resource{ID: "b1", Name: "main.go"}
	code := rules.NewView("code", 0, rules.NewNameRule("", "*.go", 1))
	explanation := client.Explanation{
		Resource: res,
		Views: []engine.ViewScore{{
			View:  "code",
			Score: 1,
			Trace: rules.TraceScore(code, &res),
		}},
		Chosen: "code",
	}
	var out bytes.Buffer
	printExplanation(&out, explanation)
	text := out.String()
	if !strings.Contains(text, "code => 1 (owns=true)") {
		t.Fatalf("missing view summary: %q", text)
	}
	if !strings.Contains(text, "Best view: code") {
		t.Fatalf("missing chosen view: %q", text)
	}

	explanation.Fallback = true
	out.Reset()
	printExplanation(&out, explanation)
	if !strings.Contains(out.String(), "stays in current view code") {
		t.Fatalf("missing fallback line: %q", out.String())
	}
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, client.ViewStatus{}, true)
	if !strings.Contains(out.String(), "Current view: (none)") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
