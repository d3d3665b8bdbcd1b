package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/hyprpal/vview/internal/config"
	"github.com/hyprpal/vview/internal/control/client"
	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := pflag.NewFlagSet("vviewctl", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SetInterspersed(false)
	socket := fs.String("socket", "", "path to vview control socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  view list|current\t\tshow registered views and history")
		fmt.Fprintln(out, "  view switch <name>\t\tactivate a view")
		fmt.Fprintln(out, "  view unregister <name>\tremove a view")
		fmt.Fprintln(out, "  view members [name]\t\tlist resources a view owns")
		fmt.Fprintln(out, "  open --id ID [--name N] [--path P] [--category C]")
		fmt.Fprintln(out, "  close <id>\t\t\tremove a resource from the pool")
		fmt.Fprintln(out, "  activate <id>\t\tactivate a resource and switch to its view")
		fmt.Fprintln(out, "  explain <id>\t\t\tshow how each view scores a resource")
		fmt.Fprintln(out, "  var set <name> <value>\tset a tracked variable")
		fmt.Fprintln(out, "  layout set <data>\t\treplace the current layout")
		fmt.Fprintln(out, "  inspect\t\t\tdump daemon state as JSON")
		fmt.Fprintln(out, "  metrics\t\t\tdump switch counters as JSON")
		fmt.Fprintln(out, "  reload\t\t\ttrigger a live config reload")
		fmt.Fprintln(out, "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], os.Stdout, os.Stderr)
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	out := os.Stdout
	switch args[0] {
	case "view":
		return runView(ctx, cli, args[1:], out)
	case "open":
		return runOpen(ctx, cli, args[1:], out)
	case "close":
		if len(args) < 2 {
			return fmt.Errorf("close requires a resource id")
		}
		if err := cli.Close(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Closed %s\n", args[1])
		return nil
	case "activate":
		if len(args) < 2 {
			return fmt.Errorf("activate requires a resource id")
		}
		result, err := cli.Activate(ctx, args[1])
		if err != nil {
			return err
		}
		printSwitch(out, result)
		return nil
	case "explain":
		if len(args) < 2 {
			return fmt.Errorf("explain requires a resource id")
		}
		explanation, err := cli.Explain(ctx, args[1])
		if err != nil {
			return err
		}
		printExplanation(out, explanation)
		return nil
	case "var":
		if len(args) < 4 || args[1] != "set" {
			return fmt.Errorf("usage: var set <name> <value>")
		}
		if err := cli.SetVariable(ctx, args[2], args[3]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Set %s\n", args[2])
		return nil
	case "layout":
		if len(args) < 3 || args[1] != "set" {
			return fmt.Errorf("usage: layout set <data>")
		}
		if err := cli.SetLayout(ctx, strings.Join(args[2:], " ")); err != nil {
			return err
		}
		fmt.Fprintln(out, "Layout updated")
		return nil
	case "inspect":
		snap, err := cli.Inspect(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, snap)
	case "metrics":
		snap, err := cli.Metrics(ctx)
		if err != nil {
			return err
		}
		if !snap.Enabled {
			fmt.Fprintln(out, "Telemetry disabled (set telemetry.enabled in the config)")
			return nil
		}
		return printJSON(out, snap)
	case "reload":
		if err := cli.Reload(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Reload requested")
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	lintErrs, err := config.LintFile(*configPath)
	if err != nil {
		return err
	}
	if len(lintErrs) == 0 {
		fmt.Fprintln(stdout, "Configuration OK")
		return nil
	}

	fmt.Fprintf(stderr, "Configuration has %d issue(s):\n", len(lintErrs))
	for _, lintErr := range lintErrs {
		fmt.Fprintf(stderr, "- %s\n", lintErr.Error())
	}
	return fmt.Errorf("configuration validation failed")
}

func runView(ctx context.Context, cli *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("view requires a subcommand (list|current|switch|unregister|members)")
	}
	switch args[0] {
	case "list", "current":
		status, err := cli.Views(ctx)
		if err != nil {
			return err
		}
		printStatus(out, status, args[0] == "list")
		return nil
	case "switch":
		if len(args) < 2 {
			return fmt.Errorf("view switch requires a view name")
		}
		result, err := cli.Switch(ctx, args[1])
		if err != nil {
			return err
		}
		printSwitch(out, result)
		return nil
	case "unregister":
		if len(args) < 2 {
			return fmt.Errorf("view unregister requires a view name")
		}
		if err := cli.Unregister(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Unregistered view %s\n", args[1])
		return nil
	case "members":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		result, err := cli.Members(ctx, name)
		if err != nil {
			return err
		}
		printMembers(out, result)
		return nil
	default:
		return fmt.Errorf("unknown view subcommand %q", args[0])
	}
}

func runOpen(ctx context.Context, cli *client.Client, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("open", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var res state.Resource
	fs.StringVar(&res.ID, "id", "", "resource identifier")
	fs.StringVar(&res.Name, "name", "", "display name matched by name rules")
	fs.StringVar(&res.Location, "path", "", "backing location matched by path rules")
	fs.StringVar(&res.Category, "category", "", "category matched by category rules")
	activate := fs.Bool("activate", false, "activate the resource after opening it")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if res.ID == "" {
		return fmt.Errorf("open requires --id")
	}
	if res.Name == "" {
		res.Name = res.ID
	}
	if err := cli.Open(ctx, res); err != nil {
		return err
	}
	fmt.Fprintf(out, "Opened %s\n", res.ID)
	if !*activate {
		return nil
	}
	result, err := cli.Activate(ctx, res.ID)
	if err != nil {
		return err
	}
	printSwitch(out, result)
	return nil
}

func printStatus(out io.Writer, status client.ViewStatus, full bool) {
	if status.Current == "" {
		fmt.Fprintln(out, "Current view: (none)")
	} else {
		fmt.Fprintf(out, "Current view: %s\n", status.Current)
	}
	if !full {
		return
	}
	if len(status.History) > 0 {
		fmt.Fprintf(out, "History: %s\n", strings.Join(status.History, ", "))
	}
	for _, v := range status.Views {
		fmt.Fprintf(out, "  %d. %s (%d rules, weight %d)\n", v.Rank+1, v.Name, v.Rules, v.Weight)
	}
}

func printSwitch(out io.Writer, result client.SwitchResult) {
	if !result.Switched {
		fmt.Fprintf(out, "Staying in view %s\n", displayName(result.View))
		return
	}
	fmt.Fprintf(out, "Switched to view %s\n", displayName(result.View))
}

func printMembers(out io.Writer, result client.MembersResult) {
	if len(result.Resources) == 0 {
		fmt.Fprintf(out, "View %s owns no resources\n", result.View)
		return
	}
	fmt.Fprintf(out, "View %s owns:\n", result.View)
	for _, res := range result.Resources {
		fmt.Fprintf(out, "  %s\t%s\n", res.ID, res.Name)
	}
}

func printExplanation(out io.Writer, explanation client.Explanation) {
	fmt.Fprintf(out, "Resource %s (%s)\n", explanation.Resource.ID, explanation.Resource.Name)
	for _, vs := range explanation.Views {
		for _, line := range rules.SummarizeScoreTrace(vs.Trace) {
			fmt.Fprintln(out, line)
		}
	}
	switch {
	case explanation.Chosen == "":
		fmt.Fprintln(out, "No view registered")
	case explanation.Fallback:
		fmt.Fprintf(out, "No view owns it; stays in current view %s\n", explanation.Chosen)
	default:
		fmt.Fprintf(out, "Best view: %s\n", explanation.Chosen)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayName(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}
