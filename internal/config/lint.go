package config

import (
	"fmt"
	"os"
	"strings"
)

// LintError describes a single configuration problem anchored at a path.
type LintError struct {
	Path    string
	Message string
}

func (e LintError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Lint reports every structural problem in the configuration.
func (c *Config) Lint() []LintError {
	var errs []LintError
	add := func(path, format string, args ...any) {
		errs = append(errs, LintError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Views) == 0 {
		add("views", "must define at least one view")
	}

	locals := map[string]struct{}{}
	for i, name := range c.Locals {
		path := fmt.Sprintf("locals[%d]", i)
		if strings.TrimSpace(name) == "" {
			add(path, "variable name cannot be empty")
			continue
		}
		if _, exists := locals[name]; exists {
			add(path, "duplicate variable %q", name)
			continue
		}
		locals[name] = struct{}{}
	}

	names := map[string]struct{}{}
	for i, v := range c.Views {
		viewPath := fmt.Sprintf("views[%d]", i)
		if strings.TrimSpace(v.Name) == "" {
			add(viewPath+".name", "cannot be empty")
		} else if _, exists := names[v.Name]; exists {
			add(viewPath+".name", "duplicate view name %q", v.Name)
		} else {
			names[v.Name] = struct{}{}
		}
		for j, r := range v.Rules {
			if kinds := r.Kinds(); len(kinds) > 1 {
				add(fmt.Sprintf("%s.rules[%d]", viewPath, j), "must set only one of name, path or category, got %s", strings.Join(kinds, ", "))
			}
		}
	}

	if c.InitialView != "" {
		if _, ok := names[c.InitialView]; !ok {
			add("initialView", "references unknown view %q", c.InitialView)
		}
	}
	return errs
}

// LintFile parses the file at path and returns its lint errors. A read or
// decode failure is returned as the error.
func LintFile(path string) ([]LintError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg.Lint(), nil
}
