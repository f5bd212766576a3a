package main

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if cmd.Use != "pagewalk" || cmd.Version == "" {
		t.Errorf("unexpected use %q or empty version %q", cmd.Use, cmd.Version)
	}
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Error("expected usage and errors to be silenced so Execute prints them once")
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	if verbose == nil || verbose.Shorthand != "v" || verbose.DefValue != "false" {
		t.Errorf("unexpected --verbose flag: %+v", verbose)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	sort.Strings(names)
	// cobra adds completion and help lazily, so only our commands are listed.
	if diff := cmp.Diff([]string{"crawl", "history", "init", "version"}, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestRootCmdUnknownCommand(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"scan"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), `unknown command "scan"`) {
		t.Errorf("expected unknown command error, got %v", err)
	}
}
