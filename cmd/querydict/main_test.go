package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// testCommand returns a command whose output is captured and whose stdin
// reads input.
func testCommand(input string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(input))
	return cmd, &out
}

// writeConfig writes a config file into a temp dir and points --config at
// it for the rest of the test.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content = strings.ReplaceAll(content, "$DIR", dir)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
	return dir
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"check", "match", "rules", "decisions", "serve", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestEngineFlagsApply(t *testing.T) {
	cfg, _, err := (&engineFlags{}).engineConfig(nil)
	if err != nil {
		t.Fatalf("engineConfig() error = %v", err)
	}
	if !cfg.Engine.ShortCircuit {
		t.Error("short-circuit should default to true")
	}

	cmd := &cobra.Command{}
	flags := &engineFlags{}
	flags.register(cmd)
	if err := cmd.Flags().Parse([]string{"--short-circuit=false", "--ambiguous", "OR", "--allow-bare-field", "--max-depth", "3"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, ecfg, err := flags.engineConfig(cmd)
	if err != nil {
		t.Fatalf("engineConfig() error = %v", err)
	}
	if ecfg.ShortCircuit {
		t.Error("ShortCircuit = true, want false")
	}
	if string(ecfg.AmbiguousResolution) != "OR" {
		t.Errorf("AmbiguousResolution = %q, want OR", ecfg.AmbiguousResolution)
	}
	if !ecfg.AllowBareField {
		t.Error("AllowBareField = false, want true")
	}
	if ecfg.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", ecfg.MaxDepth)
	}
}

func TestEngineFlagsOverrideConfig(t *testing.T) {
	writeConfig(t, "engine:\n  allow_bare_field: true\n  short_circuit: false\n")

	tests := []struct {
		name      string
		args      []string
		wantBare  bool
		wantShort bool
	}{
		{"config values", nil, true, false},
		{"flags disable bare field", []string{"--allow-bare-field=false"}, false, false},
		{"flags enable short-circuit", []string{"--short-circuit"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			flags := &engineFlags{}
			flags.register(cmd)
			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			_, ecfg, err := flags.engineConfig(cmd)
			if err != nil {
				t.Fatalf("engineConfig() error = %v", err)
			}
			if ecfg.AllowBareField != tt.wantBare {
				t.Errorf("AllowBareField = %v, want %v", ecfg.AllowBareField, tt.wantBare)
			}
			if ecfg.ShortCircuit != tt.wantShort {
				t.Errorf("ShortCircuit = %v, want %v", ecfg.ShortCircuit, tt.wantShort)
			}
		})
	}
}

func TestEngineFlagsInvalidResolution(t *testing.T) {
	if _, _, err := (&engineFlags{ambiguous: "XOR"}).engineConfig(nil); err == nil {
		t.Error("expected error for unknown resolution")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	orig := cfgFile
	cfgFile = "testdata/nonexistent.yaml"
	defer func() { cfgFile = orig }()

	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() with missing file should return error")
	}
}
