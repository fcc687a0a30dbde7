package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cropwatch/cropwatch/internal/config"
	"github.com/cropwatch/cropwatch/internal/mockmode"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Manage mock mode (simulated live sensor feed)",
	Long:  `Enable or disable mock mode, which drifts the sample farm readings to simulate a live sensor feed.`,
}

var mockEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the simulated sensor feed",
	Long: `Enable mock mode by updating mock.env in the data directory.

A running server picks the change up automatically.

Example:
  cropwatch mock enable`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setMockMode(getMockEnvPath(), true); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Mock mode enabled")
		return nil
	},
}

var mockDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the simulated sensor feed",
	Long: `Disable mock mode by updating mock.env in the data directory.

Example:
  cropwatch mock disable`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setMockMode(getMockEnvPath(), false); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Mock mode disabled")
		return nil
	},
}

var mockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current mock mode status",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		enabled, config := getMockStatus(getMockEnvPath())
		if !enabled {
			fmt.Fprintln(out, "Mock mode: DISABLED")
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, "Run 'cropwatch mock enable' to enable mock mode")
			return
		}
		fmt.Fprintln(out, "Mock mode: ENABLED")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Configuration:")
		for _, line := range config {
			fmt.Fprintf(out, "  %s\n", line)
		}
	},
}

func init() {
	mockCmd.AddCommand(mockEnableCmd)
	mockCmd.AddCommand(mockDisableCmd)
	mockCmd.AddCommand(mockStatusCmd)
	rootCmd.AddCommand(mockCmd)
}

// mockEnvKeys is the write order for mock.env.
var mockEnvKeys = []string{
	mockmode.EnvVar,
	"CROPWATCH_MOCK_RANDOM_METRICS",
	"CROPWATCH_MOCK_SOIL_ONLY",
	"CROPWATCH_MOCK_SEED",
	"CROPWATCH_MOCK_UPDATE_INTERVAL",
}

func getMockEnvPath() string {
	return config.Default(config.DataDir()).MockEnvPath()
}

// setMockMode flips CROPWATCH_MOCK_MODE in path, keeping other settings.
func setMockMode(path string, enable bool) error {
	values := getDefaultMockConfig()

	if existing, err := godotenv.Read(path); err == nil {
		for k, v := range existing {
			if k != mockmode.EnvVar {
				values[k] = v
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	values[mockmode.EnvVar] = fmt.Sprintf("%t", enable)
	return writeMockEnv(path, values)
}

func getDefaultMockConfig() map[string]string {
	return map[string]string{
		mockmode.EnvVar:                  "false",
		"CROPWATCH_MOCK_RANDOM_METRICS":  "true",
		"CROPWATCH_MOCK_SOIL_ONLY":       "false",
		"CROPWATCH_MOCK_SEED":            "0",
		"CROPWATCH_MOCK_UPDATE_INTERVAL": "2s",
	}
}

func writeMockEnv(path string, values map[string]string) error {
	lines := []string{
		"# CropWatch Mock Mode Configuration",
		"# Enable with: cropwatch mock enable",
		"# Disable with: cropwatch mock disable",
		"",
	}

	known := make(map[string]bool, len(mockEnvKeys))
	for _, key := range mockEnvKeys {
		known[key] = true
		if val, ok := values[key]; ok {
			lines = append(lines, fmt.Sprintf("%s=%s", key, val))
		}
	}

	var extra []string
	for k := range values {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		lines = append(lines, fmt.Sprintf("%s=%s", k, values[k]))
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func getMockStatus(path string) (enabled bool, lines []string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return false, nil
	}

	enabled = values[mockmode.EnvVar] == "true"
	if enabled {
		lines = []string{
			fmt.Sprintf("Random metrics: %s", values["CROPWATCH_MOCK_RANDOM_METRICS"]),
			fmt.Sprintf("Soil only: %s", values["CROPWATCH_MOCK_SOIL_ONLY"]),
			fmt.Sprintf("Update interval: %s", values["CROPWATCH_MOCK_UPDATE_INTERVAL"]),
		}
	}
	return enabled, lines
}
