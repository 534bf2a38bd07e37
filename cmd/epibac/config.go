package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/nishad/epibac/internal/config"
	"github.com/nishad/epibac/internal/paths"
	"github.com/nishad/epibac/internal/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage epibac configuration",
	Long: `Manage the epibac config file: mode, run_name, the nanopore basecalling
model, validation severities and the history database.`,
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show where epibac reads and writes",
	Long: `Show the config file, the validation history database and the default
report directory, with any EPIBAC_* overrides in effect.`,
	RunE: runConfigPaths,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Create the epibac directories and write a config file with the defaults.

In gva mode the run name is checked against AAMMDD_HOSPXXX before anything
is written.`,
	Example: `  epibac config init
  epibac config init --mode gva --run-name 240101_CLIN002
  epibac config init --force`,
	RunE: runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	Long:  `Open the config file in $EDITOR (vi when unset) and check it once the editor exits.`,
	RunE:  runConfigEdit,
}

var (
	configForce   bool
	configMode    string
	configRunName string
)

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configInitCmd.Flags().StringVarP(&configMode, "mode", "m", "normal", "Default validation mode (normal or gva)")
	configInitCmd.Flags().StringVarP(&configRunName, "run-name", "r", "", "Default run name (AAMMDD_HOSPXXX, gva only)")

	configCmd.AddCommand(configPathsCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
}

func runConfigPaths(cmd *cobra.Command, args []string) error {
	history := cfg.Storage.HistoryPath
	if !cfg.Storage.HistoryEnabled {
		history += colorize(colorGray, " (disabled)")
	}

	printInfo("epibac paths")
	for _, p := range []struct {
		name, path, shown string
	}{
		{"Config file", configPath, configPath},
		{"History", cfg.Storage.HistoryPath, history},
		{"Reports", paths.GetLogsPath(), paths.GetLogsPath()},
	} {
		mark := colorize(colorGray, "✗")
		if _, err := os.Stat(p.path); err == nil {
			mark = colorize(colorGreen, "✓")
		}
		fmt.Printf("  %s %-12s %s\n", mark, p.name+":", colorize(colorCyan, p.shown))
	}

	for _, env := range []string{"EPIBAC_CONFIG", "EPIBAC_CONFIG_HOME", "EPIBAC_DATA_HOME", "EPIBAC_STATE_HOME", "EPIBAC_HISTORY_PATH"} {
		if val := os.Getenv(env); val != "" {
			fmt.Printf("  %s = %s\n", colorize(colorYellow, env), val)
		}
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	source := configPath
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		source = "defaults (no config file found)"
	}
	printInfo("Configuration from %s", source)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	mode, err := schema.ParseMode(configMode)
	if err != nil {
		return err
	}
	if mode == schema.ModeGVA {
		if err := schema.ValidateRunName(configRunName); err != nil {
			return err
		}
	}

	target := paths.GetConfigFile()
	if _, err := os.Stat(target); err == nil && !configForce {
		printWarning("Configuration already exists at %s (use --force to overwrite)", target)
		return nil
	}

	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	defaults := config.DefaultConfig()
	defaults.Mode = string(mode)
	defaults.RunName = configRunName
	if err := defaults.Save(target); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	printSuccess("Configuration created at %s", target)

	configPath = target
	if cfg, err = config.Load(target); err != nil {
		return err
	}
	return runConfigShow(cmd, args)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		printWarning("No configuration file found, create one with: epibac config init")
		return nil
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	edited, err := config.Load(configPath)
	if err != nil {
		printError("Configuration is invalid: %s", userMessage(err))
		return err
	}
	if edited.Mode != "" {
		if _, err := schema.ParseMode(edited.Mode); err != nil {
			printWarning("%v", err)
		}
	}
	printSuccess("Configuration updated")
	return nil
}
