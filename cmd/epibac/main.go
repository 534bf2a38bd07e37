package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nishad/epibac/internal/config"
	"github.com/nishad/epibac/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags
var (
	noColor    bool
	quiet      bool
	verbose    bool
	debug      bool
	configPath string
)

// Loaded once in PersistentPreRunE and shared by every command.
var (
	cfg    *config.Config
	logger = zap.NewNop()
)

// errValidationFailed signals a manifest with status >= 2. The report has
// already been printed, so main only sets the exit code.
var errValidationFailed = errors.New("validation failed")

// Root command
var rootCmd = &cobra.Command{
	Use:   "epibac",
	Short: "Sample manifest validation for the epibac pipeline",
	Long: `epibac checks the sample manifest of a bacterial genomics run before the
pipeline starts.

It detects the manifest delimiter, maps institutional column names to the
canonical ones, normalizes dates and organism names, checks identifiers,
paired reads and nanopore basecalling settings, and writes a normalized
manifest together with a validation report.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	SilenceUsage:  true,
	Example: `  # Validate a manifest
  epibac validate --samples samples_info.csv --outdir results

  # Validate a hospital run
  epibac validate --samples samples_info.csv --mode gva --run-name 240101_CLIN002

  # Scaffold a manifest from a FASTQ directory
  epibac samplesinfo --fastq runs/fastq --platform illumina --run-name 240101_CLIN002

  # Serve the validation API
  epibac server --port 8080`,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: $EPIBAC_CONFIG, ./config.yaml, then the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(samplesinfoCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		configPath = config.GetConfigPath()
	}

	loaded, err := config.Load(configPath)
	switch {
	case err == nil:
		cfg = loaded
	case underConfigCmd(cmd):
		// Keep "config edit" usable on a broken file.
		printWarning("%s, using defaults", userMessage(err))
		cfg = config.DefaultConfig()
	default:
		return err
	}

	level := cfg.Logging.Level
	switch {
	case debug:
		level = "debug"
	case verbose && level != "debug":
		level = "info"
	case quiet:
		level = "error"
	}
	l, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("configuration loaded", zap.String("path", configPath))
	return nil
}

func underConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		if !errors.Is(err, errValidationFailed) {
			printError("%s", userMessage(err))
		}
		os.Exit(1)
	}
}
