package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nishad/epibac/internal/export"
	"github.com/nishad/epibac/internal/paths"
	"github.com/nishad/epibac/internal/report"
	"github.com/nishad/epibac/internal/ui"
	"github.com/nishad/epibac/internal/validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a sample manifest",
	Long: `Validate a sample manifest before running the pipeline.

The manifest may be semicolon- or comma-separated. In gva mode the
institutional column names (CODIGO_MUESTRA_ORIGEN, PETICION, ...) are
mapped to the canonical ones and the run name must follow AAMMDD_HOSPXXX.

The normalized manifest (skipped when validation is fatal) and the text
report are written to the output directory. The exit code is 0 when the
status is clean or has only warnings, 1 otherwise.`,
	Example: `  epibac validate --samples samples_info.csv
  epibac validate -s samples_info.csv --mode gva --run-name 240101_CLIN002 -o results
  epibac validate -s samples_info.csv --json > findings.json`,
	RunE: runValidate,
}

var (
	validateSamples   string
	validateMode      string
	validateRunName   string
	validateOutDir    string
	validateFindings  bool
	validateJSON      bool
	validateNoHistory bool
)

func init() {
	validateCmd.Flags().StringVarP(&validateSamples, "samples", "s", "", "Manifest to validate (required)")
	validateCmd.Flags().StringVarP(&validateMode, "mode", "m", "", "Validation mode: normal or gva (default: from config)")
	validateCmd.Flags().StringVarP(&validateRunName, "run-name", "r", "", "Run name for gva mode (default: from config)")
	validateCmd.Flags().StringVarP(&validateOutDir, "outdir", "o", "", "Directory for the normalized manifest and report (default: state logs dir)")
	validateCmd.Flags().BoolVar(&validateFindings, "findings", false, "Also write the findings as JSON")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the result as JSON instead of the summary")
	validateCmd.Flags().BoolVar(&validateNoHistory, "no-history", false, "Do not record this run in the history")
	_ = validateCmd.MarkFlagRequired("samples")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateRunName != "" {
		cfg.RunName = validateRunName
	}

	outDir := validateOutDir
	if outDir == "" {
		outDir = paths.GetLogsPath()
	}
	printDebug("Output directory: %s", outDir)

	v := validator.New(cfg, validator.Options{Logger: logger})

	spinner := ui.NewSpinner(fmt.Sprintf("Validating %s", filepath.Base(validateSamples)))
	if !quiet && !validateJSON {
		spinner.Start()
	}
	result := v.Validate(validateSamples, validateMode)
	spinner.Stop("")

	stats, err := export.NewExporter(export.InDir(outDir, validateFindings), logger).Export(result)
	if err != nil {
		return err
	}

	if !validateNoHistory {
		if db := openHistory(); db != nil {
			run, err := db.RecordResult(validateSamples, "cli", result)
			if err != nil {
				printWarning("Could not record validation run: %s", userMessage(err))
			} else {
				logger.Debug("validation run recorded", zap.String("id", run.ID))
				printDebug("History run id: %s", run.ID)
			}
			db.Close()
		}
	}

	if validateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printSummary(result, stats, outDir)
	}

	if result.Status.Failed() {
		return errValidationFailed
	}
	return nil
}

// printSummary prints the findings, the outcome banner and where the
// outputs went.
func printSummary(r *validator.Result, stats *export.Stats, outDir string) {
	if !quiet {
		if r.Mode != "" {
			printInfo("Mode: %s", r.Mode)
		}
		if r.RunName != "" {
			printInfo("Run: %s", r.RunName)
		}
		if name := r.DelimiterName(); name != "" {
			printInfo("Delimiter: %s", name)
		}
		fmt.Printf("Rows: %d  Files checked: %d  Corrections: %d\n",
			r.Stats.Rows, r.Stats.FilesChecked, r.Stats.Corrections)

		findings := r.Findings()
		if len(findings) > 0 {
			fmt.Println()
		}
		for i, f := range findings {
			if !verbose && i == 20 {
				fmt.Println(colorize(colorGray, fmt.Sprintf("... %d more, see the report or use --verbose", len(findings)-i)))
				break
			}
			label := fmt.Sprintf("[%s]", f.Severity)
			fmt.Printf("%s %s\n", colorize(severityColor(f.Severity), label), report.Line(f))
		}
		fmt.Println()
	}

	printBanner(statusColor(r.Status),
		report.Headline(r.Status),
		fmt.Sprintf("%d fatal, %d errors, %d warnings", len(r.Fatal), len(r.Errors), len(r.Warnings)))

	if stats.ManifestWritten {
		printSuccess("Normalized manifest: %s", filepath.Join(outDir, export.ManifestName))
	}
	if stats.ReportWritten {
		printSuccess("Report: %s", filepath.Join(outDir, export.ReportName))
	}
	if stats.FindingsWritten {
		printSuccess("Findings: %s", filepath.Join(outDir, export.FindingsName))
	}
}
