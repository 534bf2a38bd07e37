package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nishad/epibac/internal/database"
	"github.com/nishad/epibac/internal/validator"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past validation runs",
	Long: `Inspect the validation history recorded by "epibac validate" and the API
server. Each run keeps the manifest path and checksum, the status, the
findings and the rendered report.`,
	Example: `  epibac history list --failed
  epibac history show 1b4e28ba-2fa1-11d2-883f-0016d3cca427
  epibac history stats`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent validation runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the report of a validation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a validation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	RunE:  runHistoryStats,
}

var (
	historyFailed   bool
	historyMode     string
	historyRunName  string
	historyManifest string
	historySince    time.Duration
	historyLimit    int
	historyFindings bool
)

func init() {
	historyListCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only runs with errors or fatal problems")
	historyListCmd.Flags().StringVar(&historyMode, "mode", "", "Only runs in this mode")
	historyListCmd.Flags().StringVar(&historyRunName, "run-name", "", "Only runs with this run name")
	historyListCmd.Flags().StringVar(&historyManifest, "manifest", "", "Only manifests whose path contains this text")
	historyListCmd.Flags().DurationVar(&historySince, "since", 0, "Only runs newer than this (e.g. 72h)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum runs to list")

	historyShowCmd.Flags().BoolVar(&historyFindings, "findings", false, "List the stored findings instead of the report")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyStatsCmd)
}

func requireHistory() (*database.DB, error) {
	if !cfg.Storage.HistoryEnabled {
		return nil, fmt.Errorf("validation history is disabled (storage.history_enabled)")
	}
	if _, err := os.Stat(cfg.Storage.HistoryPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no validation history at %s yet", cfg.Storage.HistoryPath)
	}
	db, err := database.Initialize(cfg.Storage.HistoryPath)
	if err != nil {
		return nil, err
	}
	db.SetLogger(logger)
	return db, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	db, err := requireHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	filter := database.RunFilter{
		Mode:     historyMode,
		RunName:  historyRunName,
		Manifest: historyManifest,
		Limit:    historyLimit,
	}
	if historyFailed {
		filter.MinStatus = int(validator.StatusErrors)
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	runs, err := db.ListRuns(filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No validation runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tSTATUS\tMODE\tRUN\tROWS\tF/E/W\tMANIFEST")
	for _, r := range runs {
		status := validator.Status(r.Status)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d/%d/%d\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			colorize(statusColor(status), status.String()),
			r.Mode,
			r.RunName,
			r.RowCount,
			r.FatalCount, r.ErrorCount, r.WarningCount,
			r.ManifestPath)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	db, err := requireHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(args[0])
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no validation run with id %s", args[0])
		}
		return err
	}

	if !quiet {
		printInfo("Run %s", run.ID)
		fmt.Printf("Manifest: %s\n", run.ManifestPath)
		if run.ManifestSHA256 != "" {
			fmt.Printf("SHA-256:  %s\n", run.ManifestSHA256)
		}
		fmt.Printf("Recorded: %s (%s)\n", run.CreatedAt.Local().Format(time.RFC1123), run.Source)
		fmt.Println()
	}

	if !historyFindings {
		fmt.Print(run.Report)
		return nil
	}

	findings, err := db.FindingsForRun(run.ID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tROW\tID\tFIELD\tTYPE\tMESSAGE")
	for _, f := range findings {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", f.Severity, f.Row, f.SampleID, f.Field, f.Type, f.Message)
	}
	return w.Flush()
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	db, err := requireHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRun(args[0]); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no validation run with id %s", args[0])
		}
		return err
	}
	printSuccess("Deleted run %s", args[0])
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	db, err := requireHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	printInfo("Validation History")
	fmt.Println(colorize(colorGray, "────────────────────────────────────────"))
	fmt.Printf("Database: %s (%.1f KB)\n", db.Path(), float64(stats.Size)/1024)
	fmt.Printf("Runs:     %d\n", stats.Runs)
	fmt.Printf("Findings: %d\n", stats.Findings)
	for s := validator.StatusClean; s <= validator.StatusFatal; s++ {
		fmt.Printf("  %-10s %d\n", s.String()+":", stats.ByStatus[int(s)])
	}
	return nil
}
