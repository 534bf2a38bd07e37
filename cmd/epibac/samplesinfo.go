package main

import (
	"errors"
	"fmt"

	"github.com/nishad/epibac/internal/samplesinfo"
	"github.com/nishad/epibac/internal/schema"
	"github.com/nishad/epibac/internal/ui"
	"github.com/spf13/cobra"
)

var samplesinfoCmd = &cobra.Command{
	Use:   "samplesinfo",
	Short: "Generate a manifest skeleton from FASTQ files",
	Long: `Scan a directory of FASTQ files and write samplesinfo_<run_name>.csv with
one row per sample.

Illumina files are paired by their read marker (_S1_R1_001, _R1, .R1, _F/_R);
every sample must have both mates. Each nanopore file is one sample. Only
the identifier and file columns are filled: complete the rest, then run
"epibac validate".`,
	Example: `  epibac samplesinfo --fastq run/fastq --platform illumina --run-name 240101_CLIN002
  epibac samplesinfo -f ont/ -p nanopore -r run7 --mode normal -o manifests/`,
	RunE: runSamplesinfo,
}

var (
	samplesinfoFastq    string
	samplesinfoPlatform string
	samplesinfoRunName  string
	samplesinfoMode     string
	samplesinfoOutput   string
)

func init() {
	samplesinfoCmd.Flags().StringVarP(&samplesinfoFastq, "fastq", "f", "", "Directory with the FASTQ files (required)")
	samplesinfoCmd.Flags().StringVarP(&samplesinfoPlatform, "platform", "p", "", "Sequencing platform: illumina or nanopore (required)")
	samplesinfoCmd.Flags().StringVarP(&samplesinfoRunName, "run-name", "r", "", "Run name, AAMMDD_HOSPXXX in gva mode (required)")
	samplesinfoCmd.Flags().StringVarP(&samplesinfoMode, "mode", "m", "gva", "Manifest layout: gva or normal")
	samplesinfoCmd.Flags().StringVarP(&samplesinfoOutput, "output", "o", "", "Output directory (default: parent of the FASTQ directory)")
	_ = samplesinfoCmd.MarkFlagRequired("fastq")
	_ = samplesinfoCmd.MarkFlagRequired("platform")
	_ = samplesinfoCmd.MarkFlagRequired("run-name")
}

func runSamplesinfo(cmd *cobra.Command, args []string) error {
	mode, err := schema.ParseMode(samplesinfoMode)
	if err != nil {
		return err
	}
	platform, err := samplesinfo.ParsePlatform(samplesinfoPlatform)
	if err != nil {
		return err
	}

	opts := samplesinfo.Options{
		Mode:      mode,
		RunName:   samplesinfoRunName,
		Platform:  platform,
		FastqDir:  samplesinfoFastq,
		OutputDir: samplesinfoOutput,
		Logger:    logger,
	}
	var res *samplesinfo.Result
	generate := func() error {
		var gerr error
		res, gerr = samplesinfo.Generate(opts)
		return gerr
	}
	if quiet {
		err = generate()
	} else {
		err = ui.ShowSpinner(fmt.Sprintf("Scanning %s", samplesinfoFastq), generate)
	}
	if err != nil {
		var inc *samplesinfo.IncompleteError
		if errors.As(err, &inc) {
			printError("Some samples do not have both R1 and R2:")
			for _, s := range inc.Samples {
				r1, r2 := s.R1, s.R2
				if r1 == "" {
					r1 = colorize(colorRed, "missing R1")
				}
				if r2 == "" {
					r2 = colorize(colorRed, "missing R2")
				}
				fmt.Printf("  %s: %s, %s\n", s.ID, r1, r2)
			}
			return fmt.Errorf("%d incomplete sample(s)", len(inc.Samples))
		}
		return err
	}

	for _, name := range res.Skipped {
		printWarning("Cannot tell R1 from R2 in %s, file ignored", name)
	}
	printSuccess("Manifest written: %s", res.Path)
	printInfo("Found %d sample(s).", len(res.Samples))

	if !quiet {
		fmt.Println()
		fmt.Println("Complete the manifest, then run:")
		fmt.Printf("  epibac validate --samples %s --mode %s --run-name %s\n", res.Path, mode, samplesinfoRunName)
	}
	return nil
}
