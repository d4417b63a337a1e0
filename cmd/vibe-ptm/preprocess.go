package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/duckdb"
	"github.com/inodb/vibe-ptm/internal/pipeline"
	"github.com/inodb/vibe-ptm/internal/search"
)

func newPreprocessCmd() *cobra.Command {
	var format, input string

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Build canonical modification and cleavage matrices",
		Long: `Align the isoform FASTA, detect the variable exon, read a search-engine
export and write result_<format>_mods.csv and result_<format>_cleavages.csv to
the output directory.

Formats: mq (MaxQuant evidence.txt), ms (MS Fragger
combined_modified_peptide.tsv), ma (directory of Mascot CSV exports), pp
(directory of ProteinPilot PeptideSummary exports).`,
		Example: `  vibe-ptm preprocess --format mq --input evidence.txt --fasta tau.fasta --groups groups.csv -o results/
  vibe-ptm preprocess --format pp --input proteinpilot/ --fasta tau.fasta --groups groups.csv --duckdb events.duckdb`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, pipelineKeys, map[string]string{
				"groups": "groups",
				"duckdb": "duckdb",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := search.ParseFormat(format)
			if err != nil {
				return err
			}
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			return runPreprocess(cmdContext(cmd), f, input)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Input format: mq, ms, ma or pp")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (mq, ms) or directory (ma, pp)")
	cmd.Flags().String("groups", "", "Groups CSV (file_name,group_name[,replicate])")
	cmd.Flags().String("duckdb", "", "DuckDB file to store events and run metadata in")
	cmd.MarkFlagRequired("format")
	addPipelineFlags(cmd)

	return cmd
}

// addPipelineFlags adds the flags shared by the commands that load isoforms.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("fasta", "", "Isoform FASTA file")
	cmd.Flags().String("aligned-fasta", "", "Use this aligned FASTA instead of running the aligner")
	cmd.Flags().StringP("output", "o", "", "Output directory (default .)")
	cmd.Flags().Int("min-exon-length", 0, "Minimum variable exon length (default 5)")
	cmd.Flags().Int("workers", 0, "Parallel input readers (0 = all CPUs)")
}

// pipelineKeys maps config keys to the flags added by addPipelineFlags.
var pipelineKeys = map[string]string{
	"fasta":           "fasta",
	"aligned_fasta":   "aligned-fasta",
	"output_dir":      "output",
	"min_exon_length": "min-exon-length",
	"workers":         "workers",
}

// bindFlags binds config keys to the running command's flags so that flags
// override the config file. Commands share keys, so binding happens in
// PreRunE rather than at construction.
func bindFlags(cmd *cobra.Command, keys ...map[string]string) error {
	for _, m := range keys {
		for key, flag := range m {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}
	return nil
}

// pipelineConfig builds a pipeline configuration from the merged settings.
func pipelineConfig(format search.Format, input string) (pipeline.Config, error) {
	cfg := pipeline.Config{
		FASTA:            viper.GetString("fasta"),
		AlignedFASTA:     viper.GetString("aligned_fasta"),
		Format:           format,
		Input:            input,
		Groups:           viper.GetString("groups"),
		OutputDir:        viper.GetString("output_dir"),
		MinExonLength:    viper.GetInt("min_exon_length"),
		CleavageResidues: viper.GetString("cleavage.residues"),
		Workers:          viper.GetInt("workers"),
	}
	if cfg.FASTA == "" {
		return cfg, fmt.Errorf("no isoform FASTA: set --fasta or the fasta config key")
	}

	included, err := parsePairs("modifications", viper.GetStringSlice("modifications"))
	if err != nil {
		return cfg, err
	}
	cfg.Included = search.Included(included)

	if cfg.Aliases, err = parsePairs("isoform_aliases", viper.GetStringSlice("isoform_aliases")); err != nil {
		return cfg, err
	}

	mods, err := parsePairs("msfragger.mods", viper.GetStringSlice("msfragger.mods"))
	if err != nil {
		return cfg, err
	}
	masses, err := search.NewMassTable(mods, viper.GetFloat64("msfragger.tolerance"))
	if err != nil {
		return cfg, fmt.Errorf("msfragger.mods: %w", err)
	}
	cfg.Options = search.Options{
		PEPThreshold: viper.GetFloat64("maxquant.pep_threshold"),
		Masses:       masses,
		Confidence:   viper.GetFloat64("proteinpilot.confidence"),
	}
	return cfg, nil
}

// newPipeline creates a pipeline with the configured aligner and logger.
func newPipeline(cfg pipeline.Config, logger *zap.Logger) *pipeline.Pipeline {
	clustalo := align.NewClustalOmega(viper.GetString("clustalo.exec"), viper.GetDuration("clustalo.timeout"))
	clustalo.SetLogger(logger)

	p := pipeline.New(cfg, clustalo)
	p.SetLogger(logger)
	return p
}

func runPreprocess(ctx context.Context, format search.Format, input string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := pipelineConfig(format, input)
	if err != nil {
		return err
	}
	if cfg.Groups == "" {
		return fmt.Errorf("no groups file: set --groups or the groups config key")
	}

	p := newPipeline(cfg, logger)

	if path := viper.GetString("duckdb"); path != "" {
		store, err := duckdb.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		p.SetStore(store)
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", res.ModificationsPath)
	fmt.Fprintf(os.Stderr, "Wrote %s\n", res.CleavagesPath)
	if res.RunID != "" {
		fmt.Fprintf(os.Stderr, "Stored run %s in %s\n", res.RunID, viper.GetString("duckdb"))
	}
	if res.NotFound > 0 || res.RowErrors > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d peptides not found in any isoform and %d unreadable rows\n", res.NotFound, res.RowErrors)
	}
	return nil
}

// cmdContext returns the command's context, or a background context when the
// command was executed without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
