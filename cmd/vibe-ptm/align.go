package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-ptm/internal/duckdb"
	"github.com/inodb/vibe-ptm/internal/fasta"
)

func newAlignCmd() *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align the isoform FASTA",
		Long: `Align the isoforms with Clustal Omega and store the result as aligned.fasta
in the output directory. Later runs over the same FASTA reuse it.`,
		Example: `  vibe-ptm align --fasta tau.fasta -o results/
  vibe-ptm align --fasta tau.fasta --stdout > tau_aligned.fasta`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, pipelineKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := pipelineConfig("", "")
			if err != nil {
				return err
			}
			_, aligned, err := newPipeline(cfg, logger).Align(cmdContext(cmd))
			if err != nil {
				return err
			}

			if stdout {
				return fasta.Write(os.Stdout, aligned)
			}
			if cfg.AlignedFASTA != "" {
				fmt.Fprintf(os.Stderr, "Alignment in %s is consistent with %s\n", cfg.AlignedFASTA, cfg.FASTA)
				return nil
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", duckdb.NewAlignmentCache(viper.GetString("output_dir")).Path())
			return nil
		},
	}

	addPipelineFlags(cmd)
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Also write the alignment to stdout")

	return cmd
}
