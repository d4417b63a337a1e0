package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-ptm/internal/exon"
)

// exonReport is the printed form of a detected variable exon.
type exonReport struct {
	Start         int      `yaml:"start"`
	End           int      `yaml:"end"`
	Length        int      `yaml:"length"`
	Exon1         string   `yaml:"exon1"`
	Exon2         string   `yaml:"exon2,omitempty"`
	Exon1Isoforms []string `yaml:"exon1_isoforms"`
	Exon2Isoforms []string `yaml:"exon2_isoforms,omitempty"`
	NoneIsoforms  []string `yaml:"none_isoforms,omitempty"`
}

func newExonReport(r *exon.Region) exonReport {
	return exonReport{
		Start:         r.Start,
		End:           r.End,
		Length:        r.Length,
		Exon1:         r.Exon1,
		Exon2:         r.Exon2,
		Exon1Isoforms: r.Exon1Isoforms,
		Exon2Isoforms: r.Exon2Isoforms,
		NoneIsoforms:  r.NoneIsoforms,
	}
}

func newExonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exon",
		Short: "Show the variable exon of the isoforms",
		Long: `Align the isoforms (or reuse an alignment) and print the variable exon
region in alignment columns, its variants and the isoforms carrying each.`,
		Example: `  vibe-ptm exon --fasta tau.fasta
  vibe-ptm exon --fasta tau.fasta --aligned-fasta tau_aligned.fasta --min-exon-length 3`,
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
			norm, err := newPipeline(cfg, logger).Prepare(cmdContext(cmd))
			if err != nil {
				return err
			}

			region := norm.Region()
			if region == nil {
				fmt.Println("# No variable exon detected")
				return nil
			}
			out, err := yaml.Marshal(newExonReport(region))
			if err != nil {
				return fmt.Errorf("marshaling exon: %w", err)
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}

	addPipelineFlags(cmd)

	return cmd
}
