// Package main provides the vibe-ptm command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/coord"
	"github.com/inodb/vibe-ptm/internal/exon"
	"github.com/inodb/vibe-ptm/internal/search"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-ptm",
		Short: "Canonical PTM and cleavage matrices from proteomics search results",
		Long: `vibe-ptm maps the modifications and non-tryptic cleavages identified by a
search engine onto one canonical coordinate system shared by all isoforms of a
protein, and writes per-sample event matrices.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Preprocess a MaxQuant evidence file
  vibe-ptm preprocess --format mq --input evidence.txt --fasta tau.fasta --groups groups.csv

  # Preprocess a directory of Mascot exports
  vibe-ptm preprocess --format ma --input mascot/ --fasta tau.fasta --groups groups.csv

  # Show the variable exon of an isoform FASTA
  vibe-ptm exon --fasta tau.fasta`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.vibe-ptm.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newPreprocessCmd())
	root.AddCommand(newAlignCmd())
	root.AddCommand(newExonCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads the config file and environment.
func initConfig() error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-ptm")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_PTM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("min_exon_length", exon.DefaultMinLength)
	viper.SetDefault("modifications", formatPairs(search.DefaultIncluded))
	viper.SetDefault("isoform_aliases", []string{})
	viper.SetDefault("output_dir", ".")
	viper.SetDefault("clustalo.exec", "clustalo")
	viper.SetDefault("clustalo.timeout", align.DefaultTimeout)
	viper.SetDefault("maxquant.pep_threshold", search.DefaultPEPThreshold)
	viper.SetDefault("msfragger.mods", formatPairs(search.DefaultMSFraggerMods))
	viper.SetDefault("msfragger.tolerance", search.DefaultMassTolerance)
	viper.SetDefault("proteinpilot.confidence", search.DefaultConfidence)
	viper.SetDefault("cleavage.residues", coord.DefaultCleavageResidues)
	viper.SetDefault("workers", 0)
	viper.SetDefault("uniprot.url", uniprotStreamURL)
}

// newLogger builds the console logger on stderr.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// configPath returns the config file to write to.
func configPath() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-ptm.yaml"), nil
}

// parsePairs parses a list of key=value entries. Map-valued settings are
// stored in this form since viper lowercases map keys and splits them on dots.
func parsePairs(setting string, entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%s: invalid entry %q (want key=value)", setting, e)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// formatPairs renders a map as sorted key=value entries.
func formatPairs[M ~map[string]string](m M) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
