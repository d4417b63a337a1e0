package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// listKeys are the settings holding key=value lists.
var listKeys = map[string]bool{
	"modifications":   true,
	"isoform_aliases": true,
	"msfragger.mods":  true,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-ptm configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-ptm.yaml.",
		Example: `  vibe-ptm config                                        # show all config
  vibe-ptm config set fasta /data/tau.fasta              # default isoform FASTA
  vibe-ptm config set isoform_aliases 0N3R=P10636-2,2N4R=P10636-8
  vibe-ptm config get maxquant.pep_threshold             # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Lists (modifications, isoform_aliases,
msfragger.mods) take comma-separated key=value entries.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Println("# No configuration set. Config file: ~/.vibe-ptm.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	key = strings.ToLower(key)
	if listKeys[key] {
		var entries []string
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				entries = append(entries, e)
			}
		}
		if _, err := parsePairs(key, entries); err != nil {
			return err
		}
		viper.Set(key, entries)
	} else {
		viper.Set(key, value)
	}

	cfgFile, err := configPath()
	if err != nil {
		return err
	}
	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	if listKeys[strings.ToLower(key)] {
		for _, e := range viper.GetStringSlice(key) {
			fmt.Println(e)
		}
		return nil
	}
	fmt.Println(val)
	return nil
}
