// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with BANDALIGN, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("BANDALIGN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/bandalign", "$HOME/.bandalign", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "bandalign",
		Short: "Batched banded global alignment of nucleotide sequences",
		Long: `Batched banded global alignment of nucleotide sequences.

bandalign computes optimal global edit-distance alignments for batches of sequence
pairs with a banded bit-parallel kernel, widening the band per pair until the result
is provably optimal or the configured maximum bandwidth is reached.`,
		SilenceUsage: true,
	}
}
