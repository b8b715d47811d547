package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/bandalign"
)

// NewVersionCommand returns the command to get the bandalign version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the bandalign version",
		Long:  "Return the bandalign version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	v, sum := bandalign.Version()
	if v == "" {
		v = "(devel)"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "bandalign Version %s sum %s %s/%s %s\n", v, sum, runtime.GOOS, runtime.GOARCH, runtime.Version())
	return err
}
