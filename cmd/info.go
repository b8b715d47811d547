package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/bandalign/device"
)

// NewInfoCommand returns the command that describes the devices alignments run on.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print device properties",
		Long:  "Print the properties of every device available for alignment.",
		RunE:  info,
		Args:  cobra.NoArgs,
	}
}

func info(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	for id := 0; id < device.GetDeviceCount(); id++ {
		d, err := device.GetDeviceProperties(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Device %d: %s\n", d.ID, d.Name)
		fmt.Fprintf(out, "  Memory:      %d MiB\n", d.TotalMem>>20)
		fmt.Fprintf(out, "  Cores:       %d\n", d.NumCores)
		fmt.Fprintf(out, "  Max threads: %d\n", d.MaxThreads)
	}
	fmt.Fprintln(out, device.GetCPUInfo())
	_, err := fmt.Fprintf(out, "Hardware popcount: %t\n", device.HardwarePopcount())
	return err
}
