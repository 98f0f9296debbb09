package main

import (
	"fmt"

	"github.com/quadlink/cfloader"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Open the link, fetch both targets' info, and print a summary",
		Long: "info performs a minimal connectivity check: open the link, fetch both\n" +
			"targets' info records, and print them. A non-zero exit means the link\n" +
			"could not reach one or both bootloaders.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := openLoader(cmd.Context())
			if err != nil {
				return err
			}
			defer loader.Close()

			fmt.Fprintln(cmd.OutOrStdout(), loader.Summary())

			for _, target := range []cfloader.Target{cfloader.STM32, cfloader.NRF51} {
				vbat, err := loader.Commands(target).GetVbat(cmd.Context())
				if err != nil {
					log.WithField("target", target).WithError(err).Warn("get_vbat failed")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: vbat=%.2fV\n", target, vbat)
			}
			return nil
		},
	}
}
