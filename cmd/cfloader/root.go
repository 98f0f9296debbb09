package main

import (
	"context"
	"fmt"

	"github.com/quadlink/cfloader"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	portFlag    string
	verboseFlag bool
	log         = logrus.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cfloader",
		Short:         "Flash and read the quadcopter's dual-MCU bootloader over a radio dongle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.InfoLevel)
			}
			return nil
		},
	}

	pflags := root.PersistentFlags()
	pflags.StringVar(&portFlag, "port", "", "serial port the radio dongle is attached to (required)")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "log retry and progress detail")

	root.AddCommand(newInfoCmd(), newFlashCmd(), newReadCmd(), newVerifyCmd())
	return root
}

// openLoader opens the configured serial port, wraps it as a link.Radio,
// and constructs a cfloader.Loader over it, fetching both targets' info.
func openLoader(ctx context.Context) (*cfloader.Loader, error) {
	if portFlag == "" {
		return nil, fmt.Errorf("--port is required")
	}
	radio, err := newSerialRadio(portFlag, log)
	if err != nil {
		return nil, err
	}
	loader, err := cfloader.Open(ctx, radio)
	if err != nil {
		radio.Close()
		return nil, err
	}
	return loader, nil
}

func parseTarget(s string) (cfloader.Target, error) {
	switch s {
	case "stm32", "STM32":
		return cfloader.STM32, nil
	case "nrf51", "nRF51", "NRF51":
		return cfloader.NRF51, nil
	default:
		return cfloader.Target{}, fmt.Errorf("unknown target %q (want stm32 or nrf51)", s)
	}
}
