package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var flashAddressFlag uint32

func newFlashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flash <stm32|nrf51> <image-file>",
		Short: "Flash an image to a target starting at --address",
		Args:  cobra.ExactArgs(2),
		RunE:  runFlash,
	}
	cmd.Flags().Uint32Var(&flashAddressFlag, "address", 0, "start address in flash (bytes)")
	return cmd
}

func runFlash(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	image, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}

	loader, err := openLoader(cmd.Context())
	if err != nil {
		return err
	}
	defer loader.Close()

	bar := progressbar.DefaultBytes(int64(len(image)), fmt.Sprintf("flashing %s", target))
	progress := func(written, total int) {
		bar.Set(written)
		log.WithField("target", target).WithField("written", written).WithField("total", total).Debug("flash progress")
	}

	if err := loader.Flash(cmd.Context(), target, flashAddressFlag, image, progress); err != nil {
		return fmt.Errorf("flashing %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nflashed %d bytes to %s at 0x%06x\n", len(image), target, flashAddressFlag)
	return nil
}
