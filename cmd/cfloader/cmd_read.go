package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"zappem.net/pub/debug/xxd"
)

var (
	readAddressFlag uint32
	readLengthFlag  uint32
	readOutFlag     string
	readHexFlag     bool
)

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <stm32|nrf51>",
		Short: "Read a region of a target's flash",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}
	cmd.Flags().Uint32Var(&readAddressFlag, "address", 0, "start address in flash (bytes)")
	cmd.Flags().Uint32Var(&readLengthFlag, "length", 0, "number of bytes to read")
	cmd.Flags().StringVar(&readOutFlag, "out", "", "file to write the read-back data to (default: stdout hex dump)")
	cmd.Flags().BoolVar(&readHexFlag, "hex", false, "hex-dump the read-back data even when --out is set")
	return cmd
}

func runRead(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	if readLengthFlag == 0 {
		return fmt.Errorf("--length must be nonzero")
	}

	loader, err := openLoader(cmd.Context())
	if err != nil {
		return err
	}
	defer loader.Close()

	bar := progressbar.DefaultBytes(int64(readLengthFlag), fmt.Sprintf("reading %s", target))
	progress := func(read, total int) { bar.Set(read) }

	data, err := loader.Read(cmd.Context(), target, readAddressFlag, readLengthFlag, progress)
	if err != nil {
		return fmt.Errorf("reading %s: %w", target, err)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	if readOutFlag != "" {
		if err := os.WriteFile(readOutFlag, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", readOutFlag, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), readOutFlag)
	}
	if readOutFlag == "" || readHexFlag {
		xxd.Print(int(readAddressFlag), data)
	}
	return nil
}
