package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/quadlink/cfloader"
	"github.com/spf13/cobra"
	"zappem.net/pub/debug/xcrc32"
)

var (
	verifyAddressFlag uint32
	verifyBothFlag    bool
	verifyNoFlashFlag bool
	verifyNRF51Image  string
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <stm32|nrf51> <image-file>",
		Short: "Flash an image and read it back to confirm a byte-for-byte match",
		Long: "verify flashes image-file to the named target at --address, reads the\n" +
			"same range back, and compares it byte-for-byte (and by CRC32). With\n" +
			"--no-flash it skips flashing and only checks the existing flash\n" +
			"contents against image-file. With --both, it also flashes/verifies\n" +
			"--nrf51-image to the nRF51 target in the same invocation.",
		Args: cobra.ExactArgs(2),
		RunE: runVerify,
	}
	cmd.Flags().Uint32Var(&verifyAddressFlag, "address", 0, "start address in flash (bytes)")
	cmd.Flags().BoolVar(&verifyBothFlag, "both", false, "also flash/verify --nrf51-image to the nRF51 target")
	cmd.Flags().BoolVar(&verifyNoFlashFlag, "no-flash", false, "skip flashing; only verify existing flash contents")
	cmd.Flags().StringVar(&verifyNRF51Image, "nrf51-image", "", "nRF51 image file, required with --both")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	if verifyBothFlag && verifyNRF51Image == "" {
		return fmt.Errorf("--both requires --nrf51-image")
	}

	loader, err := openLoader(cmd.Context())
	if err != nil {
		return err
	}
	defer loader.Close()

	if err := verifyOne(cmd.Context(), cmd, loader, target, args[1]); err != nil {
		return err
	}
	if verifyBothFlag {
		if err := verifyOne(cmd.Context(), cmd, loader, cfloader.NRF51, verifyNRF51Image); err != nil {
			return err
		}
	}
	return nil
}

func verifyOne(ctx context.Context, cmd *cobra.Command, loader *cfloader.Loader, target cfloader.Target, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if !verifyNoFlashFlag {
		if err := loader.Flash(ctx, target, verifyAddressFlag, image, nil); err != nil {
			return fmt.Errorf("flashing %s: %w", target, err)
		}
	}

	readBack, err := loader.Read(ctx, target, verifyAddressFlag, uint32(len(image)), nil)
	if err != nil {
		return fmt.Errorf("reading back %s: %w", target, err)
	}

	_, wantCRC := xcrc32.NewCRC32(image)
	_, gotCRC := xcrc32.NewCRC32(readBack)

	if !bytes.Equal(image, readBack) {
		return fmt.Errorf("%s: verify failed: crc32 got=0x%08x want=0x%08x", target, gotCRC, wantCRC)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d bytes, crc32=0x%08x)\n", target, len(image), gotCRC)
	return nil
}
