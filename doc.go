// Package cfloader is a host-side client for the dual-MCU (nRF51 + STM32)
// bootloader of a small quadcopter, reachable over a 2.4 GHz enhanced
// ShockBurst USB radio dongle. It frames and sends bootloader commands,
// drives the half-duplex retry/poll link underneath them, and tiles
// firmware images across a target's RAM buffer and flash pages.
//
// The package owns none of the transport: callers supply a Radio
// implementation (typically a thin adapter around a USB-CDC serial port)
// and everything above that — retries, framing, flashing — is handled
// here.
//
// Library surface:
//
//	radio := /* your Radio implementation */
//	loader, err := cfloader.Open(ctx, radio)
//	err = loader.Flash(ctx, cfloader.STM32, address, image, progress)
//	data, err := loader.Read(ctx, cfloader.STM32, address, length, progress)
//	loader.ResetToFirmware(ctx)
package cfloader
