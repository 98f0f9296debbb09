package cfloader

import (
	"context"
	"fmt"
	"io"

	"github.com/quadlink/cfloader/internal/bootloader"
	"github.com/quadlink/cfloader/internal/flasher"
	"github.com/quadlink/cfloader/internal/link"
	"github.com/quadlink/cfloader/internal/packets"
)

// Radio is the transport contract a caller must satisfy to Open a Loader.
type Radio = link.Radio

// ProgressFunc reports flashing or reading progress as
// (bytesProcessed, total).
type ProgressFunc = flasher.ProgressFunc

// Loader is a single handle bundling a link plus cached info records for
// both bootloader targets. It is constructed once per session and is not
// reentrant: calling two methods concurrently on the same Loader is
// undefined, since both targets share one underlying Link.
type Loader struct {
	radio link.Radio
	l     *link.Link

	stm32Cmds *bootloader.Commands
	nrf51Cmds *bootloader.Commands

	stm32Info packets.Info
	nrf51Info packets.Info

	stm32Flasher *flasher.Flasher
	nrf51Flasher *flasher.Flasher
}

// Open constructs a Loader over radio, fetching both targets' info records
// in sequence. It fails with a *NotRespondingError naming the first target
// whose info fetch failed.
func Open(ctx context.Context, radio link.Radio) (*Loader, error) {
	l := link.New(radio)
	stm32Cmds := bootloader.New(l, bootloader.STM32)
	nrf51Cmds := bootloader.New(l, bootloader.NRF51)

	stm32Info, err := stm32Cmds.GetInfo(ctx)
	if err != nil {
		return nil, &NotRespondingError{Target: STM32, Err: err}
	}
	nrf51Info, err := nrf51Cmds.GetInfo(ctx)
	if err != nil {
		return nil, &NotRespondingError{Target: NRF51, Err: err}
	}

	return &Loader{
		radio:        radio,
		l:            l,
		stm32Cmds:    stm32Cmds,
		nrf51Cmds:    nrf51Cmds,
		stm32Info:    stm32Info,
		nrf51Info:    nrf51Info,
		stm32Flasher: flasher.New(stm32Cmds, stm32Info),
		nrf51Flasher: flasher.New(nrf51Cmds, nrf51Info),
	}, nil
}

// Info returns the cached info record fetched for target at Open time.
func (ld *Loader) Info(target Target) packets.Info {
	if target.Equal(bootloader.STM32) {
		return ld.stm32Info
	}
	return ld.nrf51Info
}

// Commands returns the command layer addressing target, for callers that
// need operations the facade doesn't wrap directly (get_vbat, get_mapping,
// read_buffer, set_address, the power commands).
func (ld *Loader) Commands(target Target) *bootloader.Commands {
	if target.Equal(bootloader.STM32) {
		return ld.stm32Cmds
	}
	return ld.nrf51Cmds
}

func (ld *Loader) flasherFor(target Target) *flasher.Flasher {
	if target.Equal(bootloader.STM32) {
		return ld.stm32Flasher
	}
	return ld.nrf51Flasher
}

// Flash writes image to target's flash starting at startAddress, tiling it
// across RAM buffer pages and flash pages. progress, if non-nil, is
// invoked after each chunk commits.
func (ld *Loader) Flash(ctx context.Context, target Target, startAddress uint32, image []byte, progress ProgressFunc) error {
	return ld.flasherFor(target).Flash(ctx, startAddress, image, progress)
}

// Read reads length bytes of target's flash starting at startAddress.
// progress, if non-nil, is invoked after each read_flash transaction.
func (ld *Loader) Read(ctx context.Context, target Target, startAddress, length uint32, progress ProgressFunc) ([]byte, error) {
	return ld.flasherFor(target).Read(ctx, startAddress, length, progress)
}

// ResetToFirmware sends reset_init then reset(0x01) to the nRF51 target,
// handing control back to application firmware on both MCUs. The Loader is
// considered defunct once this returns: no further method calls are valid.
func (ld *Loader) ResetToFirmware(ctx context.Context) {
	ld.nrf51Cmds.ResetInit(ctx)
	ld.nrf51Cmds.Reset(ctx)
}

// Summary formats both targets' info records into a human-readable string,
// the combined report original_source's get_bootloader_summary produced.
func (ld *Loader) Summary() string {
	return fmt.Sprintf(
		"STM32: page_size=%d n_buff_page=%d n_flash_page=%d flash_start=%d version=%d\n"+
			"nRF51: page_size=%d n_buff_page=%d n_flash_page=%d flash_start=%d version=%d",
		ld.stm32Info.PageSize, ld.stm32Info.NBuffPage, ld.stm32Info.NFlashPage, ld.stm32Info.FlashStart, ld.stm32Info.Version,
		ld.nrf51Info.PageSize, ld.nrf51Info.NBuffPage, ld.nrf51Info.NFlashPage, ld.nrf51Info.FlashStart, ld.nrf51Info.Version,
	)
}

// Close releases the underlying radio, if it implements io.Closer. The
// Loader does not own the radio's lifecycle otherwise; callers that opened
// their own transport are free to close it directly instead.
func (ld *Loader) Close() error {
	if closer, ok := ld.radio.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
