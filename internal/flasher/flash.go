// Package flasher implements the chunked flashing and linear reading
// algorithms that tile a firmware image across a target's RAM buffer pages
// and flash pages, on top of the bootloader command layer.
package flasher

import (
	"context"
	"fmt"
	"time"

	"github.com/quadlink/cfloader/internal/bootloader"
	"github.com/quadlink/cfloader/internal/link"
	"github.com/quadlink/cfloader/internal/packets"
)

// MaxReadSize is the most data a single read_flash transaction can return
// in practice.
const MaxReadSize = 27

// ProgressFunc reports flashing or reading progress as
// (bytesProcessed, total).
type ProgressFunc func(processed, total int)

// Flasher runs the flashing and reading algorithms for one target, using a
// cached, read-only copy of that target's Info record.
type Flasher struct {
	cmds *bootloader.Commands
	info packets.Info
}

// New returns a Flasher for cmds' target using the given (already fetched)
// Info record.
func New(cmds *bootloader.Commands, info packets.Info) *Flasher {
	return &Flasher{cmds: cmds, info: info}
}

// Flash writes image to flash starting at startAddress. start_address need
// not be page-aligned; the caller is responsible for any don't-care tail
// bytes beyond the image's last page. progress, if non-nil, is invoked
// after each chunk commits.
func (f *Flasher) Flash(ctx context.Context, startAddress uint32, image []byte, progress ProgressFunc) error {
	pageSize := uint32(f.info.PageSize)
	nBuffPage := uint32(f.info.NBuffPage)
	nFlashPage := uint32(f.info.NFlashPage)
	flashStart := uint32(f.info.FlashStart)

	startPage := startAddress / pageSize
	if startPage < flashStart {
		return &InvalidArgumentError{Msg: fmt.Sprintf("start page %d is before flash_start page %d", startPage, flashStart)}
	}

	bufferCapacity := pageSize * nBuffPage
	bytesWritten := 0
	currentFlashPage := startPage

	for bytesWritten < len(image) {
		remaining := len(image) - bytesWritten
		chunkLen := remaining
		if uint32(chunkLen) > bufferCapacity {
			chunkLen = int(bufferCapacity)
		}
		chunk := image[bytesWritten : bytesWritten+chunkLen]

		if err := f.stage(ctx, chunk, pageSize); err != nil {
			return err
		}

		nPages := uint16((uint32(chunkLen) + pageSize - 1) / pageSize)
		if currentFlashPage+uint32(nPages) > nFlashPage {
			return &InvalidArgumentError{Msg: fmt.Sprintf(
				"flash page range [%d, %d) exceeds n_flash_page=%d", currentFlashPage, currentFlashPage+uint32(nPages), nFlashPage)}
		}

		if err := f.commitResilient(ctx, uint16(currentFlashPage), nPages); err != nil {
			return err
		}

		bytesWritten += chunkLen
		currentFlashPage += uint32(nPages)
		if progress != nil {
			progress(bytesWritten, len(image))
		}
	}
	return nil
}

// stage writes chunk into RAM buffer pages starting at (buffer_page=0,
// offset=0), splitting within a page into load_buffer calls of at most
// LoadBufferMaxPayload bytes each.
func (f *Flasher) stage(ctx context.Context, chunk []byte, pageSize uint32) error {
	chunkOffset := 0
	bufferPage := uint16(0)

	for chunkOffset < len(chunk) {
		remainingInChunk := len(chunk) - chunkOffset
		bytesInPage := remainingInChunk
		if uint32(bytesInPage) > pageSize {
			bytesInPage = int(pageSize)
		}

		pageOffset := uint16(0)
		written := 0
		for written < bytesInPage {
			remainingInPage := bytesInPage - written
			loadSize := remainingInPage
			if loadSize > bootloader.LoadBufferMaxPayload {
				loadSize = bootloader.LoadBufferMaxPayload
			}
			data := chunk[chunkOffset+written : chunkOffset+written+loadSize]
			if err := f.cmds.LoadBuffer(ctx, bufferPage, pageOffset, data); err != nil {
				return err
			}
			pageOffset += uint16(loadSize)
			written += loadSize
		}

		chunkOffset += bytesInPage
		bufferPage++
	}
	return nil
}

// commitResilient calls WriteFlash once. WriteFlash goes through the link's
// normal retry loop, so a lost ACK or response makes the link re-send the
// write_flash request, up to link.MaxRetries attempts. Only once the link
// gives up with a timeout (rather than the device reporting a definite
// failure) does commitResilient poll flash_status, for one further
// link.FlashTimeout, without sending write_flash again.
func (f *Flasher) commitResilient(ctx context.Context, flashPage uint16, nPages uint16) error {
	_, err := f.cmds.WriteFlash(ctx, 0, flashPage, nPages)
	if err == nil {
		return nil
	}
	if !link.IsTimeout(err) {
		return err
	}

	deadline := time.Now().Add(link.FlashTimeout)
	for time.Now().Before(deadline) {
		status, statusErr := f.cmds.FlashStatus(ctx)
		if statusErr == nil && status.Done {
			if status.IsSuccess() {
				return nil
			}
			return &bootloader.FlashFailedError{Kind: status.Error.String()}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bootloader.FlashStatusPollInterval):
		}
	}
	return err
}
