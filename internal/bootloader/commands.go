// Package bootloader frames the per-target bootloader command set on top
// of a link.Link: each command takes typed arguments, builds the
// [0xFF, target, cmd, ...] request, picks the right link operation and
// timeout, and parses the response through internal/packets.
package bootloader

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quadlink/cfloader/internal/link"
	"github.com/quadlink/cfloader/internal/packets"
)

// Command byte constants, one per bootloader operation.
const (
	cmdGetInfo    = 0x10
	cmdSetAddress = 0x11
	cmdGetMapping = 0x12
	cmdLoadBuffer = 0x14
	cmdReadBuffer = 0x15
	cmdWriteFlash = 0x18
	cmdFlashStatus = 0x19
	cmdReadFlash  = 0x1C
	cmdResetInit  = 0xFF
	cmdReset      = 0xF0
	cmdAllOff     = 0x01
	cmdSysOff     = 0x02
	cmdSysOn      = 0x03
	cmdGetVbat    = 0x04
)

// LoadBufferMaxPayload is the protocol's per-call payload cap for
// load_buffer.
const LoadBufferMaxPayload = 25

// Commands frames and sends the bootloader command set to one target over
// a shared link.
type Commands struct {
	l      *link.Link
	target Target

	// nFlashPage caches the target's flash page count once GetInfo has
	// fetched it, so WriteFlash can bounds-check flashPage+nPages without
	// requiring every caller to pass an Info record through. Zero means
	// unknown: GetInfo has not yet been called on this Commands.
	nFlashPage uint16
}

// New returns a Commands layer addressing target over l.
func New(l *link.Link, target Target) *Commands {
	return &Commands{l: l, target: target}
}

// Target returns the target this Commands instance addresses.
func (c *Commands) Target() Target { return c.target }

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// GetInfo fetches the bootloader's info record. As a side effect, it caches
// n_flash_page so later WriteFlash calls can bounds-check against it.
func (c *Commands) GetInfo(ctx context.Context) (packets.Info, error) {
	req := packets.Request(c.target.Byte(), cmdGetInfo)
	resp, err := c.l.Request(ctx, req, link.ShortTimeout)
	if err != nil {
		return packets.Info{}, err
	}
	info, err := packets.DecodeInfo(resp)
	if err != nil {
		return packets.Info{}, err
	}
	c.nFlashPage = info.NFlashPage
	return info, nil
}

// SetAddress changes the radio address the bootloader listens on.
func (c *Commands) SetAddress(ctx context.Context, address [5]byte) error {
	req := packets.Request(c.target.Byte(), cmdSetAddress, address[:]...)
	return c.l.Send(ctx, req, link.ShortTimeout)
}

// GetMapping fetches the raw, device-specific flash mapping bytes.
func (c *Commands) GetMapping(ctx context.Context) ([]byte, error) {
	req := packets.Request(c.target.Byte(), cmdGetMapping)
	resp, err := c.l.Request(ctx, req, link.ShortTimeout)
	if err != nil {
		return nil, err
	}
	return packets.DecodeMapping(resp)
}

// LoadBuffer stages up to 25 bytes of data into the RAM buffer at
// (page, offset).
func (c *Commands) LoadBuffer(ctx context.Context, page, offset uint16, data []byte) error {
	if len(data) > LoadBufferMaxPayload {
		return &PayloadTooLargeError{Got: len(data)}
	}
	args := append(le16(page), le16(offset)...)
	args = append(args, data...)
	req := packets.Request(c.target.Byte(), cmdLoadBuffer, args...)
	return c.l.Send(ctx, req, link.ShortTimeout)
}

// ReadBuffer reads back data previously staged into the RAM buffer.
func (c *Commands) ReadBuffer(ctx context.Context, page, offset uint16) (packets.BufferReadPacket, error) {
	args := append(le16(page), le16(offset)...)
	req := packets.Request(c.target.Byte(), cmdReadBuffer, args...)
	resp, err := c.l.Request(ctx, req, link.ShortTimeout)
	if err != nil {
		return packets.BufferReadPacket{}, err
	}
	return packets.DecodeBufferRead(resp)
}

// WriteFlash commits n_pages pages starting at bufferPage in the RAM
// buffer to flash starting at flashPage. Only responses whose first 3
// bytes echo [0xFF, target, 0x18] are accepted, since the operation may
// take long enough for a stale response from a previous command to arrive.
// It fails with *InvalidArgumentError, before issuing any radio
// transaction, if flashPage+nPages would run past n_flash_page and that
// count is known (i.e. GetInfo has been called on this Commands). It fails
// with *FlashFailedError if the device reports anything other than
// success.
func (c *Commands) WriteFlash(ctx context.Context, bufferPage, flashPage, nPages uint16) (packets.FlashStatus, error) {
	if c.nFlashPage != 0 && uint32(flashPage)+uint32(nPages) > uint32(c.nFlashPage) {
		return packets.FlashStatus{}, &InvalidArgumentError{Msg: fmt.Sprintf(
			"flash page range [%d, %d) exceeds n_flash_page=%d", flashPage, uint32(flashPage)+uint32(nPages), c.nFlashPage)}
	}
	args := append(le16(bufferPage), le16(flashPage)...)
	args = append(args, le16(nPages)...)
	req := packets.Request(c.target.Byte(), cmdWriteFlash, args...)
	resp, err := c.l.RequestWithPrefixMatch(ctx, req, 3, link.FlashTimeout)
	if err != nil {
		return packets.FlashStatus{}, err
	}
	status, err := packets.DecodeFlashStatus(resp)
	if err != nil {
		return packets.FlashStatus{}, err
	}
	if !status.IsSuccess() {
		return status, &FlashFailedError{Kind: status.Error.String()}
	}
	return status, nil
}

// FlashStatus queries the status of any ongoing or completed flash
// operation.
func (c *Commands) FlashStatus(ctx context.Context) (packets.FlashStatus, error) {
	req := packets.Request(c.target.Byte(), cmdFlashStatus)
	resp, err := c.l.Request(ctx, req, link.ShortTimeout)
	if err != nil {
		return packets.FlashStatus{}, err
	}
	return packets.DecodeFlashStatus(resp)
}

// ReadFlash reads one transaction's worth of data directly from flash at
// (page, offset), failing with *StalePacketError if the echoed coordinates
// disagree with what was requested. Only the [0xFF, target, 0x1C] echo is
// matched at the link, so a reply with other coordinates reaches the check.
func (c *Commands) ReadFlash(ctx context.Context, page, offset uint16) (packets.FlashReadPacket, error) {
	args := append(le16(page), le16(offset)...)
	req := packets.Request(c.target.Byte(), cmdReadFlash, args...)
	resp, err := c.l.RequestWithPrefixMatch(ctx, req, packets.EchoLen, link.ShortTimeout)
	if err != nil {
		return packets.FlashReadPacket{}, err
	}
	pkt, err := packets.DecodeFlashRead(resp)
	if err != nil {
		return packets.FlashReadPacket{}, err
	}
	if pkt.Page != page || pkt.Offset != offset {
		return packets.FlashReadPacket{}, &StalePacketError{
			RequestedPage: page, RequestedOffset: offset,
			ReceivedPage: pkt.Page, ReceivedOffset: pkt.Offset,
		}
	}
	return pkt, nil
}

// ResetInit prepares the bootloader for a clean reset sequence. Link
// errors are swallowed: the device often stops responding mid-transaction
// by design once a reset sequence begins.
func (c *Commands) ResetInit(ctx context.Context) {
	req := packets.Request(c.target.Byte(), cmdResetInit)
	_ = c.l.Send(ctx, req, link.ShortTimeout)
}

// Reset triggers a system reset back into firmware mode. The trailing 0x01
// form is used; the no-argument form is legacy and not exposed here. Link
// errors are swallowed for the same reason as ResetInit.
func (c *Commands) Reset(ctx context.Context) {
	req := packets.Request(c.target.Byte(), cmdReset, 0x01)
	_ = c.l.Send(ctx, req, link.ShortTimeout)
}

// AllOff shuts down all subsystems. Link errors are swallowed.
func (c *Commands) AllOff(ctx context.Context) {
	req := packets.Request(c.target.Byte(), cmdAllOff)
	_ = c.l.Send(ctx, req, link.ShortTimeout)
}

// SysOff powers off the STM32 while keeping the nRF51 running. Link errors
// are swallowed.
func (c *Commands) SysOff(ctx context.Context) {
	req := packets.Request(c.target.Byte(), cmdSysOff)
	_ = c.l.Send(ctx, req, link.ShortTimeout)
}

// SysOn powers the STM32 back on. Link errors are swallowed.
func (c *Commands) SysOn(ctx context.Context) {
	req := packets.Request(c.target.Byte(), cmdSysOn)
	_ = c.l.Send(ctx, req, link.ShortTimeout)
}

// GetVbat reads the current battery voltage in volts.
func (c *Commands) GetVbat(ctx context.Context) (float32, error) {
	req := packets.Request(c.target.Byte(), cmdGetVbat)
	resp, err := c.l.Request(ctx, req, link.ShortTimeout)
	if err != nil {
		return 0, err
	}
	return packets.DecodeVbat(resp)
}

// FlashStatusPollInterval paces flash_status polling during the
// write_flash retry path (see internal/flasher's resilient commit).
const FlashStatusPollInterval = 20 * time.Millisecond
