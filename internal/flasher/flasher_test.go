package flasher

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/quadlink/cfloader/internal/bootloader"
	"github.com/quadlink/cfloader/internal/link"
)

// fakeDevice is a minimal cooperating device simulator: it maintains RAM
// buffer pages and flash pages and answers bootloader commands
// synchronously, enough to exercise the flashing and reading algorithms
// end-to-end without hardware.
type fakeDevice struct {
	pageSize, nBuffPage, nFlashPage, flashStart uint16
	buffer                                      map[uint16][]byte
	flash                                       map[uint16][]byte
	lastResponse                                []byte
}

func newFakeDevice(pageSize, nBuffPage, nFlashPage, flashStart uint16) *fakeDevice {
	return &fakeDevice{
		pageSize: pageSize, nBuffPage: nBuffPage, nFlashPage: nFlashPage, flashStart: flashStart,
		buffer: make(map[uint16][]byte),
		flash:  make(map[uint16][]byte),
	}
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func (d *fakeDevice) SendPacket(ctx context.Context, channel uint8, address [5]byte, payload []byte) (bool, []byte, error) {
	if len(payload) == 1 && payload[0] == 0xFF {
		return true, d.lastResponse, nil
	}
	if len(payload) < 3 {
		return true, nil, nil
	}
	target := payload[1]
	cmd := payload[2]
	args := payload[3:]

	var resp []byte
	switch cmd {
	case 0x10: // get_info
		resp = append([]byte{0xFF, target, cmd}, le16(d.pageSize)...)
		resp = append(resp, le16(d.nBuffPage)...)
		resp = append(resp, le16(d.nFlashPage)...)
		resp = append(resp, le16(d.flashStart)...)
		resp = append(resp, make([]byte, 12)...)
		resp = append(resp, 0x10)
	case 0x14: // load_buffer
		page := binary.LittleEndian.Uint16(args[0:2])
		offset := binary.LittleEndian.Uint16(args[2:4])
		data := args[4:]
		buf, ok := d.buffer[page]
		if !ok {
			buf = make([]byte, d.pageSize)
			d.buffer[page] = buf
		}
		copy(buf[offset:], data)
		resp = []byte{0xFF, target, cmd}
	case 0x18: // write_flash
		bufPage := binary.LittleEndian.Uint16(args[0:2])
		flashPage := binary.LittleEndian.Uint16(args[2:4])
		nPages := binary.LittleEndian.Uint16(args[4:6])
		for i := uint16(0); i < nPages; i++ {
			src, ok := d.buffer[bufPage+i]
			if !ok {
				src = make([]byte, d.pageSize)
			}
			dst := make([]byte, d.pageSize)
			copy(dst, src)
			d.flash[flashPage+i] = dst
		}
		resp = []byte{0xFF, target, cmd, 0x01, 0x00}
	case 0x1C: // read_flash
		page := binary.LittleEndian.Uint16(args[0:2])
		offset := binary.LittleEndian.Uint16(args[2:4])
		data, ok := d.flash[page]
		if !ok {
			data = make([]byte, d.pageSize)
		}
		take := int(d.pageSize) - int(offset)
		if take > MaxReadSize {
			take = MaxReadSize
		}
		if take < 0 {
			take = 0
		}
		chunk := data[offset : int(offset)+take]
		resp = append([]byte{0xFF, target, cmd}, le16(page)...)
		resp = append(resp, le16(offset)...)
		resp = append(resp, chunk...)
	default:
		resp = []byte{0xFF, target, cmd}
	}
	d.lastResponse = resp
	return true, resp, nil
}

func newTestFlasher(t *testing.T, device *fakeDevice) *Flasher {
	t.Helper()
	cmds := bootloader.New(link.New(device), bootloader.STM32)
	info, err := cmds.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	return New(cmds, info)
}

func TestFlashThenReadRoundTrip(t *testing.T) {
	// A 2100-byte image flashed to STM32 at start_address = 128*1024,
	// page_size=1024, fills three buffer pages and is committed as one
	// write_flash of three flash pages.
	device := newFakeDevice(1024, 10, 1024, 128)
	f := newTestFlasher(t, device)

	image := make([]byte, 2100)
	for i := range image {
		image[i] = byte(i % 251)
	}

	var calls []int
	err := f.Flash(context.Background(), 128*1024, image, func(written, total int) {
		calls = append(calls, written)
		if total != len(image) {
			t.Fatalf("unexpected total in progress callback: %d", total)
		}
	})
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}
	if len(calls) == 0 {
		t.Fatal("expected at least one progress callback")
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Fatalf("progress callback not strictly increasing: %v", calls)
		}
	}
	if calls[len(calls)-1] != len(image) {
		t.Fatalf("expected final progress callback to report %d, got %d", len(image), calls[len(calls)-1])
	}

	readBack, err := f.Read(context.Background(), 128*1024, uint32(len(image)), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(readBack, image) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(readBack), len(image))
	}
}

func TestFlashRejectsPageBeforeFlashStart(t *testing.T) {
	device := newFakeDevice(1024, 10, 1024, 128)
	f := newTestFlasher(t, device)

	err := f.Flash(context.Background(), 0, []byte{0x01, 0x02}, nil)
	if _, ok := err.(*InvalidArgumentError); !ok {
		t.Fatalf("expected *InvalidArgumentError, got %T: %v", err, err)
	}
}

func TestReadZeroLengthMakesNoRadioCall(t *testing.T) {
	device := newFakeDevice(1024, 10, 1024, 128)
	f := newTestFlasher(t, device)

	before := device.lastResponse
	data, err := f.Read(context.Background(), 128*1024, 0, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty read, got %d bytes", len(data))
	}
	if !bytes.Equal(before, device.lastResponse) {
		t.Fatal("expected no radio call for zero-length read")
	}
}

func TestFlashAcrossMultipleBufferPages(t *testing.T) {
	// page_size=1024, n_buff_page=10 -> buffer_capacity=10240; a
	// 1536-byte image fills one buffer page and half of a second, and is
	// committed as 2 flash pages.
	device := newFakeDevice(1024, 10, 1024, 128)
	f := newTestFlasher(t, device)

	image := make([]byte, 1024+512)
	for i := range image {
		image[i] = byte(i)
	}
	if err := f.Flash(context.Background(), 128*1024, image, nil); err != nil {
		t.Fatalf("Flash: %v", err)
	}
	readBack, err := f.Read(context.Background(), 128*1024, uint32(len(image)), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(readBack, image) {
		t.Fatal("round trip mismatch across 2 flash pages")
	}
}

func TestReadRespectsMaxReadSizeFraming(t *testing.T) {
	device := newFakeDevice(1024, 10, 1024, 128)
	f := newTestFlasher(t, device)
	image := make([]byte, 100)
	for i := range image {
		image[i] = byte(200 + i)
	}
	if err := f.Flash(context.Background(), 128*1024, image, nil); err != nil {
		t.Fatalf("Flash: %v", err)
	}
	var progressCalls int
	readBack, err := f.Read(context.Background(), 128*1024, uint32(len(image)), func(p, total int) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(readBack, image) {
		t.Fatal("round trip mismatch")
	}
	if progressCalls < 4 { // 100 bytes / 27 max per transaction
		t.Fatalf("expected multiple read transactions, got %d progress calls", progressCalls)
	}
}
