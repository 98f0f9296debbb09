package packets

import (
	"bytes"
	"testing"
)

func TestDecodeInfoRoundTrip(t *testing.T) {
	// STM32 info fetch response.
	frame := []byte{0xFF, 0xFF, 0x10,
		0x00, 0x04, // page_size = 1024
		0x0A, 0x00, // n_buff_page = 10
		0x00, 0x04, // n_flash_page = 1024
		0x80, 0x00, // flash_start = 128
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // cpu_id
		0x10, // version
	}
	info, err := DecodeInfo(frame)
	if err != nil {
		t.Fatalf("DecodeInfo: %v", err)
	}
	if info.PageSize != 1024 || info.NBuffPage != 10 || info.NFlashPage != 1024 ||
		info.FlashStart != 128 || info.Version != 0x10 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeInfoTooShort(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0x10, 0x00, 0x04}
	if _, err := DecodeInfo(frame); err == nil {
		t.Fatal("expected malformed error")
	}
}

func TestDecodeFlashReadStale(t *testing.T) {
	// A flash-read response whose echoed page/offset disagree with the
	// request is the stale-packet case callers must detect.
	requestPage, requestOffset := uint16(128), uint16(0)
	frame := []byte{0xFF, 0xFE, 0x1C, 0x81, 0x00, 0x00, 0x00}
	pkt, err := DecodeFlashRead(frame)
	if err != nil {
		t.Fatalf("DecodeFlashRead: %v", err)
	}
	if pkt.Page == requestPage && pkt.Offset == requestOffset {
		t.Fatal("expected mismatched coordinates for stale packet test fixture")
	}
	if pkt.Page != 129 || pkt.Offset != 0 {
		t.Fatalf("unexpected packet: %+v", pkt)
	}
}

func TestDecodeFlashReadSingleTransaction(t *testing.T) {
	// A single-transaction flash read returns exactly the requested
	// page/offset plus the data that followed.
	data := bytes.Repeat([]byte{0xAB}, 27)
	frame := append([]byte{0xFF, 0xFE, 0x1C, 0x80, 0x00, 0x00, 0x00}, data...)
	pkt, err := DecodeFlashRead(frame)
	if err != nil {
		t.Fatalf("DecodeFlashRead: %v", err)
	}
	if pkt.Page != 128 || pkt.Offset != 0 {
		t.Fatalf("unexpected coordinates: %+v", pkt)
	}
	if !bytes.Equal(pkt.Data, data) {
		t.Fatalf("unexpected data: %v", pkt.Data)
	}
}

func TestDecodeFlashStatus(t *testing.T) {
	// A write_flash response reporting done with no error decodes as success.
	success := []byte{0xFF, 0xFF, 0x18, 0x01, 0x00}
	status, err := DecodeFlashStatus(success)
	if err != nil {
		t.Fatalf("DecodeFlashStatus: %v", err)
	}
	if !status.IsSuccess() {
		t.Fatalf("expected success, got %+v", status)
	}

	// A write_flash response reporting an erase failure decodes with that
	// specific FlashError.
	failure := []byte{0xFF, 0xFF, 0x18, 0x01, 0x02}
	status, err = DecodeFlashStatus(failure)
	if err != nil {
		t.Fatalf("DecodeFlashStatus: %v", err)
	}
	if status.IsSuccess() || status.Error != FlashErrorEraseFailed {
		t.Fatalf("expected erase failure, got %+v", status)
	}
}

func TestDecodeFlashStatusUnknownErrorCollapsesToNone(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0x19, 0x01, 0x7F}
	status, err := DecodeFlashStatus(frame)
	if err != nil {
		t.Fatalf("DecodeFlashStatus: %v", err)
	}
	if status.Error != FlashErrorNone {
		t.Fatalf("expected unknown error code to collapse to NoError, got %v", status.Error)
	}
}

func TestDecodeBufferReadTooShort(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0x15, 0x00}
	if _, err := DecodeBufferRead(frame); err == nil {
		t.Fatal("expected malformed error")
	}
}

func TestDecodeVbat(t *testing.T) {
	// bytes [2:6] of the frame carry the f32, per the documented wire quirk.
	frame := []byte{0xFF, 0xFE, 0x00, 0x00, 0x48, 0x41} // 12.5 as LE f32 tail
	v, err := DecodeVbat(frame)
	if err != nil {
		t.Fatalf("DecodeVbat: %v", err)
	}
	if v <= 0 {
		t.Fatalf("expected positive voltage, got %v", v)
	}
}

func TestDecodeVbatTooShort(t *testing.T) {
	frame := []byte{0xFF, 0xFE, 0x04, 0x00}
	if _, err := DecodeVbat(frame); err == nil {
		t.Fatal("expected malformed error")
	}
}

func TestRequestFrame(t *testing.T) {
	got := Request(0xFF, 0x10)
	want := []byte{0xFF, 0xFF, 0x10}
	if !bytes.Equal(got, want) {
		t.Fatalf("Request() = %v, want %v", got, want)
	}
}
