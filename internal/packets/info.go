package packets

import "encoding/binary"

// infoPayloadLen is the minimum payload length (after the echo) the Info
// codec accepts: page_size(2) n_buff_page(2) n_flash_page(2) flash_start(2)
// cpu_id(12) version(1).
const infoPayloadLen = 2 + 2 + 2 + 2 + 12 + 1

// Info is the bootloader's info record for one target: flash/buffer page
// geometry plus an opaque legacy CPU identifier.
type Info struct {
	PageSize    uint16
	NBuffPage   uint16
	NFlashPage  uint16
	FlashStart  uint16
	CPUID       [12]byte
	Version     uint8
}

// DecodeInfo parses an Info record from a response frame (including its
// [0xFF, target, cmd] echo).
func DecodeInfo(frame []byte) (Info, error) {
	payload, ok := Payload(frame)
	if !ok || len(payload) < infoPayloadLen {
		return Info{}, malformed("Info", len(frame)-EchoLen, infoPayloadLen)
	}
	var info Info
	info.PageSize = binary.LittleEndian.Uint16(payload[0:2])
	info.NBuffPage = binary.LittleEndian.Uint16(payload[2:4])
	info.NFlashPage = binary.LittleEndian.Uint16(payload[4:6])
	info.FlashStart = binary.LittleEndian.Uint16(payload[6:8])
	copy(info.CPUID[:], payload[8:20])
	info.Version = payload[20]
	return info, nil
}
