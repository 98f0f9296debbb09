package packets

import "encoding/binary"

// flashReadMinLen is the minimum payload length (after the echo): page(2)
// offset(2), data may be empty.
const flashReadMinLen = 4

// FlashReadPacket is the response to a read_flash command.
type FlashReadPacket struct {
	Page   uint16
	Offset uint16
	Data   []byte
}

// DecodeFlashRead parses a FlashReadPacket from a response frame.
func DecodeFlashRead(frame []byte) (FlashReadPacket, error) {
	payload, ok := Payload(frame)
	if !ok || len(payload) < flashReadMinLen {
		return FlashReadPacket{}, malformed("FlashRead", len(frame)-EchoLen, flashReadMinLen)
	}
	return FlashReadPacket{
		Page:   binary.LittleEndian.Uint16(payload[0:2]),
		Offset: binary.LittleEndian.Uint16(payload[2:4]),
		Data:   append([]byte(nil), payload[4:]...),
	}, nil
}
