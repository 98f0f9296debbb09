package packets

import "encoding/binary"

// bufferReadMinLen is the minimum payload length (after the echo): page(2)
// offset(2), data may be empty.
const bufferReadMinLen = 4

// BufferReadPacket is the response to a read_buffer command.
type BufferReadPacket struct {
	Page   uint16
	Offset uint16
	Data   []byte
}

// DecodeBufferRead parses a BufferReadPacket from a response frame.
func DecodeBufferRead(frame []byte) (BufferReadPacket, error) {
	payload, ok := Payload(frame)
	if !ok || len(payload) < bufferReadMinLen {
		return BufferReadPacket{}, malformed("BufferRead", len(frame)-EchoLen, bufferReadMinLen)
	}
	return BufferReadPacket{
		Page:   binary.LittleEndian.Uint16(payload[0:2]),
		Offset: binary.LittleEndian.Uint16(payload[2:4]),
		Data:   append([]byte(nil), payload[4:]...),
	}, nil
}
