package packets

import (
	"encoding/binary"
	"math"
)

// vbatFrameMinLen is the minimum full-frame length carrying the
// little-endian f32 battery voltage at bytes [2:6] of the response frame
// (the device overlaps the reading with the tail of its command echo; this
// is an original-firmware quirk this codec preserves rather than "fixes").
const vbatFrameMinLen = 6

// DecodeVbat parses the battery voltage, in volts, from a get_vbat response.
func DecodeVbat(frame []byte) (float32, error) {
	if len(frame) < vbatFrameMinLen {
		return 0, malformed("Vbat", len(frame), vbatFrameMinLen)
	}
	bits := binary.LittleEndian.Uint32(frame[2:6])
	return math.Float32frombits(bits), nil
}

// DecodeMapping returns the raw mapping payload from a get_mapping
// response, with no further interpretation (the layout is device-specific
// and opaque to this library).
func DecodeMapping(frame []byte) ([]byte, error) {
	payload, ok := Payload(frame)
	if !ok {
		return nil, malformed("Mapping", len(frame), EchoLen)
	}
	return append([]byte(nil), payload...), nil
}
