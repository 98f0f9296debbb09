// Package packets implements the fixed little-endian wire encodings used by
// the Crazyflie-style dual-MCU bootloader protocol: request/response frames
// and the handful of payload shapes that ride inside them.
package packets

// FramePrefix is the literal byte every request and response frame begins
// with.
const FramePrefix = 0xFF

// Request builds a request frame: [0xFF, target, cmd, args...].
func Request(target, cmd byte, args ...byte) []byte {
	frame := make([]byte, 0, 3+len(args))
	frame = append(frame, FramePrefix, target, cmd)
	frame = append(frame, args...)
	return frame
}

// EchoLen is the length of the [0xFF, target, cmd] prefix every response
// echoes back from its request.
const EchoLen = 3

// Payload strips the leading echo from a response frame and returns the
// payload that follows, or false if frame is shorter than the echo itself.
func Payload(frame []byte) ([]byte, bool) {
	if len(frame) < EchoLen {
		return nil, false
	}
	return frame[EchoLen:], true
}
