package bootloader

import "fmt"

// PayloadTooLargeError reports that load_buffer was asked to send more than
// the protocol's 25-byte-per-call cap.
type PayloadTooLargeError struct {
	Got int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("load_buffer payload too large: %d bytes (max %d)", e.Got, LoadBufferMaxPayload)
}

// StalePacketError reports that read_flash's echoed (page, offset) did not
// match what was requested.
type StalePacketError struct {
	RequestedPage, RequestedOffset uint16
	ReceivedPage, ReceivedOffset   uint16
}

func (e *StalePacketError) Error() string {
	return fmt.Sprintf("stale packet: requested (page=%d, offset=%d), received (page=%d, offset=%d)",
		e.RequestedPage, e.RequestedOffset, e.ReceivedPage, e.ReceivedOffset)
}

// FlashFailedError reports that the device responded to write_flash with a
// non-success status.
type FlashFailedError struct {
	Kind string
}

func (e *FlashFailedError) Error() string {
	return fmt.Sprintf("flash operation failed: %s", e.Kind)
}

// InvalidArgumentError reports a precondition violation caught before any
// radio transaction was attempted (e.g. an out-of-range flash page).
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Msg }
