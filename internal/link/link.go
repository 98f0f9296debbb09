// Package link implements the half-duplex, polled request/response protocol
// that sits directly on top of the best-effort per-packet-ACK radio
// primitive. It turns that primitive's unreliable, packet-sized
// transactions into the three operations the bootloader command layer
// needs: fire-and-forget send, request/response, and request/response with
// partial prefix matching.
package link

import (
	"bytes"
	"context"
	"time"
)

// MaxRetries is the number of whole transaction attempts the link makes
// before giving up with a TimeoutError.
const MaxRetries = 10

// ShortTimeout is the per-attempt timeout for queries that should return
// directly.
const ShortTimeout = 10 * time.Millisecond

// FlashTimeout is the per-attempt timeout for the flash-write command,
// whose erase/program cycle on the device can exceed one second.
const FlashTimeout = 2 * time.Second

// pollInterval is the delay between polls while waiting for an ACK or a
// matching response.
const pollInterval = 1 * time.Millisecond

// fillerPayload is sent during the polling phase to retrieve a pending
// response without resending the original command.
var fillerPayload = []byte{0xFF}

// DefaultAddress is the 5-byte ESB address the bootloader listens on
// unless overridden at Link construction.
var DefaultAddress = [5]byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}

// DefaultChannel is the ESB channel the bootloader listens on.
const DefaultChannel uint8 = 0

// Radio is the contract this package consumes from the USB radio driver.
// It is the only point of contact with hardware or a transport; everything
// below it (USB enumeration, SPI/ESB framing, per-packet retransmission) is
// opaque to this package.
type Radio interface {
	// SendPacket transmits payload on channel/address and reports whether
	// the device ACK'd it and, if so, the response piggybacked on that
	// ACK (which may be empty). A non-nil error means the radio primitive
	// itself failed (e.g. the USB dongle was disconnected); it is never
	// retried by Link.
	SendPacket(ctx context.Context, channel uint8, address [5]byte, payload []byte) (ackReceived bool, response []byte, err error)
}

// Link drives a single Radio through the bootloader's half-duplex
// request/response protocol. A Link owns its Radio exclusively; it is not
// safe for concurrent use by multiple goroutines — only one request may be
// in flight at a time.
type Link struct {
	radio   Radio
	channel uint8
	address [5]byte
}

// New creates a Link over radio using the default channel and address.
func New(radio Radio) *Link {
	return &Link{radio: radio, channel: DefaultChannel, address: DefaultAddress}
}

// NewWithAddress creates a Link over radio using an overridden address.
func NewWithAddress(radio Radio, address [5]byte) *Link {
	return &Link{radio: radio, channel: DefaultChannel, address: address}
}

// Send delivers data once, succeeding as soon as the radio reports an ACK.
// The whole transaction is retried up to MaxRetries times if no ACK arrives
// within timeout; it fails with a *TimeoutError once every attempt has been
// exhausted.
func (l *Link) Send(ctx context.Context, data []byte, timeout time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		err := l.trySend(ctx, data, timeout)
		if err == nil {
			return nil
		}
		if _, isRadio := err.(*RadioError); isRadio {
			return err
		}
		lastErr = err
	}
	return &TimeoutError{Attempts: MaxRetries, Reason: lastErr.Error()}
}

// Request behaves like Send, then keeps polling with a one-byte filler
// payload until a response whose bytes start with data arrives, or the
// timeout expires.
func (l *Link) Request(ctx context.Context, data []byte, timeout time.Duration) ([]byte, error) {
	return l.requestWithPredicate(ctx, data, timeout, func(candidate []byte) bool {
		return bytes.HasPrefix(candidate, data)
	})
}

// RequestWithPrefixMatch behaves like Request, but only the first matchLen
// bytes of the response must equal the first matchLen bytes of data.
func (l *Link) RequestWithPrefixMatch(ctx context.Context, data []byte, matchLen int, timeout time.Duration) ([]byte, error) {
	if matchLen > len(data) {
		return nil, &InvalidArgumentError{Msg: "match_len greater than len(data)"}
	}
	prefix := data[:matchLen]
	return l.requestWithPredicate(ctx, data, timeout, func(candidate []byte) bool {
		return len(candidate) >= matchLen && bytes.Equal(candidate[:matchLen], prefix)
	})
}

func (l *Link) requestWithPredicate(ctx context.Context, data []byte, timeout time.Duration, satisfies func([]byte) bool) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		response, err := l.tryRequest(ctx, data, timeout, satisfies)
		if err == nil {
			return response, nil
		}
		if _, isRadio := err.(*RadioError); isRadio {
			return nil, err
		}
		lastErr = err
	}
	return nil, &TimeoutError{Attempts: MaxRetries, Reason: lastErr.Error()}
}

// trySend is one SEND_WAITING_ACK attempt: it keeps calling the radio
// primitive with data until it ACKs, or the attempt's timeout window
// elapses.
func (l *Link) trySend(ctx context.Context, data []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		ack, _, err := l.radio.SendPacket(ctx, l.channel, l.address, data)
		if err != nil {
			return &RadioError{Err: err}
		}
		if ack {
			return nil
		}
		sleep(ctx, pollInterval)
	}
	return &TimeoutError{Attempts: 1, Reason: "no ACK received for send"}
}

// tryRequest is one attempt of the SEND_WAITING_ACK / POLL_WAITING_RESPONSE
// state machine shared by Request and RequestWithPrefixMatch.
func (l *Link) tryRequest(ctx context.Context, data []byte, timeout time.Duration, satisfies func([]byte) bool) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	var candidate []byte
	gotAck := false
	for time.Now().Before(deadline) && !gotAck {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ack, response, err := l.radio.SendPacket(ctx, l.channel, l.address, data)
		if err != nil {
			return nil, &RadioError{Err: err}
		}
		if ack {
			gotAck = true
			candidate = response
			break
		}
		sleep(ctx, pollInterval)
	}
	if !gotAck {
		return nil, &TimeoutError{Attempts: 1, Reason: "no ACK received for initial packet"}
	}

	for time.Now().Before(deadline) && !satisfies(candidate) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ack, response, err := l.radio.SendPacket(ctx, l.channel, l.address, fillerPayload)
		if err != nil {
			return nil, &RadioError{Err: err}
		}
		if ack {
			candidate = response
		}
		sleep(ctx, pollInterval)
	}

	if !satisfies(candidate) {
		return nil, &TimeoutError{Attempts: 1, Reason: "no prefix-matching response received"}
	}
	return candidate, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
