package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// serialRadio adapts a USB-CDC serial port to the link.Radio interface for
// a test rig: a small host-computer-facing framing that carries the
// opaque send_packet primitive over a byte stream instead of an actual ESB
// dongle. Frame out: [channel, address(5), len(payload), payload...].
// Frame in: [ack, len(response), response...], with a read timeout
// standing in for "no ACK within this attempt's window".
type serialRadio struct {
	port serial.Port
	log  *logrus.Logger
}

func newSerialRadio(portName string, log *logrus.Logger) (*serialRadio, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(20 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("configuring read timeout on %s: %w", portName, err)
	}
	return &serialRadio{port: port, log: log}, nil
}

func (r *serialRadio) Close() error { return r.port.Close() }

// SendPacket implements link.Radio.
func (r *serialRadio) SendPacket(ctx context.Context, channel uint8, address [5]byte, payload []byte) (bool, []byte, error) {
	if len(payload) > 255 {
		return false, nil, fmt.Errorf("payload too large for test-rig framing: %d bytes", len(payload))
	}

	frame := make([]byte, 0, 7+len(payload))
	frame = append(frame, channel)
	frame = append(frame, address[:]...)
	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)
	if _, err := r.port.Write(frame); err != nil {
		return false, nil, fmt.Errorf("writing to serial port: %w", err)
	}

	header := make([]byte, 2)
	n, err := readFull(r.port, header)
	if err != nil {
		return false, nil, err
	}
	if n < len(header) {
		r.log.WithField("bytes", n).Debug("no response header within read timeout")
		return false, nil, nil
	}

	ack := header[0] != 0
	respLen := int(header[1])
	if respLen == 0 {
		return ack, nil, nil
	}
	resp := make([]byte, respLen)
	if _, err := readFull(r.port, resp); err != nil {
		return false, nil, err
	}
	return ack, resp, nil
}

// readFull reads exactly len(buf) bytes or returns early with whatever was
// read by the time the port's read timeout elapses (go.bug.st/serial
// returns n=0, err=nil on a read timeout rather than an error).
func readFull(port serial.Port, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := port.Read(buf[total:])
		if err != nil {
			return total, fmt.Errorf("reading from serial port: %w", err)
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
	return total, nil
}
