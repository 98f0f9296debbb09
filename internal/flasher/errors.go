package flasher

import "fmt"

// InvalidArgumentError reports a precondition violation caught before the
// write_flash transaction it concerns was attempted. The flash page range
// of a chunk is checked after that chunk has been staged with load_buffer.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Msg }

// ShortReadError reports that a read_flash transaction returned fewer
// bytes than needed with no way to make progress.
type ShortReadError struct {
	BytesRead, Requested int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: got %d of %d requested bytes and device returned no further data", e.BytesRead, e.Requested)
}
