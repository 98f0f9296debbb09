package flasher

import "context"

// Read reads length bytes of flash starting at startAddress, walking one
// read_flash transaction at a time. read_flash itself rejects any response
// whose echoed (page, offset) disagrees with the request, so stale
// responses can never corrupt the result (they surface as an error from
// the command layer instead). progress, if non-nil, is invoked after each
// transaction.
func (f *Flasher) Read(ctx context.Context, startAddress, length uint32, progress ProgressFunc) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}

	pageSize := uint32(f.info.PageSize)
	output := make([]byte, 0, length)
	var bytesRead uint32
	addr := startAddress

	for bytesRead < length {
		page := uint16(addr / pageSize)
		offset := uint16(addr % pageSize)

		pkt, err := f.cmds.ReadFlash(ctx, page, offset)
		if err != nil {
			return nil, err
		}

		remaining := length - bytesRead
		take := remaining
		if uint32(len(pkt.Data)) < take {
			take = uint32(len(pkt.Data))
		}
		if take > MaxReadSize {
			take = MaxReadSize
		}
		if take == 0 {
			return nil, &ShortReadError{BytesRead: int(bytesRead), Requested: int(length)}
		}

		output = append(output, pkt.Data[:take]...)
		bytesRead += take
		addr += take
		if progress != nil {
			progress(int(bytesRead), int(length))
		}
	}
	return output, nil
}
