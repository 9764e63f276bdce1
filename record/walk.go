package record

import (
	"errors"
	"io"
)

// Walk sequentially decodes records from r starting at offset 0, calling fn
// with each record and the offset it was read from. Per spec, any read that
// returns fewer bytes than requested (a partial record at end-of-file)
// terminates the walk without error — only decode/read failures other than
// truncation are propagated.
func Walk(r io.ReaderAt, fn func(rec Record, offset int64) error) error {
	var offset int64
	for {
		rec, err := DecodeAt(r, offset)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		if err := fn(rec, offset); err != nil {
			return err
		}
		offset += rec.Size
	}
}
