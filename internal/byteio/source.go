// Package byteio implements a forward-streaming byte source with exactly
// one byte of push-back, an optional initial skip offset, and a
// configurable ceiling on the total number of bytes that may be read.
//
// There is no concurrency here and none is intended — the Source is
// consumed from a single goroutine by the match engine.
package byteio

import (
	"bufio"
	"io"

	"github.com/coregx/hexd/internal/diag"
)

// Source streams bytes from an io.Reader with one-byte push-back.
type Source struct {
	r       *bufio.Reader
	seeker  io.Seeker // non-nil only when the underlying stream supports seeking
	program string
	path    string

	total   int64 // total_bytes_read
	max     int64 // configured ceiling; <=0 means unbounded
	pending bool  // one-byte push-back slot is occupied
	ungot   byte
	done    bool
}

// New wraps r as a Source. program and path are carried only for fatal
// diagnostics. If r also implements io.Seeker, Skip uses it directly;
// otherwise Skip discards bytes by reading.
func New(r io.Reader, program, path string, maxBytes int64) *Source {
	s := &Source{
		r:       bufio.NewReaderSize(r, 64*1024),
		program: program,
		path:    path,
		max:     maxBytes,
	}
	if sk, ok := r.(io.Seeker); ok {
		s.seeker = sk
	}
	return s
}

// Skip discards n bytes of input before any byte is delivered downstream:
// seek directly on a seekable regular file, otherwise read-and-discard on
// a non-seekable stream. Skip does not count against TotalBytesRead.
func (s *Source) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if s.seeker != nil {
		if _, err := s.seeker.Seek(n, io.SeekCurrent); err == nil {
			s.r.Reset(s.seeker.(io.Reader))
			return nil
		}
		// Fall through to discard-by-read if the seek itself failed
		// (e.g. a seekable-looking stream that rejects this offset).
	}
	var buf [4096]byte
	for n > 0 {
		chunk := int64(len(buf))
		if n < chunk {
			chunk = n
		}
		k, err := io.ReadFull(s.r, buf[:chunk])
		n -= int64(k)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return nil
			}
			return diag.IOErr(s.program, s.path, err)
		}
	}
	return nil
}

// GetByte returns the next byte, or ok=false at end-of-data (either the
// configured ceiling was reached or the underlying stream is exhausted).
// A read error is always fatal.
func (s *Source) GetByte() (b byte, ok bool, err error) {
	if s.pending {
		s.pending = false
		s.total++
		return s.ungot, true, nil
	}
	if s.done {
		return 0, false, nil
	}
	if s.max > 0 && s.total >= s.max {
		s.done = true
		return 0, false, nil
	}
	c, rerr := s.r.ReadByte()
	if rerr != nil {
		s.done = true
		if rerr == io.EOF {
			return 0, false, nil
		}
		return 0, false, diag.IOErr(s.program, s.path, rerr)
	}
	s.total++
	return c, true, nil
}

// UngetByte pushes b back so the next GetByte returns it again. Only one
// byte of push-back is guaranteed; calling UngetByte twice without an
// intervening GetByte is a programming error.
func (s *Source) UngetByte(b byte) {
	if s.pending {
		panic("byteio: UngetByte called with a byte already pending")
	}
	s.pending = true
	s.ungot = b
	s.total--
	s.done = false
}

// TotalBytesRead returns the monotonically increasing count of bytes
// delivered to the caller (decremented by UngetByte).
func (s *Source) TotalBytesRead() int64 { return s.total }
