// Package dump implements the row framer and dumper: it consumes
// (byte, matched) pairs from the match engine, assembles them into
// fixed-width rows, decides which rows to emit, and formats the emitted
// rows with offsets, grouped hex, and an optional UTF-8-aware ASCII
// column.
//
// The cur/next double-buffering here plays the same role the teacher's
// dfa/lazy state cache plays for its generation-tagged reuse: look one
// step ahead without copying, so "is this the last row" is known before
// the row is formatted.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/coregx/hexd/internal/conv"
	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
	"github.com/coregx/hexd/internal/termcap"
	"github.com/coregx/hexd/internal/utf8c"
)

// Row is the fixed-capacity row buffer from the data model: up to
// RowBytesMax bytes, its actual length, and a per-byte match bitmask
// (bit i, LSB-first from the left, set iff byte i matched).
type Row struct {
	Bytes     [options.RowBytesMax]byte
	Len       int
	MatchBits uint32
}

// Matched reports whether row byte i was part of a match.
func (r *Row) Matched(i int) bool { return r.MatchBits&(1<<conv.IntToUint32(i)) != 0 }

// sameBytes reports whether two rows cover identical content (used by
// the elision check — a row differs from the previously emitted row
// only in its byte content, never in its match bits).
func sameBytes(a, b *Row) bool {
	if a.Len != b.Len {
		return false
	}
	for i := 0; i < a.Len; i++ {
		if a.Bytes[i] != b.Bytes[i] {
			return false
		}
	}
	return true
}

func isPrintableASCII(b byte) bool { return b >= 0x20 && b <= 0x7E }

// collectRow reads up to rowBytes (byte, matched) pairs from e. ok is
// false only when zero bytes were available (clean end of stream).
func collectRow(e *match.Engine, rowBytes int) (Row, bool, error) {
	var r Row
	for r.Len < rowBytes {
		p, ok, err := e.Next()
		if err != nil {
			return Row{}, false, err
		}
		if !ok {
			break
		}
		r.Bytes[r.Len] = p.Byte
		if p.Matched {
			r.MatchBits |= 1 << conv.IntToUint32(r.Len)
		}
		r.Len++
	}
	if r.Len == 0 {
		return Row{}, false, nil
	}
	return r, true, nil
}

// Dumper drives the row framer over one match engine and writes
// formatted output to w.
type Dumper struct {
	cfg  *options.Config
	caps termcap.Capabilities
	w    *bufio.Writer

	haveLastEmitted bool
	lastEmitted     Row
	lastEmitOffset  int64

	rowsEmitted int64

	// asciiCarry/asciiCarryOffset: when a UTF-8 character starting in one
	// row is completed using the next row's leading bytes, those bytes
	// must be rendered as pad (not re-decoded) when that next row is
	// itself written. asciiCarryOffset pins the carry to the row it
	// actually belongs to, so a row skipped by elision can't leak a
	// stale carry onto an unrelated later row.
	asciiCarry       int
	asciiCarryOffset int64
}

// New builds a Dumper for the given configuration and color capabilities.
func New(cfg *options.Config, caps termcap.Capabilities, w io.Writer) *Dumper {
	return &Dumper{cfg: cfg, caps: caps, w: bufio.NewWriter(w)}
}

// Run drives e to exhaustion, emitting rows per the emission policy, and
// returns the number of rows emitted. The caller is responsible for
// handing the total-matches count (e.TotalMatches()) to the exit-code
// decision separately.
func (d *Dumper) Run(e *match.Engine) (int64, error) {
	rowBytes := d.cfg.RowBytes
	offset := d.cfg.SkipBytes

	cur, curOK, err := collectRow(e, rowBytes)
	if err != nil {
		return 0, err
	}
	if !curOK {
		return 0, d.w.Flush()
	}
	curOffset := offset

	for {
		next, nextOK, err := collectRow(e, rowBytes)
		if err != nil {
			return 0, err
		}
		isLast := !nextOK

		if d.shouldEmit(&cur, isLast) {
			if d.haveLastEmitted {
				skipped := curOffset - d.lastEmitOffset - int64(rowBytes)
				if skipped > 0 {
					if err := d.writeElision(skipped); err != nil {
						return d.rowsEmitted, err
					}
				}
			}
			var nextRow *Row
			if nextOK {
				nextRow = &next
			}
			if err := d.writeRow(&cur, curOffset, nextRow); err != nil {
				return d.rowsEmitted, err
			}
			d.lastEmitted = cur
			d.lastEmitOffset = curOffset
			d.haveLastEmitted = true
			d.rowsEmitted++
		}

		if isLast {
			break
		}
		cur = next
		curOffset += int64(rowBytes)
	}

	return d.rowsEmitted, d.w.Flush()
}

// shouldEmit applies spec §4.E's emission policy.
func (d *Dumper) shouldEmit(cur *Row, isLast bool) bool {
	if cur.MatchBits != 0 {
		return true
	}
	if d.cfg.MatchingOnly {
		return false
	}
	differs := !d.haveLastEmitted || !sameBytes(cur, &d.lastEmitted)
	if !(d.cfg.Verbose || differs || isLast) {
		return false
	}
	if d.cfg.PrintingOnly {
		for i := 0; i < cur.Len; i++ {
			if isPrintableASCII(cur.Bytes[i]) {
				return true
			}
		}
		return false
	}
	return true
}

func (d *Dumper) writeElision(skipped int64) error {
	width := d.cfg.OffsetWidth()
	if _, err := d.w.WriteString(d.caps.Start(termcap.CapSeparator)); err != nil {
		return err
	}
	for i := 0; i < width; i++ {
		if _, err := d.w.WriteString("-"); err != nil {
			return err
		}
	}
	if _, err := d.w.WriteString(d.caps.End(termcap.CapSeparator)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(d.w, ": (%d | 0x%x)\n", skipped, skipped)
	return err
}

func (d *Dumper) writeRow(r *Row, offset int64, next *Row) error {
	if !d.cfg.NoOffsets {
		s := d.caps.Start(termcap.CapOffset)
		e := d.caps.End(termcap.CapOffset)
		if _, err := d.w.WriteString(s); err != nil {
			return err
		}
		if _, err := d.w.WriteString(formatOffset(offset, d.cfg.OffsetBase, d.cfg.OffsetWidth())); err != nil {
			return err
		}
		if _, err := d.w.WriteString(e); err != nil {
			return err
		}
		if _, err := d.w.WriteString(": "); err != nil {
			return err
		}
	}
	if err := d.writeHex(r); err != nil {
		return err
	}
	if !d.cfg.NoASCII {
		if _, err := d.w.WriteString("  "); err != nil {
			return err
		}
		carry := 0
		if d.asciiCarry > 0 && offset == d.asciiCarryOffset {
			carry = d.asciiCarry
		}
		d.asciiCarry = 0
		carryForNext, err := d.writeASCII(r, next, carry)
		if err != nil {
			return err
		}
		if carryForNext > 0 {
			d.asciiCarry = carryForNext
			d.asciiCarryOffset = offset + int64(d.cfg.RowBytes)
		}
	}
	return d.w.WriteByte('\n')
}

func formatOffset(n int64, base options.OffsetBase, width int) string {
	var s string
	switch base {
	case options.BaseDec:
		s = strconv.FormatInt(n, 10)
	case options.BaseOct:
		s = strconv.FormatInt(n, 8)
	default:
		s = strconv.FormatInt(n, 16)
	}
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// writeHex renders the grouped hex column, opening/closing the
// hex-match color run around each byte and, per §4.E's crossing-a-
// group-boundary rule, closing and reopening an active run around the
// inter-group space rather than coloring the separator itself.
func (d *Dumper) writeHex(r *Row) error {
	open := false
	for i := 0; i < d.cfg.RowBytes; i++ {
		if i > 0 {
			spaces := 0
			if i%d.cfg.GroupBy == 0 {
				spaces++
			}
			if i == 8 && d.cfg.GroupBy < 8 {
				// An additional space at the row's midpoint, on top of
				// whatever group boundary already falls there.
				spaces++
			}
			if spaces > 0 {
				if open {
					if _, err := d.w.WriteString(d.caps.End(termcap.CapHexMatch)); err != nil {
						return err
					}
				}
				for s := 0; s < spaces; s++ {
					if _, err := d.w.WriteString(" "); err != nil {
						return err
					}
				}
				if open {
					if _, err := d.w.WriteString(d.caps.Start(termcap.CapHexMatch)); err != nil {
						return err
					}
				}
			}
		}
		if i >= r.Len {
			if _, err := d.w.WriteString("  "); err != nil {
				return err
			}
			continue
		}
		matched := r.Matched(i)
		if matched && !open {
			if _, err := d.w.WriteString(d.caps.Start(termcap.CapHexMatch)); err != nil {
				return err
			}
			open = true
		} else if !matched && open {
			if _, err := d.w.WriteString(d.caps.End(termcap.CapHexMatch)); err != nil {
				return err
			}
			open = false
		}
		if _, err := fmt.Fprintf(d.w, "%02x", r.Bytes[i]); err != nil {
			return err
		}
	}
	if open {
		if _, err := d.w.WriteString(d.caps.End(termcap.CapHexMatch)); err != nil {
			return err
		}
	}
	return nil
}

// writeASCII renders the ASCII column. When UTF-8 interpretation is
// enabled a multi-byte character starting within the row is decoded once
// and its covered positions padded; if it extends past the row's last
// byte, its trailing continuation bytes are read from next (the row
// about to follow), and the number of those borrowed bytes is returned
// so the caller can have the following row skip re-decoding them. next
// may be nil (no following row, i.e. this is the last row), in which
// case a character that would cross is left to per-byte fallback
// rendering. carry is the number of leading bytes in r that were
// already rendered as padding by the previous row's crossing character.
func (d *Dumper) writeASCII(r *Row, next *Row, carry int) (int, error) {
	open := false
	utf8On := d.cfg.UTF8Mode == "always" || d.cfg.UTF8Mode == "auto" || d.cfg.UTF8Mode == "encoding"
	pad := d.cfg.UTF8PadRune
	if pad == 0 {
		pad = 0x25A1
	}
	i := 0
	for ; i < carry && i < r.Len; i++ {
		if _, err := d.w.WriteRune(pad); err != nil {
			return 0, err
		}
	}
	for i < r.Len {
		matched := r.Matched(i)
		if matched && !open {
			if _, err := d.w.WriteString(d.caps.Start(termcap.CapASCIIMatch)); err != nil {
				return 0, err
			}
			open = true
		} else if !matched && open {
			if _, err := d.w.WriteString(d.caps.End(termcap.CapASCIIMatch)); err != nil {
				return 0, err
			}
			open = false
		}

		if utf8On && utf8c.IsStart(r.Bytes[i]) {
			n := utf8c.Len(r.Bytes[i])
			avail := r.Len - i
			if next != nil {
				avail += next.Len
			}
			if n > 1 && n <= avail && validContSeq(r, next, i, n) {
				var seq [utf8c.MaxCharBytes]byte
				for k := 0; k < n; k++ {
					seq[k] = rowByte(r, next, i+k)
				}
				cp := utf8c.Decode(seq[:n])
				if utf8c.CodepointValid(cp) {
					if _, err := d.w.WriteRune(rune(cp)); err != nil {
						return 0, err
					}
					inRow := n
					if i+inRow > r.Len {
						inRow = r.Len - i
					}
					for k := 1; k < inRow; k++ {
						if _, err := d.w.WriteRune(pad); err != nil {
							return 0, err
						}
					}
					i += inRow
					if crossed := n - inRow; crossed > 0 {
						if open {
							if _, err := d.w.WriteString(d.caps.End(termcap.CapASCIIMatch)); err != nil {
								return 0, err
							}
							open = false
						}
						return crossed, nil
					}
					continue
				}
			}
		}

		if isPrintableASCII(r.Bytes[i]) {
			if err := d.w.WriteByte(r.Bytes[i]); err != nil {
				return 0, err
			}
		} else {
			if err := d.w.WriteByte('.'); err != nil {
				return 0, err
			}
		}
		i++
	}
	if open {
		if _, err := d.w.WriteString(d.caps.End(termcap.CapASCIIMatch)); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// rowByte reads logical position i of the two-row window: r's own bytes
// for i < r.Len, next's bytes beyond that.
func rowByte(r, next *Row, i int) byte {
	if i < r.Len {
		return r.Bytes[i]
	}
	return next.Bytes[i-r.Len]
}

func validContSeq(r, next *Row, start, n int) bool {
	for k := 1; k < n; k++ {
		if !utf8c.IsCont(rowByte(r, next, start+k)) {
			return false
		}
	}
	return true
}
