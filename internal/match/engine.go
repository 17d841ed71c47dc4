// Package match implements the match engine: a per-byte state machine
// that turns a stream of input bytes into a stream of (byte, matched)
// pairs, one report per input byte, in order.
//
// Two search modes are supported:
//   - Fixed: a KMP-driven search for one fixed byte pattern (internal/kmp
//     supplies the failure table).
//   - Strings: a printable-run heuristic that accepts configurable
//     whitespace classes and, optionally, valid UTF-8 characters
//     (internal/utf8c supplies the byte classification).
//
// A third degenerate mode, Passthrough, reports every byte unmatched; the
// C-array emitter drives the engine this way, with no pattern configured.
//
// The engine is a hand-rolled coroutine: each call to Next reads at most
// one byte beyond what it has already committed to report, and may push
// exactly one byte back onto the source. All resumable state lives in the
// Engine value; there is no goroutine or channel involved.
package match

import (
	"github.com/coregx/hexd/internal/diag"
	"github.com/coregx/hexd/internal/utf8c"
)

// Pair is one reported (byte, matched) outcome.
type Pair struct {
	Byte    byte
	Matched bool
}

// source is the subset of *byteio.Source the engine needs, kept narrow so
// tests can supply a fake without pulling in the real byte source.
type source interface {
	GetByte() (byte, bool, error)
	UngetByte(byte)
}

// Mode selects which state machine Next drives.
type Mode int

const (
	Passthrough Mode = iota
	Fixed
	Strings
)

// StringsClasses is the bitmask of optional whitespace classes from
// --strings-opts.
type StringsClasses uint8

const (
	ClassFormfeed StringsClasses = 1 << iota
	ClassLinefeed
	ClassReturn
	ClassSpace
	ClassTab
	ClassVtab

	ClassAll  = ClassFormfeed | ClassLinefeed | ClassReturn | ClassSpace | ClassTab | ClassVtab
	ClassNone = StringsClasses(0)
)

// StringsConfig configures Strings mode.
type StringsConfig struct {
	MinChars       int // N: minimum run length to count as a match
	Classes        StringsClasses
	UTF8           bool // accept valid multi-byte UTF-8 characters
	NullTerminated bool // a run only counts if immediately followed by 0x00
}

// Engine is a match engine bound to one Source for its lifetime.
type Engine struct {
	src  source
	mode Mode

	// Fixed mode
	pattern    []byte
	kmpTable   []int
	ignoreCase bool
	pos        int    // buf_pos: pattern bytes matched so far
	buf        []byte // captured, not-yet-emitted bytes (len == pos in Fixed mode)

	// Strings mode
	scfg      StringsConfig
	runBuf    []byte // captured bytes of the current candidate run
	runChars  int    // complete characters confirmed so far in the run
	charStart int    // index into runBuf where an in-progress multi-byte char begins; -1 if none
	charLeft  int     // continuation bytes still needed to complete that char

	queue []Pair // pending reports, drained before stepping again
	done  bool

	totalMatches int64
}

// NewPassthrough builds an engine that reports every byte unmatched.
func NewPassthrough(src source) *Engine {
	return &Engine{src: src, mode: Passthrough}
}

// NewFixed builds a Fixed-mode engine. Both pattern and input are
// lowercased before comparison when ignoreCase is set — the resolver
// does the pattern side once up front; the engine does the input side
// per byte.
func NewFixed(src source, pattern []byte, kmpTable []int, ignoreCase bool) *Engine {
	return &Engine{
		src:        src,
		mode:       Fixed,
		pattern:    pattern,
		kmpTable:   kmpTable,
		ignoreCase: ignoreCase,
		charStart:  -1,
	}
}

// NewStrings builds a Strings-mode engine.
func NewStrings(src source, cfg StringsConfig) *Engine {
	return &Engine{src: src, mode: Strings, scfg: cfg, charStart: -1}
}

// TotalMatches returns the running count of completed matches (full
// pattern runs in Fixed mode, qualifying character runs in Strings mode).
func (e *Engine) TotalMatches() int64 { return e.totalMatches }

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Next reports the next (byte, matched) pair, or ok=false once the
// underlying source is exhausted and every captured byte has been
// drained. Every input byte is reported exactly once, in order.
func (e *Engine) Next() (Pair, bool, error) {
	for len(e.queue) == 0 {
		if e.done {
			return Pair{}, false, nil
		}
		if err := e.step(); err != nil {
			return Pair{}, false, err
		}
	}
	p := e.queue[0]
	e.queue = e.queue[1:]
	return p, true, nil
}

func (e *Engine) emit(b byte, matched bool) {
	e.queue = append(e.queue, Pair{Byte: b, Matched: matched})
}

func (e *Engine) emitAll(bs []byte, matched bool) {
	for _, b := range bs {
		e.emit(b, matched)
	}
}

func (e *Engine) step() error {
	switch e.mode {
	case Passthrough:
		return e.stepPassthrough()
	case Fixed:
		return e.stepFixed()
	case Strings:
		return e.stepStrings()
	default:
		return diag.Internalf("ad", "match: unknown mode %d", e.mode)
	}
}

func (e *Engine) stepPassthrough() error {
	b, ok, err := e.src.GetByte()
	if err != nil {
		return err
	}
	if !ok {
		e.done = true
		return nil
	}
	e.emit(b, false)
	return nil
}

// stepFixed advances the Fixed-mode state machine by one tick: it reads
// bytes until either a full pattern match completes, a mismatch forces a
// KMP restart, or the source is exhausted — each of which produces at
// least one queued report.
func (e *Engine) stepFixed() error {
	if len(e.pattern) == 0 {
		return e.stepPassthrough()
	}
	for {
		c, ok, err := e.src.GetByte()
		if err != nil {
			return err
		}
		if !ok {
			// EOF mid-match: the captured prefix never completed, so it
			// is drained as non-matching.
			e.emitAll(e.buf, false)
			e.buf = nil
			e.pos = 0
			e.done = true
			return nil
		}
		cmp := c
		if e.ignoreCase {
			cmp = toLowerASCII(c)
		}
		if cmp == e.pattern[e.pos] {
			e.buf = append(e.buf, c)
			e.pos++
			if e.pos == len(e.pattern) {
				// Full match: matches are non-overlapping, so state
				// resets completely rather than carrying a KMP head over
				// into the next attempt.
				e.totalMatches++
				e.emitAll(e.buf, true)
				e.buf = e.buf[:0]
				e.pos = 0
				return nil
			}
			continue
		}
		// Mismatch: push the offending byte back (the source guarantees
		// one byte of push-back), consult the KMP table for the restart
		// length, and drain only the bytes that can no longer possibly
		// be part of any match.
		if e.pos == 0 {
			// Nothing is captured and c cannot start a match: report it
			// unmatched directly instead of pushing it back.
			e.emit(c, false)
			return nil
		}
		e.src.UngetByte(c)
		kmpv := e.kmpTable[e.pos]
		tail := make([]byte, kmpv)
		copy(tail, e.buf[e.pos-kmpv:e.pos])
		e.emitAll(e.buf[:e.pos-kmpv], false)
		e.buf = tail
		e.pos = kmpv
		return nil
	}
}

// isGraphic reports the "printable graphic ASCII" class: visible,
// non-space characters, 0x21-0x7E. Space is its own class (the 's'
// strings-opts letter) since a run of pure whitespace is rarely what
// --strings is looking for by default.
func isGraphic(b byte) bool { return b >= 0x21 && b <= 0x7E }

func (e *Engine) classAccepts(b byte) bool {
	switch b {
	case 0x0C:
		return e.scfg.Classes&ClassFormfeed != 0
	case 0x0A:
		return e.scfg.Classes&ClassLinefeed != 0
	case 0x0D:
		return e.scfg.Classes&ClassReturn != 0
	case 0x20:
		return e.scfg.Classes&ClassSpace != 0
	case 0x09:
		return e.scfg.Classes&ClassTab != 0
	case 0x0B:
		return e.scfg.Classes&ClassVtab != 0
	default:
		return false
	}
}

// stepStrings advances the Strings-mode state machine. It accumulates an
// acceptable-byte run in runBuf, tracks UTF-8 character boundaries when
// scfg.UTF8 is set, and closes the run — deciding whether it qualifies as
// a match — on the first disqualifying byte or on EOF.
func (e *Engine) stepStrings() error {
	for {
		c, ok, err := e.src.GetByte()
		if err != nil {
			return err
		}
		if !ok {
			// EOF never supplies an explicit 0x00 terminator, so under
			// --strings-opts=0 a run still open at EOF is abandoned
			// unmatched; otherwise EOF closes it normally.
			e.closeRun(false)
			e.done = true
			return nil
		}

		if e.charLeft > 0 {
			if utf8c.IsCont(c) {
				e.runBuf = append(e.runBuf, c)
				e.charLeft--
				if e.charLeft == 0 {
					e.runChars++
					e.charStart = -1
				}
				continue
			}
			// Invalid continuation: push the byte back, abort the
			// partial character (its bytes are excluded from the
			// matched run), and close what run had already been
			// confirmed.
			e.src.UngetByte(c)
			e.closeRun(false)
			continue
		}

		if e.acceptable(c) {
			e.runBuf = append(e.runBuf, c)
			if n := e.startLen(c); n > 1 {
				e.charStart = len(e.runBuf) - 1
				e.charLeft = n - 1
			} else {
				e.runChars++
			}
			continue
		}

		// c itself disqualifies: close the run (c may satisfy a
		// null-terminator requirement), then report c unmatched — the
		// terminator byte is never itself part of the matched run.
		closedOnNull := e.scfg.NullTerminated && c == 0
		e.closeRun(closedOnNull)
		e.emit(c, false)
		return nil
	}
}

func (e *Engine) acceptable(b byte) bool {
	if isGraphic(b) {
		return true
	}
	if e.classAccepts(b) {
		return true
	}
	if e.scfg.UTF8 && utf8c.Len(b) > 1 {
		return true
	}
	return false
}

// startLen returns the UTF-8 character length for a start byte, or 1 for
// a single-byte (ASCII) acceptable byte.
func (e *Engine) startLen(b byte) int {
	if !e.scfg.UTF8 {
		return 1
	}
	return utf8c.Len(b)
}

// closeRun finalizes the current candidate run: if it reached MinChars
// characters and, when --strings-opts=0 is set, consumeTerminator is
// true (the byte that triggered closure was an explicit 0x00), every
// captured byte is reported matched and totalMatches increments;
// otherwise every captured byte — including any trailing aborted
// multi-byte character — is reported unmatched.
func (e *Engine) closeRun(consumeTerminator bool) {
	// Any bytes still pending as part of an aborted multi-byte character
	// were already excluded from runChars; they are never matched.
	confirmed := e.runBuf
	if e.charStart >= 0 {
		confirmed = e.runBuf[:e.charStart]
	}
	aborted := e.runBuf[len(confirmed):]

	ok := e.runChars >= e.scfg.MinChars
	if e.scfg.NullTerminated {
		ok = ok && consumeTerminator
	}

	if ok {
		e.totalMatches++
	}
	e.emitAll(confirmed, ok)
	e.emitAll(aborted, false)

	e.runBuf = nil
	e.runChars = 0
	e.charStart = -1
	e.charLeft = 0
}
