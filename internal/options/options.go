// Package options normalizes and cross-validates configuration before any
// of the dumper, C-array emitter, or reverse parser sinks run.
//
// A flat struct with a constructor supplying defaults and a validation
// step that cross-checks fields, rather than validating piecemeal as
// flags are parsed.
package options

import (
	"fmt"
	"unsafe"

	"github.com/coregx/hexd/internal/kmp"
)

// OffsetBase selects the numeral system offsets are printed in.
type OffsetBase int

const (
	BaseHex OffsetBase = iota
	BaseDec
	BaseOct
)

// Endian selects the byte order a numeric search key is rearranged into.
type Endian int

const (
	EndianLittle Endian = iota
	EndianBig
	EndianHost
)

// ColorPolicy mirrors the --color values.
type ColorPolicy int

const (
	ColorAuto ColorPolicy = iota
	ColorAlways
	ColorNever
	ColorIsatty
	ColorNotFile
	ColorNotIsreg
	ColorTTY
)

// Sink selects which of the three top-level pipelines processes the
// input.
type Sink int

const (
	SinkDump Sink = iota
	SinkCArray
	SinkReverse
)

// RowBytesMax is the largest row width the row buffer can hold.
const RowBytesMax = 32

// RowBytesDefault is row_bytes before any --group-by widening.
const RowBytesDefault = 16

// OffsetWidthMin/Max bound the elision-separator dash run the reverse
// parser recognizes.
const (
	OffsetWidthMin = 12
	OffsetWidthMax = 16
)

// CArrayLetters is the parsed form of --c-array's optional letter set.
type CArrayLetters struct {
	Char8       bool // '8': char8_t element type instead of unsigned char
	Const       bool // 'c'
	IntLen      bool // 'i': int length variable
	LongLen     bool // 'l': long length variable
	Static      bool // 's'
	SizeTLen    bool // 't': size_t length variable
	UnsignedLen bool // 'u': unsigned length variable
}

// HasLengthVar reports whether any length-variable letter was given.
func (c CArrayLetters) HasLengthVar() bool {
	return c.IntLen || c.LongLen || c.SizeTLen || c.UnsignedLen
}

// Config is the fully-resolved, read-only-after-resolution configuration
// for one run, gathered into a single value. Config itself is write-once;
// the run's two counters, total bytes and total matches, live instead on
// byteio.Source and match.Engine respectively, each owned by the
// component that mutates it.
type Config struct {
	// Input/output
	InputPath  string // "-" for stdin
	OutputPath string // "-" for stdout
	SkipBytes  int64
	MaxBytes   int64 // <=0 means unbounded
	Sink       Sink

	// Row/offset shape
	GroupBy    int // one of 1,2,4,8,16,32
	RowBytes   int // max(RowBytesDefault, GroupBy)
	OffsetBase OffsetBase
	NoOffsets  bool
	NoASCII    bool

	// Search
	SearchString   []byte // already lowercased if IgnoreCase and non-empty
	SearchIsNumber bool
	NumericValue   uint64
	NumericBits    int // 8..64, multiple of 8; 0 means unset
	NumericBytes   int // 1..8; 0 means unset
	Endian         Endian
	IgnoreCase     bool

	// Strings mode
	StringsMode    bool
	StringsMinLen  uint64 // N, default 4
	StringsClasses uint8  // match.StringsClasses bitmask, stored as a plain uint8
	NullTerminated bool
	UTF8Mode       string // "always" | "auto" | "encoding" | "never"
	UTF8PadRune    rune

	// Display filters
	MatchingOnly  bool
	PrintingOnly  bool
	Verbose       bool
	Plain         bool

	// Totals
	TotalMatches     bool
	TotalMatchesOnly bool

	// C array
	CArray   bool
	CLetters CArrayLetters

	// Color
	Color ColorPolicy

	Program string
}

// Default returns a Config with the documented command-line defaults.
func Default() Config {
	return Config{
		InputPath:     "-",
		OutputPath:    "-",
		GroupBy:       2,
		RowBytes:      RowBytesDefault,
		OffsetBase:    BaseHex,
		StringsMinLen: 4,
		UTF8PadRune:   0x25A1, // WHITE SQUARE
		Color:         ColorAuto,
		Program:       "ad",
	}
}

// validGroupBy reports whether g is one of the allowed hex grouping
// widths.
func validGroupBy(g int) bool {
	switch g {
	case 1, 2, 4, 8, 16, 32:
		return true
	}
	return false
}

// Resolve performs cross-field normalization in a fixed order: apply
// --plain, derive row_bytes, derive max_bytes from max-lines, resolve a
// numeric search key's size and byte order, and lowercase a string
// search key under --ignore-case.
func (c *Config) Resolve(maxLines int64, hasMaxLines bool) error {
	if c.Plain {
		c.NoASCII = true
		c.NoOffsets = true
		c.GroupBy = 32
	}
	if !validGroupBy(c.GroupBy) {
		return fmt.Errorf("group-by must be one of 1,2,4,8,16,32, got %d", c.GroupBy)
	}
	c.RowBytes = RowBytesDefault
	if c.GroupBy > c.RowBytes {
		c.RowBytes = c.GroupBy
	}
	if c.RowBytes > RowBytesMax {
		c.RowBytes = RowBytesMax
	}

	if hasMaxLines {
		if c.MaxBytes > 0 {
			return fmt.Errorf("max-bytes and max-lines are mutually exclusive")
		}
		c.MaxBytes = maxLines * int64(c.RowBytes)
	}

	if c.SearchIsNumber {
		if err := c.resolveNumericKey(); err != nil {
			return err
		}
	} else {
		if c.NumericBits > 0 || c.NumericBytes > 0 {
			return fmt.Errorf("bits and bytes require a numeric search")
		}
		if len(c.SearchString) > 0 && c.IgnoreCase {
			lowerASCIIInPlace(c.SearchString)
		}
	}

	if c.StringsMode && (c.SearchIsNumber || len(c.SearchString) > 0) {
		return fmt.Errorf("strings and a fixed search key are mutually exclusive")
	}
	if c.IgnoreCase && c.SearchIsNumber {
		return fmt.Errorf("ignore-case requires a string search, not a numeric one")
	}

	return nil
}

// resolveNumericKey determines the search key's byte length (explicit via
// --bits/--bytes, or the minimal length that fits NumericValue) and
// rearranges it into SearchString according to Endian.
func (c *Config) resolveNumericKey() error {
	nbytes := c.NumericBytes
	if c.NumericBits > 0 {
		if c.NumericBits%8 != 0 {
			return fmt.Errorf("bits must be a multiple of 8, got %d", c.NumericBits)
		}
		nbytes = c.NumericBits / 8
	}
	if nbytes == 0 {
		nbytes = minBytesFor(c.NumericValue)
	}
	if nbytes < 1 || nbytes > 8 {
		return fmt.Errorf("numeric search key size must be 1..8 bytes, got %d", nbytes)
	}
	if minBytesFor(c.NumericValue) > nbytes {
		return fmt.Errorf("numeric search key declared size (%d bytes) is smaller than the value requires", nbytes)
	}

	be := make([]byte, 8)
	for i := 0; i < 8; i++ {
		be[7-i] = byte(c.NumericValue >> (8 * i))
	}
	full := be // big-endian, 8 bytes
	switch c.Endian {
	case EndianBig:
		c.SearchString = append([]byte(nil), full[8-nbytes:]...)
	case EndianLittle:
		le := make([]byte, nbytes)
		for i := 0; i < nbytes; i++ {
			le[i] = full[7-i]
		}
		c.SearchString = le
	case EndianHost:
		if hostIsLittleEndian() {
			le := make([]byte, nbytes)
			for i := 0; i < nbytes; i++ {
				le[i] = full[7-i]
			}
			c.SearchString = le
		} else {
			c.SearchString = append([]byte(nil), full[8-nbytes:]...)
		}
	}
	return nil
}

func minBytesFor(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}

// hostIsLittleEndian is resolved once per run, not per byte.
func hostIsLittleEndian() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}

func lowerASCIIInPlace(b []byte) {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
}

// KMPTable builds the KMP failure table for the resolved search key, or
// nil when no fixed-pattern search is configured.
func (c *Config) KMPTable() []int {
	if c.StringsMode || len(c.SearchString) == 0 {
		return nil
	}
	return kmp.Table(c.SearchString)
}

// OffsetWidth returns the zero-padded digit width for the offset column
// (also depended on by the reverse parser to recognize elision dashes):
// 12 whenever ASCII is enabled, or when ASCII is disabled and
// row_bytes > 16; 16 otherwise. Confirmed against spec.md's S1 scenario
// (defaults: group_by=2, ASCII on, row_bytes=16), whose expected output
// begins with a 12-digit offset — group_by plays no part in the width.
func (c *Config) OffsetWidth() int {
	if !c.NoASCII {
		return 12
	}
	if c.RowBytes > 16 {
		return 12
	}
	return 16
}
