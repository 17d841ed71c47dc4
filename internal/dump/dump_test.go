package dump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/coregx/hexd/internal/byteio"
	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
	"github.com/coregx/hexd/internal/termcap"
)

func testConfig(groupBy int) *options.Config {
	cfg := options.Default()
	cfg.GroupBy = groupBy
	if err := cfg.Resolve(0, false); err != nil {
		panic(err)
	}
	return &cfg
}

func runDump(t *testing.T, cfg *options.Config, input string) string {
	t.Helper()
	src := byteio.New(strings.NewReader(input), "ad", "-", 0)
	e := match.NewPassthrough(src)
	var out bytes.Buffer
	d := New(cfg, termcap.Capabilities{}, &out)
	if _, err := d.Run(e); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestRunEmitsSingleShortRow(t *testing.T) {
	cfg := testConfig(2)
	got := runDump(t, cfg, "AB")
	if !strings.Contains(got, "4142") {
		t.Fatalf("missing hex bytes: %q", got)
	}
	if !strings.Contains(got, "AB") {
		t.Fatalf("missing ascii column: %q", got)
	}
}

func TestRunElidesDuplicateMiddleRows(t *testing.T) {
	cfg := testConfig(2)
	input := strings.Repeat("\x00", 16*4)
	got := runDump(t, cfg, input)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (first row, elision separator, last row):\n%s", len(lines), got)
	}
	if !strings.Contains(lines[1], "(32 | 0x20)") {
		t.Fatalf("middle line is not the expected elision separator: %q", lines[1])
	}
}

func TestRunForceEmitsLastRowEvenIfDuplicate(t *testing.T) {
	cfg := testConfig(2)
	input := strings.Repeat("\x00", 16*2)
	got := runDump(t, cfg, input)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (first and last row, no elision for a single duplicate):\n%s", len(lines), got)
	}
}

func TestMatchingOnlySuppressesUnmatchedRows(t *testing.T) {
	cfg := testConfig(2)
	cfg.MatchingOnly = true
	// First row holds the matches; the 4-byte second row has none.
	src := byteio.New(strings.NewReader("AABB"+strings.Repeat("A", 16)), "ad", "-", 0)
	e := match.NewFixed(src, []byte("B"), []int{0}, false)
	var out bytes.Buffer
	d := New(cfg, termcap.Capabilities{}, &out)
	n, err := d.Run(e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows emitted = %d, want 1 (single row containing the match)", n)
	}
}

func TestWriteHexInsertsGroupSeparatorsAndMidpointSpace(t *testing.T) {
	r := &Row{Len: 16}
	for i := range r.Bytes[:16] {
		r.Bytes[i] = byte(i)
	}
	cfg := testConfig(4)
	var out bytes.Buffer
	d := New(cfg, termcap.Capabilities{}, &out)
	if err := d.writeHex(r); err != nil {
		t.Fatalf("writeHex: %v", err)
	}
	if err := d.w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := "00010203 04050607  08090a0b 0c0d0e0f"
	if out.String() != want {
		t.Fatalf("writeHex = %q, want %q", out.String(), want)
	}
}

// TestRunDefaultConfigUsesTwelveDigitOffset pins the documented default
// configuration (group-by 2, ASCII on, row width 16) to a 12-digit offset
// column: OffsetWidth must not key off group_by, only off whether ASCII is
// printed.
func TestRunDefaultConfigUsesTwelveDigitOffset(t *testing.T) {
	cfg := testConfig(2)
	got := runDump(t, cfg, "Hello, World!\n")
	if !strings.HasPrefix(got, "000000000000: ") {
		t.Fatalf("offset column = %q, want a 12-digit zero-padded prefix", got)
	}
	if !strings.Contains(got, "4865 6c6c 6f2c 2057  6f72 6c64 210a") {
		t.Fatalf("missing expected grouped hex bytes: %q", got)
	}
	if !strings.Contains(got, "Hello, World!.") {
		t.Fatalf("missing expected ascii column (trailing \\n rendered as '.'): %q", got)
	}
}

// TestWriteASCIIDecodesCharacterCrossingRowBoundary covers a UTF-8
// character whose lead byte is the last byte of a row and whose single
// continuation byte is the first (and only) byte of the next, short, row.
func TestWriteASCIIDecodesCharacterCrossingRowBoundary(t *testing.T) {
	cfg := testConfig(2)
	cfg.UTF8Mode = "always"
	input := strings.Repeat("A", 15) + "\xc3\xa9" // 15 'A' + UTF-8 'é' (C3 A9)
	got := runDump(t, cfg, input)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (16-byte row then 1-byte row):\n%s", len(lines), got)
	}
	if !strings.HasSuffix(lines[0], "AAAAAAAAAAAAAAAé") {
		t.Fatalf("first row ascii column = %q, want the row-crossing character decoded once", lines[0])
	}
	if !strings.HasSuffix(lines[1], "□") {
		t.Fatalf("second row ascii column = %q, want the borrowed continuation byte rendered as pad", lines[1])
	}
}

func TestFormatOffsetZeroPads(t *testing.T) {
	cases := []struct {
		base  options.OffsetBase
		width int
		want  string
	}{
		{options.BaseHex, 8, "000000ff"},
		{options.BaseDec, 8, "00000255"},
		{options.BaseOct, 8, "00000377"},
	}
	for _, c := range cases {
		if got := formatOffset(255, c.base, c.width); got != c.want {
			t.Fatalf("formatOffset(255, %v, %d) = %q, want %q", c.base, c.width, got, c.want)
		}
	}
}
