package cliopts

import (
	"testing"

	"github.com/coregx/hexd/internal/options"
)

func TestParseDefaults(t *testing.T) {
	res, err := Parse("ad", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Help || res.Version {
		t.Fatal("no flags given, expected neither help nor version")
	}
	if res.Config.Sink != options.SinkDump {
		t.Fatalf("default Sink = %v, want SinkDump", res.Config.Sink)
	}
}

func TestParseStringSearch(t *testing.T) {
	res, err := Parse("ad", []string{"--string=World"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(res.Config.SearchString) != "World" {
		t.Fatalf("SearchString = %q, want %q", res.Config.SearchString, "World")
	}
}

func TestParseStringsModeDefaultLen(t *testing.T) {
	res, err := Parse("ad", []string{"--strings"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Config.StringsMode || res.Config.StringsMinLen != 4 {
		t.Fatalf("StringsMode=%v StringsMinLen=%d, want true/4", res.Config.StringsMode, res.Config.StringsMinLen)
	}
}

func TestParseMutuallyExclusiveSearches(t *testing.T) {
	_, err := Parse("ad", []string{"--string=foo", "--strings"})
	if err == nil {
		t.Fatal("expected an error for --string combined with --strings")
	}
}

func TestParseBitsBytesExclusive(t *testing.T) {
	_, err := Parse("ad", []string{"--bits=16", "--bytes=2", "--little-endian=5"})
	if err == nil {
		t.Fatal("expected an error for --bits combined with --bytes")
	}
}

func TestParseLittleEndianNumeric(t *testing.T) {
	res, err := Parse("ad", []string{"--little-endian=258"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []byte{0x02, 0x01}
	if string(res.Config.SearchString) != string(want) {
		t.Fatalf("SearchString = %v, want %v", res.Config.SearchString, want)
	}
}

func TestParsePlainImpliesGroupBy32(t *testing.T) {
	res, err := Parse("ad", []string{"--plain"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Config.NoASCII || !res.Config.NoOffsets || res.Config.GroupBy != 32 {
		t.Fatalf("plain did not resolve to -A -O -g32: %+v", res.Config)
	}
}

func TestParseCArraySink(t *testing.T) {
	res, err := Parse("ad", []string{"--c-array=c"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Config.Sink != options.SinkCArray || !res.Config.CLetters.Const {
		t.Fatalf("c-array sink/letters not resolved: %+v", res.Config)
	}
}

func TestParseReverseAndCArrayExclusive(t *testing.T) {
	_, err := Parse("ad", []string{"--c-array", "--reverse"})
	if err == nil {
		t.Fatal("expected an error for --c-array combined with --reverse")
	}
}

func TestParsePositionalSkip(t *testing.T) {
	res, err := Parse("ad", []string{"+10", "input.bin"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Config.SkipBytes != 10 || res.Config.InputPath != "input.bin" {
		t.Fatalf("SkipBytes/InputPath = %d/%q, want 10/input.bin", res.Config.SkipBytes, res.Config.InputPath)
	}
}

func TestParseMaxBytesSizeSuffix(t *testing.T) {
	res, err := Parse("ad", []string{"--max-bytes=2k"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Config.MaxBytes != 2048 {
		t.Fatalf("MaxBytes = %d, want 2048", res.Config.MaxBytes)
	}
}

func TestParseStringsOptsNullAlias(t *testing.T) {
	res, err := Parse("ad", []string{"--strings", "--strings-opts=0"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Config.NullTerminated {
		t.Fatal("strings-opts=0 must enable NullTerminated")
	}
}

func TestParseUnknownColor(t *testing.T) {
	_, err := Parse("ad", []string{"--color=rainbow"})
	if err == nil {
		t.Fatal("expected an error for an unknown --color policy")
	}
}
