// Package roundtrip holds property-based tests that exercise the dumper,
// the reverse parser, and the match engine together rather than in
// isolation — each checks an invariant that only holds across component
// boundaries.
package roundtrip

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"

	"github.com/coregx/hexd/internal/byteio"
	"github.com/coregx/hexd/internal/dump"
	"github.com/coregx/hexd/internal/kmp"
	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
	"github.com/coregx/hexd/internal/reverse"
	"github.com/coregx/hexd/internal/termcap"
)

func dumpConfig(groupBy int) *options.Config {
	cfg := options.Default()
	cfg.GroupBy = groupBy
	if err := cfg.Resolve(0, false); err != nil {
		panic(err)
	}
	return &cfg
}

// TestRoundTripPreservesBytes checks that dumping a byte stream and then
// reverse-parsing the dump reproduces the original bytes exactly,
// regardless of length, content, or hex grouping width.
func TestRoundTripPreservesBytes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "input")
		groupBy := rapid.SampledFrom([]int{1, 2, 4, 8, 16}).Draw(t, "groupBy")
		cfg := dumpConfig(groupBy)

		src := byteio.New(bytes.NewReader(input), "ad", "-", 0)
		engine := match.NewPassthrough(src)

		var dumped bytes.Buffer
		d := dump.New(cfg, termcap.Capabilities{}, &dumped)
		if _, err := d.Run(engine); err != nil {
			t.Fatalf("dump: %v", err)
		}

		var reconstructed bytes.Buffer
		p := reverse.New(cfg, "ad", "-", &reconstructed)
		if err := p.Run(bytes.NewReader(dumped.Bytes())); err != nil {
			t.Fatalf("reverse: %v\ndump was:\n%s", err, dumped.String())
		}

		if !bytes.Equal(reconstructed.Bytes(), input) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d bytes\ndump was:\n%s",
				reconstructed.Len(), len(input), dumped.String())
		}
	})
}

// TestRoundTripPreservesBytesWithRepeats biases toward long runs of
// identical rows, the input shape that exercises elision.
func TestRoundTripPreservesBytesWithRepeats(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rowBytes := 16
		nRows := rapid.IntRange(0, 20).Draw(t, "nRows")
		var input []byte
		for i := 0; i < nRows; i++ {
			repeat := rapid.Bool().Draw(t, "repeatPrev")
			if repeat && len(input) >= rowBytes {
				input = append(input, input[len(input)-rowBytes:]...)
				continue
			}
			row := rapid.SliceOfN(rapid.Byte(), rowBytes, rowBytes).Draw(t, "row")
			input = append(input, row...)
		}

		cfg := dumpConfig(2)
		src := byteio.New(bytes.NewReader(input), "ad", "-", 0)
		engine := match.NewPassthrough(src)

		var dumped bytes.Buffer
		d := dump.New(cfg, termcap.Capabilities{}, &dumped)
		if _, err := d.Run(engine); err != nil {
			t.Fatalf("dump: %v", err)
		}

		var reconstructed bytes.Buffer
		p := reverse.New(cfg, "ad", "-", &reconstructed)
		if err := p.Run(bytes.NewReader(dumped.Bytes())); err != nil {
			t.Fatalf("reverse: %v\ndump was:\n%s", err, dumped.String())
		}

		if !bytes.Equal(reconstructed.Bytes(), input) {
			t.Fatalf("round trip mismatch with repeats: got %d bytes, want %d\ndump was:\n%s",
				reconstructed.Len(), len(input), dumped.String())
		}
	})
}

// naiveCount counts non-overlapping occurrences of needle in haystack,
// scanning left to right and restarting the search immediately after
// each match — mirroring the match engine's own non-overlap rule.
func naiveCount(haystack, needle []byte) int64 {
	if len(needle) == 0 {
		return 0
	}
	var n int64
	i := 0
	for i+len(needle) <= len(haystack) {
		if bytes.Equal(haystack[i:i+len(needle)], needle) {
			n++
			i += len(needle)
		} else {
			i++
		}
	}
	return n
}

// TestFixedMatchCountMatchesNaiveScan checks the match engine's
// TotalMatches against an independent, brute-force non-overlapping scan.
func TestFixedMatchCountMatchesNaiveScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		haystack := rapid.SliceOfN(rapid.SampledFrom([]byte("ab")), 0, 120).Draw(t, "haystack")
		needle := rapid.SliceOfN(rapid.SampledFrom([]byte("ab")), 1, 4).Draw(t, "needle")

		src := byteio.New(bytes.NewReader(haystack), "ad", "-", 0)
		table := kmp.Table(needle)
		engine := match.NewFixed(src, needle, table, false)

		for {
			_, ok, err := engine.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if !ok {
				break
			}
		}

		want := naiveCount(haystack, needle)
		if got := engine.TotalMatches(); got != want {
			t.Fatalf("TotalMatches() = %d, want %d (haystack=%q needle=%q)", got, want, haystack, needle)
		}
	})
}

// TestPassthroughEmitsEveryByteUnchanged checks that Passthrough mode's
// (byte, matched) stream reproduces every input byte, unmatched, in
// order — the degenerate case the C-array emitter relies on.
func TestPassthroughEmitsEveryByteUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "input")
		src := byteio.New(bytes.NewReader(input), "ad", "-", 0)
		engine := match.NewPassthrough(src)

		var out []byte
		for {
			p, ok, err := engine.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if !ok {
				break
			}
			if p.Matched {
				t.Fatalf("passthrough reported a match at byte %d", len(out))
			}
			out = append(out, p.Byte)
		}
		if !bytes.Equal(out, input) {
			t.Fatalf("passthrough output mismatch: got %v, want %v", out, input)
		}
		if engine.TotalMatches() != 0 {
			t.Fatalf("TotalMatches() = %d, want 0", engine.TotalMatches())
		}
	})
}
