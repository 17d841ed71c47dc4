// Package reverse implements the reverse parser: it consumes a
// previously emitted dump (offsets enabled, produced by internal/dump),
// reconstructs the original bytes and their offsets, and writes
// (possibly sparse) output.
package reverse

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/coregx/hexd/internal/diag"
	"github.com/coregx/hexd/internal/options"
)

var elisionRe = regexp.MustCompile(`^: \((\d+) \| 0x([0-9a-fA-F]+)\)$`)

// Parser reconstructs bytes from a dump's text representation.
type Parser struct {
	cfg     *options.Config
	program string
	path    string // the dump's source path, for diagnostics
	out     io.Writer
	seeker  io.Seeker // non-nil only if out also supports seeking
}

// New builds a Parser. path is the dump's source path, carried only for
// diagnostics; out is checked once for io.Seeker support, which a sparse
// hole in the output requires.
func New(cfg *options.Config, program, path string, out io.Writer) *Parser {
	p := &Parser{cfg: cfg, program: program, path: path, out: out}
	if sk, ok := out.(io.Seeker); ok {
		p.seeker = sk
	}
	return p
}

// Run reads the dump text from r and reconstructs bytes to p.out. On EOF
// it returns nil (success); any grammar violation is reported as a fatal
// *diag.Error carrying the 1-based line (and, where meaningful, column).
func (p *Parser) Run(r io.Reader) error {
	br := bufio.NewReader(r)
	rowBytes := int64(p.cfg.RowBytes)

	offset := -rowBytes
	haveLast := false
	var lastRow []byte

	lineNo := 0
	for {
		line, rerr := br.ReadString('\n')
		if len(line) == 0 && rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return diag.IOErr(p.program, p.path, rerr)
		}
		lineNo++
		line = strings.TrimRight(line, "\r\n")

		if strings.TrimSpace(line) == "" {
			if rerr == io.EOF {
				return nil
			}
			continue
		}

		if strings.HasPrefix(line, "-") {
			n, err := p.parseElision(line, lineNo)
			if err != nil {
				return err
			}
			if !haveLast {
				return diag.DataErr(p.program, p.path, lineNo, 1, "elision separator before any data row")
			}
			if n%rowBytes != 0 {
				return diag.DataErr(p.program, p.path, lineNo, 1, "elided byte count %d is not a multiple of row width %d", n, rowBytes)
			}
			reps := n / rowBytes
			for i := int64(0); i < reps; i++ {
				if err := p.write(lastRow); err != nil {
					return diag.IOErr(p.program, p.path, err)
				}
			}
			offset += n
		} else {
			newOffset, bytes, err := p.parseDataRow(line, lineNo)
			if err != nil {
				return err
			}
			if newOffset < offset+rowBytes {
				return diag.DataErr(p.program, p.path, lineNo, 1,
					"offset 0x%x is not monotonically increasing (expected >= 0x%x)", newOffset, offset+rowBytes)
			}
			if newOffset > offset+rowBytes {
				if p.seeker == nil {
					return diag.IOErr(p.program, p.path, errNonSeekableGap(newOffset))
				}
				if _, err := p.seeker.Seek(newOffset, io.SeekStart); err != nil {
					return diag.IOErr(p.program, p.path, err)
				}
			}
			if err := p.write(bytes); err != nil {
				return diag.IOErr(p.program, p.path, err)
			}
			offset = newOffset
			lastRow = bytes
			haveLast = true
		}

		if rerr == io.EOF {
			return nil
		}
	}
}

func (p *Parser) write(b []byte) error {
	_, err := p.out.Write(b)
	return err
}

type gapError struct{ offset int64 }

func (g gapError) Error() string {
	return "output is not seekable but a sparse hole is required to reach offset " + strconv.FormatInt(g.offset, 16)
}

func errNonSeekableGap(offset int64) error { return gapError{offset} }

// parseElision validates and extracts N from an elision-separator line:
// a run of OffsetWidthMin..OffsetWidthMax '-' characters followed by
// literally ": (N | 0xH...)".
func (p *Parser) parseElision(line string, lineNo int) (int64, error) {
	i := 0
	for i < len(line) && line[i] == '-' {
		i++
	}
	if i < options.OffsetWidthMin || i > options.OffsetWidthMax {
		return 0, diag.DataErr(p.program, p.path, lineNo, 1,
			"elision separator dash run length %d out of range [%d,%d]", i, options.OffsetWidthMin, options.OffsetWidthMax)
	}
	rest := line[i:]
	m := elisionRe.FindStringSubmatch(rest)
	if m == nil {
		return 0, diag.DataErr(p.program, p.path, lineNo, i+1, "expected \": (N | 0xH...)\" after elision dashes")
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, diag.DataErr(p.program, p.path, lineNo, i+1, "malformed elision count %q", m[1])
	}
	return n, nil
}

// parseDataRow parses a numeric offset, a ':', and up to row_bytes
// whitespace-separated 2-digit hex bytes, honoring the two/three-space
// termination rule; any trailing ASCII column is ignored.
func (p *Parser) parseDataRow(line string, lineNo int) (int64, []byte, error) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return 0, nil, diag.DataErr(p.program, p.path, lineNo, 1, "expected an offset followed by ':'")
	}
	offStr := line[:colon]
	base := 16
	switch p.cfg.OffsetBase {
	case options.BaseDec:
		base = 10
	case options.BaseOct:
		base = 8
	}
	offset, err := strconv.ParseInt(offStr, base, 64)
	if err != nil {
		return 0, nil, diag.DataErr(p.program, p.path, lineNo, 1, "malformed offset %q", offStr)
	}

	rest := line[colon+1:]
	rowBytes := p.cfg.RowBytes
	groupBy := p.cfg.GroupBy
	// needSpace mirrors internal/dump's writeHex: a space separates hex
	// digits at a group boundary, plus one extra at the byte-8 midpoint
	// when groups are narrower than 8 bytes.
	needSpace := func(col int) bool {
		return col%groupBy == 0 || (col == 8 && groupBy < 8)
	}

	var out []byte
	i := 0
	col := 0
	for col < rowBytes {
		spaceCount := 0
		for i < len(rest) && rest[i] == ' ' {
			spaceCount++
			i++
		}
		if i >= len(rest) {
			// A short row (allowed as the final row of a stream) simply
			// runs out of input here rather than supplying the next
			// group's separator.
			break
		}
		if col == 0 {
			if spaceCount == 0 {
				return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2, "expected a space after ':'")
			}
		} else {
			threshold := 2
			if col == 8 {
				threshold = 3
			}
			if spaceCount >= threshold {
				break
			}
			wantSpace := needSpace(col)
			if wantSpace && spaceCount == 0 {
				return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2+i, "expected a space before the next hex group")
			}
			if !wantSpace && spaceCount != 0 {
				return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2+i, "unexpected space within a hex group")
			}
		}
		if i+2 > len(rest) {
			return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2+i, "incomplete hex byte")
		}
		v, err := strconv.ParseUint(rest[i:i+2], 16, 8)
		if err != nil {
			return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2+i, "malformed hex byte %q", rest[i:i+2])
		}
		out = append(out, byte(v))
		i += 2
		col++
	}
	if len(out) == 0 {
		return 0, nil, diag.DataErr(p.program, p.path, lineNo, colon+2, "expected at least one hex byte")
	}
	return offset, out, nil
}
