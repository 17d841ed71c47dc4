// Package carray implements the C-array emitter: an alternate sink that
// renders an input byte stream as a C source array literal plus an
// optional length variable, instead of a hex dump.
package carray

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
)

const bytesPerLine = 8

// Identifier derives a valid C identifier from an input path's base name:
// "-" (stdin) becomes "stdin"; any byte outside [A-Za-z0-9_] becomes '_';
// a name starting with a digit is prefixed with '_'.
func Identifier(inputPath string) string {
	if inputPath == "-" || inputPath == "" {
		return "stdin"
	}
	base := filepath.Base(inputPath)
	out := make([]byte, len(base))
	for i := 0; i < len(base); i++ {
		c := base[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	if len(out) > 0 && out[0] >= '0' && out[0] <= '9' {
		out = append([]byte{'_'}, out...)
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}

// Emitter drives a passthrough match engine and writes the C array and
// optional length variable to w.
type Emitter struct {
	cfg *options.Config
	w   *bufio.Writer
}

// New builds an Emitter for the given configuration.
func New(cfg *options.Config, w io.Writer) *Emitter {
	return &Emitter{cfg: cfg, w: bufio.NewWriter(w)}
}

// Run drives e (expected to be a passthrough engine — pattern matching
// is irrelevant to this sink) to exhaustion and emits the array.
func (em *Emitter) Run(e *match.Engine, inputPath string) error {
	name := Identifier(inputPath)
	letters := em.cfg.CLetters

	if letters.Static {
		if _, err := em.w.WriteString("static "); err != nil {
			return err
		}
	}
	if letters.Const {
		if _, err := em.w.WriteString("const "); err != nil {
			return err
		}
	}
	elemType := "unsigned char"
	if letters.Char8 {
		elemType = "char8_t"
	}
	if _, err := fmt.Fprintf(em.w, "%s ", elemType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(em.w, "%s[] = {\n", name); err != nil {
		return err
	}

	var n int64
	col := 0
	offset := int64(0)
	for {
		p, ok, err := e.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if col == 0 {
			if !em.cfg.NoOffsets {
				if _, err := fmt.Fprintf(em.w, "  /* %s */ ", formatOffset(offset, em.cfg.OffsetBase)); err != nil {
					return err
				}
			} else {
				if _, err := em.w.WriteString("  "); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(em.w, "0x%02x,", p.Byte); err != nil {
			return err
		}
		col++
		n++
		offset++
		if col == bytesPerLine {
			if err := em.w.WriteByte('\n'); err != nil {
				return err
			}
			col = 0
		} else {
			if _, err := em.w.WriteString(" "); err != nil {
				return err
			}
		}
	}
	if col != 0 {
		if err := em.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if _, err := em.w.WriteString("};\n"); err != nil {
		return err
	}

	if letters.HasLengthVar() {
		if err := em.writeLengthVar(name, n); err != nil {
			return err
		}
	}

	return em.w.Flush()
}

func (em *Emitter) writeLengthVar(name string, n int64) error {
	letters := em.cfg.CLetters
	if letters.Static {
		if _, err := em.w.WriteString("static "); err != nil {
			return err
		}
	}
	if letters.UnsignedLen {
		if _, err := em.w.WriteString("unsigned "); err != nil {
			return err
		}
	}
	switch {
	case letters.SizeTLen:
		if _, err := em.w.WriteString("size_t "); err != nil {
			return err
		}
	case letters.LongLen:
		if _, err := em.w.WriteString("long "); err != nil {
			return err
		}
	default:
		if _, err := em.w.WriteString("int "); err != nil {
			return err
		}
	}
	if letters.Const {
		if _, err := em.w.WriteString("const "); err != nil {
			return err
		}
	}
	suffix := ""
	if letters.UnsignedLen {
		suffix += "u"
	}
	if letters.LongLen {
		suffix += "L"
	}
	_, err := fmt.Fprintf(em.w, "%s_len = %d%s;\n", name, n, suffix)
	return err
}

func formatOffset(n int64, base options.OffsetBase) string {
	switch base {
	case options.BaseDec:
		return fmt.Sprintf("%d", n)
	case options.BaseOct:
		return fmt.Sprintf("0%o", n)
	default:
		return fmt.Sprintf("0x%x", n)
	}
}
