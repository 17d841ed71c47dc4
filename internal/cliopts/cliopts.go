// Package cliopts wires the long/short command-line option table onto a
// pflag.FlagSet and produces an options.Config, following the teacher
// pack's idiom for pflag-based argument parsing
// (doismellburning-samoyed/cmd/direwolf/main.go: *P constructors, a
// custom Usage func, Parse(), then positional Args()).
package cliopts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/coregx/hexd/internal/diag"
	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
	"github.com/coregx/hexd/internal/termcap"
)

// Result is everything Parse resolves beyond the Config itself: the two
// exclusive short-circuit flags (help/version) and the positional
// operands.
type Result struct {
	Config      options.Config
	Help        bool
	Version     bool
	InputPath   string
	OutputPath  string
	ExtraSkip   int64 // from a "+N" positional operand
}

// sizeValue implements pflag.Value for an argument accepting an optional
// b/k/m suffix (512/1024/1048576), per spec.md §6's max-bytes/skip-bytes
// argument grammar.
type sizeValue struct{ v *int64 }

func (s sizeValue) String() string {
	if s.v == nil {
		return "0"
	}
	return strconv.FormatInt(*s.v, 10)
}

func (s sizeValue) Set(raw string) error {
	n, err := parseSize(raw)
	if err != nil {
		return err
	}
	*s.v = n
	return nil
}

func (s sizeValue) Type() string { return "size" }

func parseSize(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty size argument")
	}
	mult := int64(1)
	numPart := raw
	switch raw[len(raw)-1] {
	case 'b':
		mult = 512
		numPart = raw[:len(raw)-1]
	case 'k':
		mult = 1024
		numPart = raw[:len(raw)-1]
	case 'm':
		mult = 1024 * 1024
		numPart = raw[:len(raw)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return n * mult, nil
}

// parseCArrayLetters parses the optional letter set for --c-array.
func parseCArrayLetters(s string) (options.CArrayLetters, error) {
	var l options.CArrayLetters
	for _, r := range s {
		switch r {
		case '8':
			l.Char8 = true
		case 'c':
			l.Const = true
		case 'i':
			l.IntLen = true
		case 'l':
			l.LongLen = true
		case 's':
			l.Static = true
		case 't':
			l.SizeTLen = true
		case 'u':
			l.UnsignedLen = true
		default:
			return l, fmt.Errorf("unknown -C letter %q", r)
		}
	}
	if l.SizeTLen && (l.IntLen || l.LongLen || l.UnsignedLen) {
		return l, fmt.Errorf("-C: t is mutually exclusive with i/l/u")
	}
	return l, nil
}

// parseStringsOpts parses the --strings-opts letter set.
func parseStringsOpts(s string) (match.StringsClasses, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	var classes match.StringsClasses
	var null bool
	for _, r := range s {
		switch r {
		case '0', 'n':
			null = true
		case 'f':
			classes |= match.ClassFormfeed
		case 'l':
			classes |= match.ClassLinefeed
		case 'r':
			classes |= match.ClassReturn
		case 's':
			classes |= match.ClassSpace
		case 't':
			classes |= match.ClassTab
		case 'v':
			classes |= match.ClassVtab
		case 'w':
			// reserved, accepted as a no-op
		case '*':
			classes = match.ClassAll
		case '-':
			classes = match.ClassNone
		default:
			return 0, false, fmt.Errorf("unknown strings-opts letter %q", r)
		}
	}
	return classes, null, nil
}

// Parse builds a FlagSet covering every option in the CLI surface,
// parses args, and resolves the result into an options.Config. program
// is used only for diagnostic messages (diag.Usagef).
func Parse(program string, args []string) (*Result, error) {
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(new(strings.Builder)) // suppress pflag's own usage printing; caller owns it

	bits := fs.IntP("bits", "b", 0, "numeric search key size in bits (8..64, multiple of 8)")
	bytesArg := fs.IntP("bytes", "B", 0, "numeric search key size in bytes (1..8)")
	cArray := fs.StringP("c-array", "C", "", "emit a C array")
	fs.Lookup("c-array").NoOptDefVal = " "
	color := fs.StringP("color", "c", "auto", "colorization policy")
	decimal := fs.BoolP("decimal", "d", false, "offsets in base 10")
	groupBy := fs.IntP("group-by", "g", 2, "hex grouping width")
	help := fs.BoolP("help", "h", false, "print usage and exit")
	hexadecimal := fs.BoolP("hexadecimal", "x", false, "offsets in base 16 (default)")
	hostEndian := fs.String("host-endian", "", "numeric search key in host byte order")
	ignoreCase := fs.BoolP("ignore-case", "i", false, "case-insensitive string search")
	littleEndian := fs.StringP("little-endian", "e", "", "numeric search key, little-endian")
	bigEndian := fs.StringP("big-endian", "E", "", "numeric search key, big-endian")
	matchingOnly := fs.BoolP("matching-only", "m", false, "suppress non-matching rows")
	var maxBytes int64
	fs.VarP(sizeValue{&maxBytes}, "max-bytes", "N", "cap the number of bytes read")
	maxLines := fs.Int64P("max-lines", "L", 0, "cap the input at this many rows of bytes")
	noASCII := fs.BoolP("no-ascii", "A", false, "suppress the ASCII column")
	noOffsets := fs.BoolP("no-offsets", "O", false, "suppress the offset column")
	octal := fs.BoolP("octal", "o", false, "offsets in base 8")
	plain := fs.BoolP("plain", "P", false, "equivalent to -A -O -g32")
	printingOnly := fs.BoolP("printing-only", "p", false, "only rows containing a printable ASCII byte")
	reverse := fs.BoolP("reverse", "r", false, "reverse mode")
	var skipBytes int64
	fs.VarP(sizeValue{&skipBytes}, "skip-bytes", "j", "skip an input prefix")
	searchString := fs.StringP("string", "s", "", "search string")
	stringsArg := fs.StringP("strings", "n", "", "strings mode, optional minimum length (default 4)")
	fs.Lookup("strings").NoOptDefVal = "4"
	stringsOpts := fs.StringP("strings-opts", "S", "", "strings-mode whitespace classes / null-termination")
	totalMatches := fs.BoolP("total-matches", "t", false, "emit the match count to stderr")
	totalMatchesOnly := fs.BoolP("total-matches-only", "T", false, "emit only the match count")
	utf8Mode := fs.StringP("utf8", "u", "auto", "UTF-8 interpretation of the ASCII column")
	utf8Padding := fs.StringP("utf8-padding", "U", "", "pad character for multi-byte cell continuation")
	verbose := fs.BoolP("verbose", "v", false, "do not elide identical rows")
	version := fs.BoolP("version", "V", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, diag.Usagef(program, "%v", err)
	}

	res := &Result{Help: *help, Version: *version}
	if res.Help || res.Version {
		return res, nil
	}

	cfg := options.Default()
	cfg.Program = program

	if *bits != 0 {
		cfg.NumericBits = *bits
	}
	if *bytesArg != 0 {
		if cfg.NumericBits != 0 {
			return nil, diag.Usagef(program, "--bits and --bytes are mutually exclusive")
		}
		cfg.NumericBytes = *bytesArg
	}

	exclusiveSearch := 0
	if *searchString != "" {
		cfg.SearchString = []byte(*searchString)
		exclusiveSearch++
	}
	if *littleEndian != "" {
		v, err := strconv.ParseUint(*littleEndian, 0, 64)
		if err != nil {
			return nil, diag.Usagef(program, "--little-endian: invalid numeric value %q", *littleEndian)
		}
		cfg.SearchIsNumber, cfg.NumericValue, cfg.Endian = true, v, options.EndianLittle
		exclusiveSearch++
	}
	if *bigEndian != "" {
		v, err := strconv.ParseUint(*bigEndian, 0, 64)
		if err != nil {
			return nil, diag.Usagef(program, "--big-endian: invalid numeric value %q", *bigEndian)
		}
		cfg.SearchIsNumber, cfg.NumericValue, cfg.Endian = true, v, options.EndianBig
		exclusiveSearch++
	}
	if *hostEndian != "" {
		v, err := strconv.ParseUint(*hostEndian, 0, 64)
		if err != nil {
			return nil, diag.Usagef(program, "--host-endian: invalid numeric value %q", *hostEndian)
		}
		cfg.SearchIsNumber, cfg.NumericValue, cfg.Endian = true, v, options.EndianHost
		exclusiveSearch++
	}
	if *stringsArg != "" {
		n, err := strconv.ParseUint(*stringsArg, 10, 64)
		if err != nil {
			return nil, diag.Usagef(program, "--strings: invalid minimum length %q", *stringsArg)
		}
		cfg.StringsMode = true
		cfg.StringsMinLen = n
		exclusiveSearch++
	}
	if exclusiveSearch > 1 {
		return nil, diag.Usagef(program, "only one of --string, --little-endian, --big-endian, --host-endian, --strings may be given")
	}

	if *stringsOpts != "" {
		classes, null, err := parseStringsOpts(*stringsOpts)
		if err != nil {
			return nil, diag.Usagef(program, "--strings-opts: %v", err)
		}
		cfg.StringsClasses = uint8(classes)
		cfg.NullTerminated = null
	}

	cfg.IgnoreCase = *ignoreCase
	cfg.MatchingOnly = *matchingOnly
	cfg.PrintingOnly = *printingOnly
	cfg.Verbose = *verbose
	cfg.Plain = *plain
	cfg.NoASCII = *noASCII
	cfg.NoOffsets = *noOffsets
	cfg.GroupBy = *groupBy
	cfg.TotalMatches = *totalMatches
	cfg.TotalMatchesOnly = *totalMatchesOnly
	cfg.MaxBytes = maxBytes
	cfg.SkipBytes = skipBytes

	baseCount := 0
	if *decimal {
		cfg.OffsetBase = options.BaseDec
		baseCount++
	}
	if *octal {
		cfg.OffsetBase = options.BaseOct
		baseCount++
	}
	if *hexadecimal {
		cfg.OffsetBase = options.BaseHex
		baseCount++
	}
	if baseCount > 1 {
		return nil, diag.Usagef(program, "only one of --decimal, --octal, --hexadecimal may be given")
	}

	if *cArray != "" {
		cfg.CArray = true
		cfg.Sink = options.SinkCArray
		letters, err := parseCArrayLetters(strings.TrimSpace(*cArray))
		if err != nil {
			return nil, diag.Usagef(program, "--c-array: %v", err)
		}
		cfg.CLetters = letters
	}
	if *reverse {
		if cfg.CArray {
			return nil, diag.Usagef(program, "--reverse and --c-array are mutually exclusive")
		}
		cfg.Sink = options.SinkReverse
	}

	tp, ok := termcap.ParsePolicy(*color)
	if !ok {
		return nil, diag.Usagef(program, "--color: unknown policy %q", *color)
	}
	cfg.Color = colorPolicyFromTermcap(tp)

	cfg.UTF8Mode = *utf8Mode
	if *utf8Padding != "" {
		r, err := parsePadChar(*utf8Padding)
		if err != nil {
			return nil, diag.Usagef(program, "--utf8-padding: %v", err)
		}
		cfg.UTF8PadRune = r
	}

	if err := cfg.Resolve(*maxLines, *maxLines > 0); err != nil {
		return nil, diag.Usagef(program, "%v", err)
	}

	positional := fs.Args()
	for len(positional) > 0 && strings.HasPrefix(positional[0], "+") {
		n, err := strconv.ParseInt(positional[0][1:], 10, 64)
		if err != nil {
			return nil, diag.Usagef(program, "invalid +N skip operand %q", positional[0])
		}
		res.ExtraSkip += n
		positional = positional[1:]
	}
	if len(positional) > 0 {
		res.InputPath = positional[0]
	}
	if len(positional) > 1 {
		res.OutputPath = positional[1]
	}
	if len(positional) > 2 {
		return nil, diag.Usagef(program, "too many positional operands")
	}
	cfg.SkipBytes += res.ExtraSkip
	if res.InputPath != "" {
		cfg.InputPath = res.InputPath
	}
	if res.OutputPath != "" {
		cfg.OutputPath = res.OutputPath
	}

	res.Config = cfg
	return res, nil
}

// colorPolicyFromTermcap maps termcap's Policy (shared with internal/dump
// and internal/termcap at render time) onto the options package's copy
// of the same enumeration, keeping the two packages independently
// importable without one depending on the other's flag-parsing layer.
func colorPolicyFromTermcap(p termcap.Policy) options.ColorPolicy {
	switch p {
	case termcap.PolicyAlways:
		return options.ColorAlways
	case termcap.PolicyNever:
		return options.ColorNever
	case termcap.PolicyIsatty:
		return options.ColorIsatty
	case termcap.PolicyNotFile:
		return options.ColorNotFile
	case termcap.PolicyNotIsreg:
		return options.ColorNotIsreg
	case termcap.PolicyTTY:
		return options.ColorTTY
	default:
		return options.ColorAuto
	}
}

// parsePadChar accepts a literal rune, "U+XXXX", "0xXXXX", or a decimal
// integer, per spec.md §6's --utf8-padding argument grammar.
func parsePadChar(s string) (rune, error) {
	switch {
	case strings.HasPrefix(s, "U+"):
		n, err := strconv.ParseInt(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid code point %q", s)
		}
		return rune(n), nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n, err := strconv.ParseInt(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid code point %q", s)
		}
		return rune(n), nil
	default:
		runes := []rune(s)
		if len(runes) == 1 {
			return runes[0], nil
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid pad character %q", s)
		}
		return rune(n), nil
	}
}
