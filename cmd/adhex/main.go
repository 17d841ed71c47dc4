// Command adhex is a hex-dump / pattern-search / reverse-parse utility:
// it dumps a byte stream as annotated hex+ASCII rows (optionally
// highlighting a fixed or numeric search key, or runs of printable
// strings), emits the same bytes as a C source array, or reconstructs
// bytes from a previously emitted dump.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/coregx/hexd/internal/byteio"
	"github.com/coregx/hexd/internal/carray"
	"github.com/coregx/hexd/internal/cliopts"
	"github.com/coregx/hexd/internal/diag"
	"github.com/coregx/hexd/internal/dump"
	"github.com/coregx/hexd/internal/match"
	"github.com/coregx/hexd/internal/options"
	"github.com/coregx/hexd/internal/reverse"
	"github.com/coregx/hexd/internal/termcap"
)

const version = "0.1.0"

const usageText = `usage: ad [options] [+skip] [input [output]]

Dump, search, or reverse-parse a byte stream as hex+ASCII rows.
`

func main() {
	program := "ad"
	res, err := cliopts.Parse(program, os.Args[1:])
	if err != nil {
		reportAndExit(err)
	}
	if res.Help {
		fmt.Fprint(os.Stdout, usageText)
		os.Exit(diag.ExitOK)
	}
	if res.Version {
		fmt.Fprintf(os.Stdout, "%s %s\n", program, version)
		os.Exit(diag.ExitOK)
	}

	if err := run(program, &res.Config); err != nil {
		reportAndExit(err)
	}
}

func reportAndExit(err error) {
	de, ok := err.(*diag.Error)
	if !ok {
		de = diag.Internalf("ad", "%v", err)
	}
	fmt.Fprintln(os.Stderr, de.Error())
	os.Exit(de.ExitCode())
}

func run(program string, cfg *options.Config) error {
	in, inFile, err := openInput(program, cfg.InputPath)
	if err != nil {
		return err
	}
	if inFile != nil {
		defer inFile.Close()
	}

	out, outFile, err := openOutput(program, cfg.OutputPath)
	if err != nil {
		return err
	}
	if outFile != nil {
		defer outFile.Close()
	}

	if cfg.Sink == options.SinkReverse {
		parser := reverse.New(cfg, program, cfg.InputPath, out)
		return parser.Run(in)
	}

	src := byteio.New(in, program, cfg.InputPath, cfg.MaxBytes)
	if err := src.Skip(cfg.SkipBytes); err != nil {
		return err
	}

	if cfg.Sink == options.SinkCArray {
		// Pattern matching plays no part in the C array: the emitter
		// always runs over a passthrough engine.
		em := carray.New(cfg, out)
		return em.Run(match.NewPassthrough(src), cfg.InputPath)
	}

	engine := buildEngine(cfg, src)

	caps := resolveColor(cfg, outFile)
	d := dump.New(cfg, caps, out)
	if _, err := d.Run(engine); err != nil {
		return err
	}
	return reportMatches(program, cfg, engine.TotalMatches())
}

// buildEngine selects Fixed, Strings, or Passthrough mode from the
// resolved configuration.
func buildEngine(cfg *options.Config, src *byteio.Source) *match.Engine {
	switch {
	case cfg.StringsMode:
		scfg := match.StringsConfig{
			MinChars:       int(cfg.StringsMinLen),
			Classes:        match.StringsClasses(cfg.StringsClasses),
			UTF8:           cfg.UTF8Mode != "never",
			NullTerminated: cfg.NullTerminated,
		}
		return match.NewStrings(src, scfg)
	case len(cfg.SearchString) > 0:
		return match.NewFixed(src, cfg.SearchString, cfg.KMPTable(), cfg.IgnoreCase)
	default:
		return match.NewPassthrough(src)
	}
}

// reportMatches emits the match count to stderr when requested, and
// turns a completed, zero-match search into the distinguished exit 1.
func reportMatches(program string, cfg *options.Config, total int64) error {
	if cfg.TotalMatches || cfg.TotalMatchesOnly {
		fmt.Fprintf(os.Stderr, "%d\n", total)
	}
	searchConfigured := cfg.StringsMode || len(cfg.SearchString) > 0
	if searchConfigured && total == 0 {
		return diag.NoMatchErr(program)
	}
	return nil
}

func openInput(program, path string) (io.Reader, *os.File, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, diag.NoInputErr(program, path, err)
	}
	return f, f, nil
}

func openOutput(program, path string) (io.Writer, *os.File, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, diag.CantCreateErr(program, path, err)
	}
	return f, f, nil
}

// resolveColor determines the output stream's kind (regular file vs.
// terminal vs. other) and resolves the configured color policy against
// it and the process environment.
func resolveColor(cfg *options.Config, outFile *os.File) termcap.Capabilities {
	kind := termcap.StreamKind{IsStdStream: outFile == nil}
	fd := os.Stdout.Fd()
	if outFile != nil {
		fd = outFile.Fd()
		if fi, err := outFile.Stat(); err == nil {
			kind.IsRegularFile = fi.Mode().IsRegular()
		}
	}
	kind.IsTTY = termcap.IsTTY(fd)
	return termcap.Resolve(colorPolicyToTermcap(cfg.Color), kind, termcap.OSEnv{})
}

func colorPolicyToTermcap(p options.ColorPolicy) termcap.Policy {
	switch p {
	case options.ColorAlways:
		return termcap.PolicyAlways
	case options.ColorNever:
		return termcap.PolicyNever
	case options.ColorIsatty:
		return termcap.PolicyIsatty
	case options.ColorNotFile:
		return termcap.PolicyNotFile
	case options.ColorNotIsreg:
		return termcap.PolicyNotIsreg
	case options.ColorTTY:
		return termcap.PolicyTTY
	default:
		return termcap.PolicyAuto
	}
}
