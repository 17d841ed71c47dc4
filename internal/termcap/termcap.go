// Package termcap resolves whether colorized output is appropriate for a
// given stream and, if so, what SGR codes each color capability should
// use.
//
// isatty detection follows the pack's idiom for probing a file
// descriptor's terminal-ness: an ioctl that only succeeds on a real tty
// (dshills-gokeys/input/backend_unix.go uses unix.IoctlGetTermios the
// same way, gating raw-mode setup instead of color).
package termcap

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Capability names one of the color hooks the row framer brackets output
// with.
type Capability int

const (
	CapOffset Capability = iota
	CapSeparator
	CapElided
	CapHexMatch
	CapASCIIMatch
)

// Policy is the resolved --color behavior.
type Policy int

const (
	PolicyAuto Policy = iota
	PolicyAlways
	PolicyNever
	PolicyIsatty
	PolicyNotFile
	PolicyNotIsreg
	PolicyTTY
)

// ParsePolicy parses one of the --color argument values.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "always":
		return PolicyAlways, true
	case "auto":
		return PolicyAuto, true
	case "never":
		return PolicyNever, true
	case "isatty":
		return PolicyIsatty, true
	case "not_file":
		return PolicyNotFile, true
	case "not_isreg":
		return PolicyNotIsreg, true
	case "tty":
		return PolicyTTY, true
	}
	return 0, false
}

// IsTTY reports whether fd refers to a terminal device.
func IsTTY(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlGetTermios)
	return err == nil
}

// StreamKind describes what the output stream is, for the not_file /
// not_isreg / isatty policies.
type StreamKind struct {
	IsRegularFile bool
	IsTTY         bool
	IsStdStream   bool // stdin/stdout/stderr, as opposed to a named file
}

// Enabled resolves whether color output should be produced for a stream
// of the given kind under the given policy, before NO_COLOR / TERM are
// applied (see the package-level Enabled for the final decision).
func (p Policy) Enabled(k StreamKind) bool {
	switch p {
	case PolicyAlways:
		return true
	case PolicyNever:
		return false
	case PolicyIsatty, PolicyTTY:
		return k.IsTTY
	case PolicyNotFile:
		return !k.IsRegularFile
	case PolicyNotIsreg:
		return !k.IsRegularFile || k.IsTTY
	case PolicyAuto:
		return k.IsTTY
	default:
		return false
	}
}

// Capabilities holds the resolved SGR code strings per capability, or ""
// for a capability with no color assigned (a no-op bracket).
type Capabilities struct {
	codes   [5]string
	enabled bool
}

// Enabled reports whether colorization should run at all. An explicit
// --color=always always wins. Otherwise NO_COLOR (any non-empty value)
// forces color off; otherwise TERM=dumb or an empty TERM disables it;
// otherwise the resolved policy decides.
func Enabled(policy Policy, k StreamKind, env Lookup) bool {
	if policy == PolicyAlways {
		return true
	}
	if env.Getenv("NO_COLOR") != "" {
		return false
	}
	term := env.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	return policy.Enabled(k)
}

// Lookup abstracts environment-variable access so tests can supply a
// fake environment instead of the process's real one.
type Lookup interface {
	Getenv(key string) string
}

// OSEnv is the Lookup backed by os.Getenv.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string { return os.Getenv(key) }

// Resolve builds Capabilities from the first of AD_COLORS, GREP_COLORS,
// GREP_COLOR that is set (tried in that order), applying the NO_COLOR /
// TERM / policy gate above. The recognized keys are bn (offset), EC
// (elided count), MA (ascii match), MH (hex match), MB/mt (both match
// capabilities at once), se (separator); ne is accepted but does not
// affect Capabilities (it only suppresses the trailing reset sequence
// emitted by color_end, a call-site concern).
func Resolve(policy Policy, k StreamKind, env Lookup) Capabilities {
	c := Capabilities{enabled: Enabled(policy, k, env)}
	if !c.enabled {
		return c
	}
	spec := env.Getenv("AD_COLORS")
	if spec == "" {
		spec = env.Getenv("GREP_COLORS")
	}
	if spec == "" {
		if gc := env.Getenv("GREP_COLOR"); gc != "" {
			// GREP_COLOR (singular) is a bare value applied to both
			// match capabilities, matching grep's own legacy fallback.
			c.codes[CapHexMatch] = gc
			c.codes[CapASCIIMatch] = gc
			return c
		}
		return c
	}
	for _, kv := range strings.Split(spec, ":") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "bn":
			c.codes[CapOffset] = v
		case "EC":
			c.codes[CapElided] = v
		case "MA":
			c.codes[CapASCIIMatch] = v
		case "MH":
			c.codes[CapHexMatch] = v
		case "MB", "mt":
			c.codes[CapHexMatch] = v
			c.codes[CapASCIIMatch] = v
		case "se":
			c.codes[CapSeparator] = v
		}
	}
	return c
}

// Code returns the SGR code string for a capability, or "" if unset or
// colorization is disabled.
func (c Capabilities) Code(cap Capability) string {
	if !c.enabled {
		return ""
	}
	return c.codes[cap]
}

// Start returns the escape sequence to open a color run for cap, or ""
// if the capability has no assigned code.
func (c Capabilities) Start(cap Capability) string {
	code := c.Code(cap)
	if code == "" {
		return ""
	}
	return "\x1b[" + sgrJoin(code) + "m"
}

// End returns the reset escape sequence, or "" if the capability had no
// assigned code (matching Start's no-op).
func (c Capabilities) End(cap Capability) string {
	if c.Code(cap) == "" {
		return ""
	}
	return "\x1b[0m"
}

// sgrJoin normalizes a semicolon-separated list of decimal SGR codes,
// validating each is in 0..255 and skipping malformed entries rather
// than emitting a broken escape sequence.
func sgrJoin(v string) string {
	parts := strings.Split(v, ";")
	var kept []string
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			continue
		}
		kept = append(kept, strconv.Itoa(n))
	}
	if len(kept) == 0 {
		return "0"
	}
	return strings.Join(kept, ";")
}
