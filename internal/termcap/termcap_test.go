package termcap

import "testing"

type fakeEnv map[string]string

func (f fakeEnv) Getenv(key string) string { return f[key] }

func TestEnabledRespectsNoColor(t *testing.T) {
	env := fakeEnv{"NO_COLOR": "1", "TERM": "xterm"}
	if Enabled(PolicyAuto, StreamKind{IsTTY: true}, env) {
		t.Fatal("NO_COLOR must force color off under --color=auto")
	}
}

func TestEnabledAlwaysOverridesNoColor(t *testing.T) {
	env := fakeEnv{"NO_COLOR": "1", "TERM": "xterm"}
	if !Enabled(PolicyAlways, StreamKind{}, env) {
		t.Fatal("--color=always must win over NO_COLOR")
	}
}

func TestEnabledRespectsDumbTerm(t *testing.T) {
	env := fakeEnv{"TERM": "dumb"}
	if Enabled(PolicyAuto, StreamKind{IsTTY: true}, env) {
		t.Fatal("TERM=dumb must disable color")
	}
}

func TestEnabledEmptyTerm(t *testing.T) {
	env := fakeEnv{}
	if Enabled(PolicyAuto, StreamKind{IsTTY: true}, env) {
		t.Fatal("empty TERM must disable color")
	}
}

func TestPolicyAutoFollowsTTY(t *testing.T) {
	env := fakeEnv{"TERM": "xterm"}
	if Enabled(PolicyAuto, StreamKind{IsTTY: false}, env) {
		t.Fatal("auto policy on a non-tty must be disabled")
	}
	if !Enabled(PolicyAuto, StreamKind{IsTTY: true}, env) {
		t.Fatal("auto policy on a tty must be enabled")
	}
}

func TestResolveADColorsPrecedence(t *testing.T) {
	env := fakeEnv{
		"TERM":        "xterm",
		"AD_COLORS":   "bn=1;32",
		"GREP_COLORS": "bn=9;9",
	}
	caps := Resolve(PolicyAlways, StreamKind{}, env)
	if caps.Code(CapOffset) != "1;32" {
		t.Fatalf("Code(CapOffset) = %q, want AD_COLORS value, not GREP_COLORS", caps.Code(CapOffset))
	}
}

func TestResolveGrepColorFallback(t *testing.T) {
	env := fakeEnv{"TERM": "xterm", "GREP_COLOR": "01;31"}
	caps := Resolve(PolicyAlways, StreamKind{}, env)
	if caps.Code(CapHexMatch) != "01;31" || caps.Code(CapASCIIMatch) != "01;31" {
		t.Fatalf("GREP_COLOR fallback did not apply to both match capabilities: %q %q",
			caps.Code(CapHexMatch), caps.Code(CapASCIIMatch))
	}
}

func TestResolveBothAlias(t *testing.T) {
	env := fakeEnv{"TERM": "xterm", "AD_COLORS": "MB=1;35"}
	caps := Resolve(PolicyAlways, StreamKind{}, env)
	if caps.Code(CapHexMatch) != "1;35" || caps.Code(CapASCIIMatch) != "1;35" {
		t.Fatalf("MB alias did not set both match capabilities")
	}
}

func TestStartEndNoop(t *testing.T) {
	env := fakeEnv{"TERM": "xterm", "AD_COLORS": "bn=1;32"}
	caps := Resolve(PolicyAlways, StreamKind{}, env)
	if caps.Start(CapSeparator) != "" || caps.End(CapSeparator) != "" {
		t.Fatal("unset capability must produce no escape sequences")
	}
	if caps.Start(CapOffset) == "" || caps.End(CapOffset) == "" {
		t.Fatal("set capability must produce escape sequences")
	}
}

func TestDisabledCapabilitiesAreAllNoop(t *testing.T) {
	env := fakeEnv{"TERM": "xterm", "AD_COLORS": "bn=1;32"}
	caps := Resolve(PolicyNever, StreamKind{}, env)
	if caps.Start(CapOffset) != "" {
		t.Fatal("PolicyNever must disable all capabilities regardless of AD_COLORS")
	}
}
