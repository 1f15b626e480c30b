package telnetd

import "testing"

func feedEnvironIs(t *testing.T, e *Engine, opt byte, data []byte) {
	t.Helper()
	payload := append([]byte{TelQualIs}, data...)
	feedSB(t, e, opt, payload)
}

func TestParseEnvironNewEnvironVariable(t *testing.T) {
	e, _ := newTestEngine()
	data := append([]byte{EnvVar}, "TERM"...)
	data = append(data, EnvValue)
	data = append(data, "xterm-256color"...)

	feedEnvironIs(t, e, OptNewEnviron, data)

	vars := e.EnvironVars()
	if len(vars) != 1 {
		t.Fatalf("got %d vars, want 1", len(vars))
	}
	if vars[0].Name != "TERM" || vars[0].Value != "xterm-256color" || vars[0].UserVar {
		t.Fatalf("got %+v, want {TERM xterm-256color false}", vars[0])
	}
}

func TestParseEnvironUserVar(t *testing.T) {
	e, _ := newTestEngine()
	data := append([]byte{EnvUserVar}, "MYVAR"...)
	data = append(data, EnvValue)
	data = append(data, "hello"...)

	feedEnvironIs(t, e, OptNewEnviron, data)

	vars := e.EnvironVars()
	if len(vars) != 1 || !vars[0].UserVar {
		t.Fatalf("got %+v, want a single UserVar entry", vars)
	}
}

func TestParseEnvironEscapedTagByte(t *testing.T) {
	e, _ := newTestEngine()
	// Value contains a literal EnvValue byte, escaped with EnvESC.
	data := append([]byte{EnvVar}, "X"...)
	data = append(data, EnvValue, 'a', EnvESC, EnvValue, 'b')

	feedEnvironIs(t, e, OptNewEnviron, data)

	vars := e.EnvironVars()
	if len(vars) != 1 {
		t.Fatalf("got %d vars, want 1", len(vars))
	}
	want := "a" + string(rune(EnvValue)) + "b"
	if vars[0].Value != want {
		t.Fatalf("got value %q, want %q", vars[0].Value, want)
	}
}

func TestOldEnvironReversedTagHeuristic(t *testing.T) {
	e, _ := newTestEngine()
	// A buggy OLD-ENVIRON client sends VALUE(1) before any VAR(0) tag: the
	// heuristic must conclude the tags are swapped for this session and
	// still recover the variable correctly.
	data := append([]byte{EnvValue}, "SHELL"...)
	data = append(data, EnvVar)
	data = append(data, "/bin/sh"...)

	feedEnvironIs(t, e, OptOldEnviron, data)

	vars := e.EnvironVars()
	if len(vars) != 1 {
		t.Fatalf("got %d vars, want 1", len(vars))
	}
	if vars[0].Name != "SHELL" || vars[0].Value != "/bin/sh" {
		t.Fatalf("got %+v, want {SHELL /bin/sh false}", vars[0])
	}
}

func TestOldEnvironHeuristicIsCachedPerEngine(t *testing.T) {
	e, _ := newTestEngine()
	first := append([]byte{EnvValue}, "A"...)
	first = append(first, EnvVar)
	first = append(first, "1"...)
	feedEnvironIs(t, e, OptOldEnviron, first)

	// Second OLD-ENVIRON frame from the same client, again VALUE first: it
	// must be parsed with the reversed tag roles locked in by the first
	// frame, replacing the first frame's variable.
	second := append([]byte{EnvValue}, "B"...)
	second = append(second, EnvVar)
	second = append(second, "2"...)
	feedEnvironIs(t, e, OptOldEnviron, second)

	vars := e.EnvironVars()
	if len(vars) != 1 || vars[0].Name != "B" || vars[0].Value != "2" {
		t.Fatalf("got %+v, want {B 2 false}", vars)
	}
}

func TestEnvironSendIsIgnored(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptNewEnviron, []byte{TelQualSend})
	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes for ENVIRON SEND, want 0 (server never replies to its own SEND request here)", len(fc.netOut))
	}
	if e.EnvironVars() != nil {
		t.Fatalf("EnvironVars() = %v, want nil", e.EnvironVars())
	}
}

// TestClassifyOldEnvironFirstTagDecides covers the simplest rule: the first
// recognized tag, if VAR or VALUE, settles it immediately.
func TestClassifyOldEnvironFirstTagDecides(t *testing.T) {
	reversed, resolved := classifyOldEnvironTags([]byte{EnvVar, 'X'})
	if !resolved || reversed {
		t.Fatalf("VAR-first: got (reversed=%v, resolved=%v), want (false, true)", reversed, resolved)
	}

	reversed, resolved = classifyOldEnvironTags([]byte{EnvValue, 'X'})
	if !resolved || !reversed {
		t.Fatalf("VALUE-first: got (reversed=%v, resolved=%v), want (true, true)", reversed, resolved)
	}
}

// TestClassifyOldEnvironTwoConsecutiveSameTagDecides covers the second rule:
// when the first recognized tag is USERVAR, two VAR (or VALUE) tags in a
// row, with no other tag between them, also settle it.
func TestClassifyOldEnvironTwoConsecutiveSameTagDecides(t *testing.T) {
	data := []byte{EnvUserVar, 'X', EnvVar, EnvVar, 'Y'}
	reversed, resolved := classifyOldEnvironTags(data)
	if !resolved || reversed {
		t.Fatalf("got (reversed=%v, resolved=%v), want (false, true)", reversed, resolved)
	}
}

// TestClassifyOldEnvironUserVarLedEmptyRuleDetectsReversal exercises the
// case a naive "is the first byte VALUE" check gets wrong: the payload
// doesn't start with VAR or VALUE at all, so the classification only comes
// from the USERVAR branch's empty-string disambiguation (a VAR tag
// immediately followed by a USERVAR tag, no name bytes between them, means
// the client's VAR role is actually carried on our VALUE byte).
func TestClassifyOldEnvironUserVarLedEmptyRuleDetectsReversal(t *testing.T) {
	data := []byte{EnvUserVar, 'X', EnvVar, EnvUserVar, 'Y'}
	reversed, resolved := classifyOldEnvironTags(data)
	if !resolved || !reversed {
		t.Fatalf("got (reversed=%v, resolved=%v), want (true, true)", reversed, resolved)
	}
}

// TestClassifyOldEnvironCountFallbackNotReversed and
// TestClassifyOldEnvironCountFallbackReversed cover the last rule: when
// nothing above decides it, compare how many VALUE tags were seen against
// how many VAR+USERVAR tags were seen.
func TestClassifyOldEnvironCountFallbackNotReversed(t *testing.T) {
	// USERVAR "U" VALUE "1" USERVAR "V" VALUE "2": gotUserVar(2)+gotVar(0)
	// == gotValue(2), so the tags are as assumed.
	data := []byte{EnvUserVar, 'U', EnvValue, '1', EnvUserVar, 'V', EnvValue, '2'}
	reversed, resolved := classifyOldEnvironTags(data)
	if !resolved || reversed {
		t.Fatalf("got (reversed=%v, resolved=%v), want (false, true)", reversed, resolved)
	}
}

func TestClassifyOldEnvironCountFallbackReversed(t *testing.T) {
	// Same shape, but the "value" role is carried on the VAR byte instead:
	// gotUserVar(2)+gotValue(0) == gotVar(2), so the tags are reversed.
	data := []byte{EnvUserVar, 'U', EnvVar, '1', EnvUserVar, 'V', EnvVar, '2'}
	reversed, resolved := classifyOldEnvironTags(data)
	if !resolved || !reversed {
		t.Fatalf("got (reversed=%v, resolved=%v), want (true, true)", reversed, resolved)
	}
}

// TestClassifyOldEnvironAmbiguousIsUnresolved covers a payload with no
// second tag to compare against and mismatched counts either way: the
// classifier must report resolved=false rather than guessing.
func TestClassifyOldEnvironAmbiguousIsUnresolved(t *testing.T) {
	data := []byte{EnvUserVar, 'X'}
	_, resolved := classifyOldEnvironTags(data)
	if resolved {
		t.Fatalf("got resolved=true for an ambiguous payload, want false")
	}
}

// TestOldEnvironUserVarLedPayloadParsesCorrectly checks the full pipeline:
// a USERVAR-led reversed payload is not only classified correctly but also
// parsed into the right variable.
func TestOldEnvironUserVarLedPayloadParsesCorrectly(t *testing.T) {
	e, _ := newTestEngine()
	// Reversed tags: EnvVar carries values, EnvValue carries names/USERVAR.
	// First frame establishes the reversal via the empty-rule (see above),
	// second is the actual variable using the now-resolved tag roles.
	setup := []byte{EnvUserVar, 'X', EnvVar, EnvUserVar, 'Y'}
	feedEnvironIs(t, e, OptOldEnviron, setup)

	data := append([]byte{EnvUserVar}, "SHELL"...)
	data = append(data, EnvVar)
	data = append(data, "/bin/sh"...)
	feedEnvironIs(t, e, OptOldEnviron, data)

	vars := e.EnvironVars()
	if len(vars) != 1 {
		t.Fatalf("got %d vars, want 1", len(vars))
	}
	if vars[0].Name != "SHELL" || vars[0].Value != "/bin/sh" || !vars[0].UserVar {
		t.Fatalf("got %+v, want {SHELL /bin/sh true}", vars[0])
	}
}
