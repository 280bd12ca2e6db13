package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Errorf("round trip mismatch: %v != %v", parsed, sid)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[SessionID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		if _, dup := seen[sid]; dup {
			t.Fatalf("duplicate session id after %d draws", i)
		}
		seen[sid] = struct{}{}
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, s := range []string{
		"",
		"short",
		"not base64url!!!",
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", // 32 decoded bytes
	} {
		if _, err := ParseSessionID(s); err == nil {
			t.Errorf("ParseSessionID(%q) accepted bad input", s)
		}
	}
}

func TestFingerprintDistinguishesComponents(t *testing.T) {
	base := Fingerprint("agent/1.0", "10.0.0.1")

	if Fingerprint("agent/1.0", "10.0.0.1") != base {
		t.Error("fingerprint is not deterministic")
	}
	if Fingerprint("agent/1.0", "10.0.0.2") == base {
		t.Error("ip change did not alter fingerprint")
	}
	if Fingerprint("agent/2.0", "10.0.0.1") == base {
		t.Error("user-agent change did not alter fingerprint")
	}

	// The separator prevents boundary ambiguity between the two inputs.
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Error("fingerprint is ambiguous across the field boundary")
	}
}
