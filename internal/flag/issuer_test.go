package flag

import (
	"strings"
	"testing"
)

const urlSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestIssueDeterministicPerName(t *testing.T) {
	issuer := NewIssuer("test-secret")

	first := issuer.Issue("Rex")
	second := issuer.Issue("Rex")
	if first != second {
		t.Fatalf("same name produced different flags: %q vs %q", first, second)
	}

	other := issuer.Issue("Ada")
	if other == first {
		t.Fatalf("distinct names produced the same flag: %q", first)
	}
}

func TestIssueTokenShape(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token := string(issuer.Issue("Rex"))

	if len(token) < 16 {
		t.Fatalf("flag too short: %d chars", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune(urlSafe, r) {
			t.Fatalf("flag contains non URL-safe character %q in %q", r, token)
		}
	}
}

func TestIssueEmptySecretStillStableWithinProcess(t *testing.T) {
	issuer := NewIssuer("")
	if issuer.Issue("Rex") != issuer.Issue("Rex") {
		t.Fatalf("expected per-process stability with random key")
	}

	other := NewIssuer("")
	if other.Issue("Rex") == issuer.Issue("Rex") {
		t.Fatalf("expected different random keys across issuers")
	}
}
