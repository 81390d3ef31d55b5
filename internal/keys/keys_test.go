package keys

import (
	"strings"
	"testing"
)

func TestNamespaceLayout(t *testing.T) {
	n := New("app:")
	if got := n.Physical("user:1"); got != "app:user:1" {
		t.Fatalf("Physical=%q", got)
	}
	if got := n.Metadata("user:1"); got != "app:_metadata:user:1" {
		t.Fatalf("Metadata=%q", got)
	}
	if got := n.Registry(); got != "app:_metadata" {
		t.Fatalf("Registry=%q", got)
	}
}

func TestPhysicalKeepsPrefixAndIsInjective(t *testing.T) {
	n := New("ns/")
	logical := []string{"", "a", "aa", "a:b", "a b", "ns/a", "ü", "*"}
	seen := make(map[string]string, len(logical))
	for _, k := range logical {
		p := n.Physical(k)
		if !strings.HasPrefix(p, "ns/") {
			t.Fatalf("physical %q does not start with prefix", p)
		}
		if prev, dup := seen[p]; dup {
			t.Fatalf("collision: %q and %q -> %q", prev, k, p)
		}
		seen[p] = k
		back, ok := n.Logical(p)
		if !ok || back != k {
			t.Fatalf("Logical(%q)=%q,%v want %q", p, back, ok, k)
		}
	}
}

func TestLogicalRejectsForeignKeys(t *testing.T) {
	n := New("a:")
	if _, ok := n.Logical("b:x"); ok {
		t.Fatalf("foreign key accepted")
	}
}

func TestReserved(t *testing.T) {
	for _, k := range []string{"_metadata", "_metadata:x", "_metadata:"} {
		if !Reserved(k) {
			t.Fatalf("%q should be reserved", k)
		}
	}
	for _, k := range []string{"metadata", "x_metadata", "", "_metadataX", "_metadata_v2", "_meta"} {
		if Reserved(k) {
			t.Fatalf("%q should not be reserved", k)
		}
	}

	// unreserved keys never land on the registry or a metadata record
	n := New("p:")
	for _, k := range []string{"_metadataX", "_metadata_v2"} {
		if pk := n.Physical(k); pk == n.Registry() || strings.HasPrefix(pk, n.Metadata("")) {
			t.Fatalf("%q maps to reserved physical key %q", k, pk)
		}
	}
}

func TestPatternMatching(t *testing.T) {
	n := New("p.")
	cases := []struct {
		glob  string
		key   string
		match bool
	}{
		{"user:*", "p.user:1", true},
		{"user:*", "p.user:", true},
		{"user:*", "p.user:1:profile", true},
		{"user:*", "p.order:1", false},
		{"user:*", "q.user:1", false},
		{"user:?", "p.user:1", true},
		{"user:?", "p.user:12", false},
		{"*", "p.anything", true},
		{"*", "x.anything", false},
		{"a.b", "p.a.b", true},
		{"a.b", "p.aXb", false},
		{"(x)+[y]", "p.(x)+[y]", true},
		{"*:1", "p.order:1", true},
		{"*:1", "p.order:10", false},
	}
	for _, tc := range cases {
		re := n.Pattern(tc.glob)
		if got := re.MatchString(tc.key); got != tc.match {
			t.Fatalf("glob %q key %q: got %v want %v (re=%s)", tc.glob, tc.key, got, tc.match, re)
		}
	}
}

func TestPatternEscapesPrefix(t *testing.T) {
	n := New("a.b|")
	re := n.Pattern("*")
	if re.MatchString("aXb|k") {
		t.Fatalf("prefix metacharacters must be literal")
	}
	if !re.MatchString("a.b|k") {
		t.Fatalf("expected match")
	}
}

func TestPatternMatchesNewlines(t *testing.T) {
	re := New("").Pattern("a*b")
	if !re.MatchString("a\nb") {
		t.Fatalf("'*' should span any character")
	}
}

func TestPatternPrefixWildcardsAreLiteral(t *testing.T) {
	re := New("tenant*:").Pattern("k?")
	if re.MatchString("tenantX:k1") {
		t.Fatalf("'*' in the prefix must not act as a wildcard")
	}
	if !re.MatchString("tenant*:k1") {
		t.Fatalf("expected match")
	}
}
