// Package keys maps logical cache keys to the physical keys sent to the
// backend and translates glob patterns into matchers over physical keys.
package keys

import (
	"regexp"
	"strings"
)

const (
	// Separator joins the metadata marker and the logical key.
	Separator = ":"
	// MetadataMarker is appended to the prefix for the reserved key families.
	MetadataMarker = "_metadata"
)

// Namespace derives the three physical key families owned by one prefix:
//
//	<prefix><key>             data entry
//	<prefix>_metadata:<key>   metadata record
//	<prefix>_metadata         key registry
type Namespace struct {
	prefix string
}

func New(prefix string) Namespace { return Namespace{prefix: prefix} }

func (n Namespace) Prefix() string { return n.prefix }

func (n Namespace) Physical(logical string) string { return n.prefix + logical }

func (n Namespace) Metadata(logical string) string {
	return n.prefix + MetadataMarker + Separator + logical
}

func (n Namespace) Registry() string { return n.prefix + MetadataMarker }

// Logical strips the prefix from a physical key.
// ok is false when the key does not belong to this namespace.
func (n Namespace) Logical(physical string) (string, bool) {
	if !strings.HasPrefix(physical, n.prefix) {
		return "", false
	}
	return physical[len(n.prefix):], true
}

// Reserved reports whether a logical key would land on the registry key or
// on some other key's metadata record.
// Other keys that merely start with the marker, like "_metadata_v2", are free.
func Reserved(logical string) bool {
	return logical == MetadataMarker || strings.HasPrefix(logical, MetadataMarker+Separator)
}

// Pattern compiles a glob over logical keys into a regexp anchored to the
// whole physical key. '*' matches any run of characters (including none),
// '?' matches exactly one character; everything else is literal.
func (n Namespace) Pattern(glob string) *regexp.Regexp {
	return regexp.MustCompile(anchor(regexp.QuoteMeta(n.prefix) + globBody(glob)))
}

// GlobToRegexp returns the anchored regexp source for glob.
func GlobToRegexp(glob string) string { return anchor(globBody(glob)) }

func anchor(body string) string { return `\A(?s:` + body + `)\z` }

func globBody(glob string) string {
	var b strings.Builder
	b.Grow(len(glob) + 8)
	lit := 0
	flush := func(i int) {
		if lit < i {
			b.WriteString(regexp.QuoteMeta(glob[lit:i]))
		}
	}
	for i, r := range glob {
		switch r {
		case '*':
			flush(i)
			b.WriteString(`.*`)
			lit = i + 1
		case '?':
			flush(i)
			b.WriteString(`.`)
			lit = i + 1
		}
	}
	flush(len(glob))
	return b.String()
}
