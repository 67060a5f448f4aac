// Package marker encodes and decodes the `[Tag:value]` tokens that carry
// reconciliation state inside free-text fields of the target ledger.
package marker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// TransactionTag marks the source id(s) a target transaction was created from.
	TransactionTag = "SourceID"
	// AccountTag marks the source account a target account mirrors.
	AccountTag = "SourceAcctID"
)

// Codec reads and writes one tag.
type Codec struct {
	tag     string
	pattern *regexp.Regexp
}

// New returns a codec for tag. The tag must not contain ':' or brackets.
func New(tag string) (*Codec, error) {
	if tag == "" || strings.ContainsAny(tag, ":[]") {
		return nil, fmt.Errorf("invalid marker tag %q", tag)
	}
	return &Codec{
		tag:     tag,
		pattern: regexp.MustCompile(`\[` + regexp.QuoteMeta(tag) + `:([^\]]*)\]`),
	}, nil
}

// Must is New that panics on an invalid tag.
func Must(tag string) *Codec {
	c, err := New(tag)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec) Tag() string {
	return c.tag
}

// Encode renders the token for value.
func (c *Codec) Encode(value string) string {
	return "[" + c.tag + ":" + value + "]"
}

// Append adds the token to text separated by a single space.
func (c *Codec) Append(text, value string) string {
	if text == "" {
		return c.Encode(value)
	}
	return text + " " + c.Encode(value)
}

// Extract returns the payload of the first token in text. Empty payloads are
// reported as absent.
func (c *Codec) Extract(text string) (string, bool) {
	m := c.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return "", false
	}
	return value, true
}

// ExtractIDs returns the ids of the first token in text, splitting combined
// transfer payloads ("A_B") into their parts.
func (c *Codec) ExtractIDs(text, sep string) []string {
	value, ok := c.Extract(text)
	if !ok {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(value, sep) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
