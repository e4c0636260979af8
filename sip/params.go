package sip

import (
	"io"
	"slices"
	"strings"
)

// kv is a single key-value pair carried by a Params list.
type kv struct {
	K string
	V string
}

// Params is an ordered set of key=value pairs, as found on a URI
// (;param=value) or on a header field (;tag=abc). Order of insertion is
// preserved on serialization, per spec.md §3 "Round-trip: parse→serialize
// preserves the original parameter order."
type Params []kv

// NewParams returns an empty Params with a small starting capacity.
func NewParams() Params {
	return make(Params, 0, 4)
}

func (p Params) index(key string) int {
	for i, e := range p {
		if e.K == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	if i := p.index(key); i >= 0 {
		return p[i].V, true
	}
	return "", false
}

// Has reports whether key is present, regardless of value (e.g. ";lr").
func (p Params) Has(key string) bool {
	return p.index(key) >= 0
}

// Set adds or overwrites key, preserving its original position if present.
func (p *Params) Set(key, val string) {
	if i := p.index(key); i >= 0 {
		(*p)[i].V = val
		return
	}
	*p = append(*p, kv{K: key, V: val})
}

// Remove deletes key if present.
func (p *Params) Remove(key string) {
	if i := p.index(key); i >= 0 {
		*p = slices.Delete(*p, i, i+1)
	}
}

// Keys returns parameter names in insertion order.
func (p Params) Keys() []string {
	out := make([]string, 0, len(p))
	for _, e := range p {
		out = append(out, e.K)
	}
	return out
}

// Len returns the number of parameters.
func (p Params) Len() int { return len(p) }

// Clone returns an independent copy.
func (p Params) Clone() Params { return slices.Clone(p) }

// ToStringWrite writes "k1=v1<sep>k2=v2..." (no leading separator),
// quoting values that contain characters unsafe outside quotes.
func (p Params) ToStringWrite(sep byte, w io.StringWriter) {
	for i, e := range p {
		if i > 0 {
			w.WriteString(string(sep))
		}
		w.WriteString(e.K)
		if e.V == "" {
			continue
		}
		if strings.ContainsAny(e.V, needsQuoteChars) {
			w.WriteString("=\"")
			w.WriteString(e.V)
			w.WriteString("\"")
		} else {
			w.WriteString("=")
			w.WriteString(e.V)
		}
	}
}

func (p Params) String(sep byte) string {
	var b strings.Builder
	p.ToStringWrite(sep, &b)
	return b.String()
}

// needsQuoteChars are characters that force a param value to be quoted on
// serialization (mirrors teacher's "abnf" escape set).
const needsQuoteChars = " \t;,<>\"@:/?"
