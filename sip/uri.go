package sip

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Uri is a sip:/sips: URI (RFC 3261 §19.1).
//
//	sip:[user[:password]@]host[:port][;param=value]*[?header=value]*
type Uri struct {
	Secure bool // true for sips:

	User     string
	Password string
	Host     string
	Port     int // 0 if absent

	UriParams Params
	Headers   Params
}

// MalformedUri is returned for unparseable URIs (spec.md §4.A).
type MalformedUri struct {
	Reason string
	Input  string
}

func (e *MalformedUri) Error() string {
	return fmt.Sprintf("malformed uri %q: %s", e.Input, e.Reason)
}

// ParseUri parses a sip/sips URI. IPv6 hosts must be bracketed.
func ParseUri(raw string) (Uri, error) {
	var u Uri
	if raw == "" {
		return u, &MalformedUri{Input: raw, Reason: "empty uri"}
	}

	colon := strings.IndexByte(raw, ':')
	if colon < 0 {
		return u, &MalformedUri{Input: raw, Reason: "missing scheme"}
	}
	scheme := strings.ToLower(raw[:colon])
	switch scheme {
	case "sip":
	case "sips":
		u.Secure = true
	default:
		return u, &MalformedUri{Input: raw, Reason: "unsupported scheme " + scheme}
	}
	rest := raw[colon+1:]

	if i := strings.IndexByte(rest, '@'); i >= 0 {
		userinfo := rest[:i]
		rest = rest[i+1:]
		if j := strings.IndexByte(userinfo, ':'); j >= 0 {
			u.User = userinfo[:j]
			u.Password = userinfo[j+1:]
		} else {
			u.User = userinfo
		}
	}

	host, rest, err := parseHostPort(&u, rest)
	if err != nil {
		return u, err
	}
	u.Host = host

	// split off ;params and ?headers, both scoped to outside brackets
	// (host/port parsing already consumed the bracketed portion).
	paramsIdx, headerIdx := -1, -1
	for i, c := range rest {
		switch c {
		case ';':
			if paramsIdx < 0 {
				paramsIdx = i
			}
		case '?':
			if headerIdx < 0 {
				headerIdx = i
			}
		}
		if headerIdx >= 0 {
			break
		}
	}

	var paramStr, headerStr string
	switch {
	case paramsIdx >= 0 && headerIdx >= 0 && headerIdx > paramsIdx:
		paramStr = rest[paramsIdx+1 : headerIdx]
		headerStr = rest[headerIdx+1:]
	case paramsIdx >= 0:
		paramStr = rest[paramsIdx+1:]
	case headerIdx >= 0:
		headerStr = rest[headerIdx+1:]
	}

	u.UriParams = NewParams()
	if paramStr != "" {
		if err := unmarshalParams(paramStr, ';', &u.UriParams); err != nil {
			return u, err
		}
	}
	u.Headers = NewParams()
	if headerStr != "" {
		if err := unmarshalParams(headerStr, '&', &u.Headers); err != nil {
			return u, err
		}
	}

	if u.Host == "" {
		return u, &MalformedUri{Input: raw, Reason: "empty host"}
	}

	return u, nil
}

// parseHostPort consumes "host[:port]" from the front of s, stopping at the
// first unescaped ';' or '?'. Bracketed IPv6 hosts are handled specially.
func parseHostPort(u *Uri, s string) (host string, rest string, err error) {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", "", &MalformedUri{Input: s, Reason: "unbalanced brackets"}
		}
		host = s[:end+1]
		s = s[end+1:]
		if strings.HasPrefix(s, ":") {
			s = s[1:]
			n := scanUntilAny(s, ";?")
			port, perr := strconv.Atoi(s[:n])
			if perr != nil {
				return "", "", &MalformedUri{Input: s, Reason: "bad port"}
			}
			u.Port = port
			s = s[n:]
		}
		return host, s, nil
	}

	n := scanUntilAny(s, ":;?")
	host = s[:n]
	s = s[n:]
	if strings.HasPrefix(s, ":") {
		s = s[1:]
		m := scanUntilAny(s, ";?")
		port, perr := strconv.Atoi(s[:m])
		if perr != nil {
			return "", "", &MalformedUri{Input: s, Reason: "bad port"}
		}
		u.Port = port
		s = s[m:]
	}
	return host, s, nil
}

func scanUntilAny(s, cutset string) int {
	i := strings.IndexAny(s, cutset)
	if i < 0 {
		return len(s)
	}
	return i
}

func (u Uri) String() string {
	var b strings.Builder
	u.StringWrite(&b)
	return b.String()
}

func (u Uri) StringWrite(w io.StringWriter) {
	if u.Secure {
		w.WriteString("sips:")
	} else {
		w.WriteString("sip:")
	}
	if u.User != "" {
		w.WriteString(u.User)
		if u.Password != "" {
			w.WriteString(":")
			w.WriteString(u.Password)
		}
		w.WriteString("@")
	}
	w.WriteString(u.Host)
	if u.Port > 0 {
		w.WriteString(":")
		w.WriteString(strconv.Itoa(u.Port))
	}
	if u.UriParams.Len() > 0 {
		w.WriteString(";")
		u.UriParams.ToStringWrite(';', w)
	}
	if u.Headers.Len() > 0 {
		w.WriteString("?")
		u.Headers.ToStringWrite('&', w)
	}
}

// Clone returns an independent copy (param lists copied).
func (u Uri) Clone() Uri {
	c := u
	c.UriParams = u.UriParams.Clone()
	c.Headers = u.Headers.Clone()
	return c
}

// HostPort renders "host:port", using defaultPort when Port is unset.
func (u Uri) HostPort(defaultPort int) string {
	port := u.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", u.Host, port)
}

// unmarshalParams parses a ';'- or '&'-separated list of key[=value] pairs
// into dst, splitting only outside quoted strings.
func unmarshalParams(s string, sep byte, dst *Params) error {
	inQuotes := false
	start := 0
	flush := func(chunk string) error {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			return nil
		}
		if eq := strings.IndexByte(chunk, '='); eq >= 0 {
			k := chunk[:eq]
			v := strings.Trim(chunk[eq+1:], "\"")
			dst.Set(k, v)
		} else {
			dst.Set(chunk, "")
		}
		return nil
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case sep:
			if inQuotes {
				continue
			}
			if err := flush(s[start:i]); err != nil {
				return err
			}
			start = i + 1
		}
	}
	return flush(s[start:])
}
