package sip

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParseMessage parses a complete SIP message (start line + headers + body)
// out of data. Line endings may be CRLF or bare LF on input; output is
// always CRLF-terminated (spec.md §4.C). The body is taken verbatim from
// whatever follows the blank line that ends the header block — framing
// against Content-Length is the transport layer's job (component E).
func ParseMessage(data []byte) (Message, error) {
	lines, body, err := splitLines(data)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedMessage)
	}

	startLine := lines[0]
	headerLines := lines[1:]

	if isRequestLine(startLine) {
		req, err := parseRequestLine(startLine)
		if err != nil {
			return nil, err
		}
		if err := parseHeaderBlock(req.messageData.headers, headerLines); err != nil {
			return nil, err
		}
		req.body = body
		return req, nil
	}

	res, err := parseStatusLine(startLine)
	if err != nil {
		return nil, err
	}
	if err := parseHeaderBlock(res.messageData.headers, headerLines); err != nil {
		return nil, err
	}
	res.body = body
	return res, nil
}

// splitLines splits data into header lines (CRLF or LF terminated) up to
// the first blank line, returning whatever follows as the body.
func splitLines(data []byte) ([]string, []byte, error) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	idx := bytes.Index(normalized, []byte("\n\n"))
	var headerPart []byte
	var body []byte
	if idx < 0 {
		headerPart = normalized
	} else {
		headerPart = normalized[:idx]
		// Slice the body out of the original bytes so CRLFs inside it are kept.
		for i := 0; i < len(data); i++ {
			if data[i] != '\n' {
				continue
			}
			if i+1 < len(data) && data[i+1] == '\n' {
				body = data[i+2:]
				break
			}
			if i+2 < len(data) && data[i+1] == '\r' && data[i+2] == '\n' {
				body = data[i+3:]
				break
			}
		}
	}
	raw := strings.Split(string(headerPart), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, unfoldContinuation(l))
	}
	lines = joinFolded(lines)
	return lines, body, nil
}

// joinFolded merges continuation lines (starting with SP/HTAB, RFC 3261
// §7.3.1 line folding) into the preceding header line.
func joinFolded(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if len(out) > 0 && len(l) > 0 && (l[0] == ' ' || l[0] == '\t') {
			out[len(out)-1] += " " + strings.TrimSpace(l)
			continue
		}
		out = append(out, l)
	}
	return out
}

func unfoldContinuation(l string) string { return l }

func isRequestLine(line string) bool {
	if strings.HasPrefix(line, "SIP/") {
		return false
	}
	fields := strings.Fields(line)
	return len(fields) == 3
}

func parseRequestLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformedMessage, line)
	}
	if fields[2] != SIPVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, fields[2])
	}
	uri, err := ParseUri(fields[1])
	if err != nil {
		return nil, err
	}
	return NewRequest(RequestMethod(fields[0]), uri), nil
}

func parseStatusLine(line string) (*Response, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: bad status line %q", ErrMalformedMessage, line)
	}
	if fields[0] != SIPVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, fields[0])
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformedMessage, fields[1])
	}
	reason := ""
	if len(fields) == 3 {
		reason = fields[2]
	}
	return NewResponse(StatusCode(code), reason), nil
}

func parseHeaderBlock(hs *Headers, lines []string) error {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return fmt.Errorf("%w: header missing colon: %q", ErrMalformedMessage, line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])

		values := []string{value}
		if commaSplittableHeaders[expandCompactName(name)] {
			values = splitTopLevelCommas(value)
		}
		for _, v := range values {
			h, err := parseHeaderValue(name, v)
			if err != nil {
				return err
			}
			hs.Append(h)
		}
	}
	return nil
}

// commaSplittableHeaders are the headers RFC 3261 §7.3.1 allows to carry
// several comma-joined values on one line; each becomes its own Header
// entry rather than one garbled value (spec.md §3, §4.B).
var commaSplittableHeaders = map[string]bool{
	"Via":          true,
	"Route":        true,
	"Record-Route": true,
	"Contact":      true,
	"Allow":        true,
	"Supported":    true,
}

// splitTopLevelCommas splits value on commas that fall outside a quoted
// string or a <...> name-addr, the same concern the teacher's
// errComaDetected comma-detection in parse_header.go handles incrementally
// while re-invoking its per-header parser.
func splitTopLevelCommas(value string) []string {
	var parts []string
	depth := 0
	inQuotes := false
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '"':
			inQuotes = !inQuotes
		case '<':
			if !inQuotes {
				depth++
			}
		case '>':
			if !inQuotes && depth > 0 {
				depth--
			}
		case ',':
			if !inQuotes && depth == 0 {
				parts = append(parts, strings.TrimSpace(value[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(value[start:]))
	return parts
}

// headerParsers dispatches by canonical header name, mirroring the
// teacher's map-of-parse-functions style (sip/parser.go).
var headerParsers = map[string]func(value string) (Header, error){
	"Via":            parseViaValue,
	"From":           func(v string) (Header, error) { return parseNameAddrHeader(v, "From") },
	"To":             func(v string) (Header, error) { return parseNameAddrHeader(v, "To") },
	"Contact":        parseContactValue,
	"Call-ID":        func(v string) (Header, error) { return CallIDHeader(v), nil },
	"CSeq":           parseCSeqValue,
	"Max-Forwards":   parseMaxForwardsValue,
	"Content-Length": parseContentLengthValue,
	"Content-Type":   func(v string) (Header, error) { return ContentTypeHeader(v), nil },
	"Route":          func(v string) (Header, error) { return parseRouteValue(v, false) },
	"Record-Route":   func(v string) (Header, error) { return parseRouteValue(v, true) },
	"Allow":          parseAllowValue,
	"Supported":      parseSupportedValue,
}

func parseHeaderValue(name, value string) (Header, error) {
	canonical := expandCompactName(name)
	if fn, ok := headerParsers[canonical]; ok {
		h, err := fn(value)
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: %v", ErrMalformedMessage, canonical, err)
		}
		return h, nil
	}
	return NewHeader(canonical, value), nil
}

func parseViaValue(value string) (Header, error) {
	slashParts := strings.SplitN(value, " ", 2)
	proto := strings.Split(slashParts[0], "/")
	if len(proto) != 3 {
		return nil, fmt.Errorf("bad via protocol %q", slashParts[0])
	}
	if len(slashParts) < 2 {
		return nil, fmt.Errorf("missing sent-by in via")
	}
	rest := slashParts[1]
	sentBy, paramStr, _ := strings.Cut(rest, ";")
	host, portStr, hasPort := strings.Cut(strings.TrimSpace(sentBy), ":")
	v := &ViaHeader{
		ProtocolName:    proto[0],
		ProtocolVersion: proto[1],
		Transport:       strings.ToUpper(proto[2]),
		Host:            host,
		Params:          NewParams(),
	}
	if hasPort {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("bad via port %q", portStr)
		}
		v.Port = port
	}
	if paramStr != "" {
		if err := unmarshalParams(paramStr, ';', &v.Params); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func parseNameAddr(value string) (displayName string, u Uri, params Params, err error) {
	params = NewParams()
	value = strings.TrimSpace(value)
	if lt := strings.IndexByte(value, '<'); lt >= 0 {
		displayName = strings.Trim(strings.TrimSpace(value[:lt]), "\"")
		gt := strings.IndexByte(value, '>')
		if gt < 0 {
			return "", Uri{}, nil, fmt.Errorf("unbalanced <> in name-addr")
		}
		u, err = ParseUri(value[lt+1 : gt])
		if err != nil {
			return "", Uri{}, nil, err
		}
		if rest := strings.TrimSpace(value[gt+1:]); strings.HasPrefix(rest, ";") {
			if err := unmarshalParams(rest[1:], ';', &params); err != nil {
				return "", Uri{}, nil, err
			}
		}
		return displayName, u, params, nil
	}
	// bare addr-spec, optionally followed by ;params
	uriPart, paramStr, hasParams := strings.Cut(value, ";")
	u, err = ParseUri(strings.TrimSpace(uriPart))
	if err != nil {
		return "", Uri{}, nil, err
	}
	if hasParams {
		if err := unmarshalParams(paramStr, ';', &params); err != nil {
			return "", Uri{}, nil, err
		}
	}
	return "", u, params, nil
}

func parseNameAddrHeader(value, which string) (Header, error) {
	dn, u, params, err := parseNameAddr(value)
	if err != nil {
		return nil, err
	}
	if which == "From" {
		return &FromHeader{DisplayName: dn, Address: u, Params: params}, nil
	}
	return &ToHeader{DisplayName: dn, Address: u, Params: params}, nil
}

func parseContactValue(value string) (Header, error) {
	if strings.TrimSpace(value) == "*" {
		return &ContactHeader{Star: true}, nil
	}
	dn, u, params, err := parseNameAddr(value)
	if err != nil {
		return nil, err
	}
	return &ContactHeader{DisplayName: dn, Address: u, Params: params}, nil
}

func parseRouteValue(value string, recordRoute bool) (Header, error) {
	_, u, _, err := parseNameAddr(value)
	if err != nil {
		return nil, err
	}
	if recordRoute {
		return &RecordRouteHeader{Address: u}, nil
	}
	return &RouteHeader{Address: u}, nil
}

func parseCSeqValue(value string) (Header, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return nil, fmt.Errorf("bad cseq %q", value)
	}
	n, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad cseq number %q", fields[0])
	}
	return &CSeqHeader{SeqNo: uint32(n), Method: RequestMethod(fields[1])}, nil
}

func parseMaxForwardsValue(value string) (Header, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad max-forwards %q", value)
	}
	return MaxForwardsHeader(uint32(n)), nil
}

func parseAllowValue(value string) (Header, error) {
	h := AllowHeader{RequestMethod(strings.TrimSpace(value))}
	return &h, nil
}

func parseSupportedValue(value string) (Header, error) {
	h := SupportedHeader{strings.TrimSpace(value)}
	return &h, nil
}

func parseContentLengthValue(value string) (Header, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad content-length %q", value)
	}
	return ContentLengthHeader(uint32(n)), nil
}
