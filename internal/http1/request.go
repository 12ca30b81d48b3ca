package http1

import (
	"bufio"
	"errors"
	"io"
	"net/textproto"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const (
	// HeaderRange is the only request header the server interprets.
	HeaderRange = "Range"

	// DefaultMaxHeaderBytes bounds the request line plus all header lines.
	DefaultMaxHeaderBytes = 64 << 10
)

// Limits holds the resource limits applied while reading a request.
// A zero MaxHeaderBytes means DefaultMaxHeaderBytes.
type Limits struct {
	MaxHeaderBytes int64
}

// Request is a parsed HTTP/1.1 request head. It is immutable once returned by
// ReadRequest.
type Request struct {
	method    string
	path      string
	proto     string
	headers   map[string]string
	byteRange *ByteRange
}

// NewRequest builds a Request directly. headers may be nil. Header names are
// canonicalized the same way ReadRequest does.
func NewRequest(method, path string, headers map[string]string, r *ByteRange) *Request {
	req := &Request{
		method:  method,
		path:    path,
		headers: make(map[string]string, len(headers)),
	}
	for name, value := range headers {
		req.headers[textproto.CanonicalMIMEHeaderKey(name)] = value
	}
	if r != nil {
		rc := *r
		req.byteRange = &rc
	}
	return req
}

// Method returns the request method exactly as sent.
func (r *Request) Method() string { return r.method }

// Path returns the raw request target, including the leading '/'.
func (r *Request) Path() string { return r.path }

// Proto returns the protocol token of the request line, or "" if the client omitted it.
func (r *Request) Proto() string { return r.proto }

// Header returns the value of the named header. Lookup is case-insensitive.
func (r *Request) Header(name string) string {
	return r.headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// Headers returns a copy of all request headers keyed by canonical name.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Range returns the parsed Range header, if the request carried one.
func (r *Request) Range() (ByteRange, bool) {
	if r.byteRange == nil {
		return ByteRange{}, false
	}
	return *r.byteRange, true
}

// String renders the request line and headers (sorted by name) for logging.
func (r *Request) String() string {
	var sb strings.Builder
	sb.WriteString(r.method)
	sb.WriteByte(' ')
	sb.WriteString(r.path)
	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteByte('\n')
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.headers[name])
	}
	return sb.String()
}

// errHeaderTooLarge is wrapped into the ClientError returned when the request head
// exceeds Limits.MaxHeaderBytes.
var errHeaderTooLarge = errors.New("request header too large")

// lineReader pulls CRLF- or LF-terminated lines and enforces a byte budget.
type lineReader struct {
	br        *bufio.Reader
	remaining int64
}

// next returns the next line without its terminator. At end of stream it returns the
// trailing partial line, if any, and io.EOF once nothing is left.
func (lr *lineReader) next() (string, error) {
	var sb strings.Builder
	for {
		frag, err := lr.br.ReadSlice('\n')
		lr.remaining -= int64(len(frag))
		if lr.remaining < 0 {
			return "", errHeaderTooLarge
		}
		sb.Write(frag)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", io.EOF
			}
			return strings.TrimRight(sb.String(), "\r\n"), nil
		}
		if err != nil {
			return "", err
		}
		line := sb.String()
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		return line, nil
	}
}

// ReadRequest reads a request line and header block from br. It never reads a body.
// Every failure is returned as a KindClientError *Error.
func ReadRequest(br *bufio.Reader, limits Limits) (*Request, error) {
	maxBytes := limits.MaxHeaderBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHeaderBytes
	}
	lr := &lineReader{br: br, remaining: maxBytes}

	startLine, err := lr.next()
	if err == io.EOF {
		return nil, NewClientError("start line empty")
	}
	if err != nil {
		return nil, NewClientErrorWithCause("error reading request start line", err)
	}

	method, path, proto, err := parseStartLine(startLine)
	if err != nil {
		return nil, err
	}

	req := &Request{
		method:  method,
		path:    path,
		proto:   proto,
		headers: make(map[string]string),
	}

	for {
		line, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewClientErrorWithCause("error reading request header line", err)
		}
		if line == "" {
			break
		}

		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		req.headers[name] = value

		if name == HeaderRange {
			if !httpguts.ValidHeaderFieldValue(value) {
				return nil, NewClientError("invalid characters in Range header %q", value)
			}
			r, err := ParseRange(value)
			if err != nil {
				return nil, NewClientErrorWithCause("error parsing Range header", err)
			}
			req.byteRange = &r
		}
	}

	return req, nil
}

// parseStartLine splits "METHOD SP target [SP proto]" on single spaces.
func parseStartLine(line string) (method, path, proto string, err error) {
	tokens := strings.Split(line, " ")
	if tokens[0] == "" {
		return "", "", "", NewClientError("no method found in request line %q", line)
	}
	if len(tokens) < 2 || tokens[1] == "" {
		return "", "", "", NewClientError("no endpoint found in request line %q", line)
	}
	if len(tokens) > 2 {
		proto = tokens[2]
	}
	return tokens[0], tokens[1], proto, nil
}

// parseHeaderLine splits "Name: value" at the first ": ". The value is kept as sent.
func parseHeaderLine(line string) (name, value string, err error) {
	rawName, value, found := strings.Cut(line, ": ")
	if !found {
		return "", "", NewClientError("malformed header line %q", line)
	}
	return textproto.CanonicalMIMEHeaderKey(rawName), value, nil
}
