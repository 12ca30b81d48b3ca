package http1

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Header names emitted by the server.
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderAcceptRanges  = "Accept-Ranges"
	HeaderContentRange  = "Content-Range"
)

// HeaderField represents a single HTTP header field (name-value pair).
type HeaderField struct {
	Name  string
	Value string
}

// Response is a complete HTTP/1.1 response. It is built once by NewResponse and
// never modified afterwards.
type Response struct {
	statusCode  int
	reason      string
	contentType string
	headers     []HeaderField // Extra headers, emitted before Content-Type/Content-Length
	body        []byte
}

// NewResponse assembles a response. extra headers are written in the given order,
// followed by the mandatory Content-Type and Content-Length.
//
// NewResponse panics if statusCode has no registered reason phrase; status codes are
// always constants at call sites.
func NewResponse(statusCode int, contentType string, body []byte, extra ...HeaderField) *Response {
	reason := http.StatusText(statusCode)
	if reason == "" {
		panic(fmt.Sprintf("http1: no reason phrase for status code %d", statusCode))
	}
	headers := make([]HeaderField, len(extra))
	copy(headers, extra)
	return &Response{
		statusCode:  statusCode,
		reason:      reason,
		contentType: contentType,
		headers:     headers,
		body:        body,
	}
}

// NewPartialResponse builds a 206 response carrying the inclusive [start, end] slice
// of a resource of the given total length.
func NewPartialResponse(contentType string, body []byte, start, end, total int64) *Response {
	return NewResponse(http.StatusPartialContent, contentType, body,
		HeaderField{Name: HeaderAcceptRanges, Value: RangeUnit},
		HeaderField{Name: HeaderContentRange, Value: ContentRange(start, end, total)},
	)
}

// ContentRange formats a Content-Range value for a satisfied range.
func ContentRange(start, end, total int64) string {
	return fmt.Sprintf("%s %d-%d/%d", RangeUnit, start, end, total)
}

// UnsatisfiedContentRange formats the Content-Range value sent with a 416 response.
func UnsatisfiedContentRange(total int64) string {
	return fmt.Sprintf("%s */%d", RangeUnit, total)
}

// StatusCode returns the response status code.
func (r *Response) StatusCode() int { return r.statusCode }

// StatusLine returns the status line without its CRLF terminator.
func (r *Response) StatusLine() string {
	return fmt.Sprintf("HTTP/1.1 %d %s", r.statusCode, r.reason)
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string { return r.contentType }

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

// Headers returns every header in wire order, Content-Type and Content-Length last.
func (r *Response) Headers() []HeaderField {
	out := make([]HeaderField, 0, len(r.headers)+2)
	out = append(out, r.headers...)
	out = append(out,
		HeaderField{Name: HeaderContentType, Value: r.contentType},
		HeaderField{Name: HeaderContentLength, Value: strconv.Itoa(len(r.body))},
	)
	return out
}

// Header returns the value of the first header with the given name, or "".
func (r *Response) Header(name string) string {
	for _, hf := range r.Headers() {
		if hf.Name == name {
			return hf.Value
		}
	}
	return ""
}

// Bytes returns the exact wire encoding of the response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(128 + len(r.body))
	buf.WriteString(r.StatusLine())
	buf.WriteString("\r\n")
	for _, hf := range r.Headers() {
		buf.WriteString(hf.Name)
		buf.WriteString(": ")
		buf.WriteString(hf.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(r.body)
	return buf.Bytes()
}

// WriteTo writes the wire encoding of the response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
