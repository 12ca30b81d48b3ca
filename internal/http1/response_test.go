package http1

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponse_WireFormat(t *testing.T) {
	resp := NewResponse(http.StatusOK, "text/plain", []byte("hello"))

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"
	assert.Equal(t, want, string(resp.Bytes()))
}

func TestNewResponse_ExtraHeadersComeFirstInOrder(t *testing.T) {
	resp := NewResponse(http.StatusPartialContent, "image/png", []byte("ell"),
		HeaderField{Name: HeaderAcceptRanges, Value: "bytes"},
		HeaderField{Name: HeaderContentRange, Value: "bytes 1-3/5"},
	)

	want := "HTTP/1.1 206 Partial Content\r\n" +
		"Accept-Ranges: bytes\r\n" +
		"Content-Range: bytes 1-3/5\r\n" +
		"Content-Type: image/png\r\n" +
		"Content-Length: 3\r\n" +
		"\r\n" +
		"ell"
	assert.Equal(t, want, string(resp.Bytes()))
	// Serializing twice yields identical bytes.
	assert.Equal(t, resp.Bytes(), resp.Bytes())
}

func TestNewResponse_EmptyBody(t *testing.T) {
	resp := NewResponse(http.StatusOK, "text/plain", nil)
	assert.Equal(t, "0", resp.Header(HeaderContentLength))
	assert.True(t, bytes.HasSuffix(resp.Bytes(), []byte("\r\n\r\n")))
}

func TestNewResponse_ParsesWithNetHTTP(t *testing.T) {
	resp := NewPartialResponse("audio/mpeg", []byte{0x01, 0x02}, 10, 11, 20)

	parsed, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(resp.Bytes())), nil)
	require.NoError(t, err)
	defer parsed.Body.Close()

	assert.Equal(t, http.StatusPartialContent, parsed.StatusCode)
	assert.Equal(t, "HTTP/1.1", parsed.Proto)
	assert.Equal(t, "bytes", parsed.Header.Get(HeaderAcceptRanges))
	assert.Equal(t, "bytes 10-11/20", parsed.Header.Get(HeaderContentRange))
	assert.Equal(t, "audio/mpeg", parsed.Header.Get(HeaderContentType))
	assert.Equal(t, int64(2), parsed.ContentLength)
	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, body)
}

func TestNewResponse_DoesNotAliasExtraHeaders(t *testing.T) {
	extra := []HeaderField{{Name: "X-A", Value: "1"}}
	resp := NewResponse(http.StatusOK, "text/plain", nil, extra...)
	extra[0].Value = "2"
	assert.Equal(t, "1", resp.Header("X-A"))
}

func TestNewResponse_UnknownStatusPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewResponse(799, "text/plain", nil)
	})
}

func TestResponse_WriteTo(t *testing.T) {
	resp := NewResponse(http.StatusNotFound, "text/html", []byte("<h1>x</h1>"))
	var buf bytes.Buffer
	n, err := resp.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, resp.Bytes(), buf.Bytes())
	assert.Equal(t, "HTTP/1.1 404 Not Found", resp.StatusLine())
}

func TestContentRangeFormatting(t *testing.T) {
	assert.Equal(t, "bytes 0-4/5", ContentRange(0, 4, 5))
	assert.Equal(t, "bytes */5", UnsatisfiedContentRange(5))
}
