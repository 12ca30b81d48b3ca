package server

import (
	"fmt"
	"html"
	"net/http"

	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
)

// ContentTypeHTML is the content type of rendered error pages.
const ContentTypeHTML = "text/html"

// ErrorResponse converts err into the response sent to the client. The status code comes
// from the error kind; the body is a minimal HTML page that never includes the error
// detail. Detail is written to the error log instead.
func ErrorResponse(err error, log *logger.Logger) *http1.Response {
	e := http1.AsError(err)
	if e == nil {
		e = http1.NewServerError("nil error passed to ErrorResponse", nil)
	}
	status := e.StatusCode()

	if log != nil {
		fields := logger.LogFields{
			"status_code": status,
			"kind":        e.Kind.String(),
			"detail":      e.Detail,
		}
		if e.Cause != nil {
			fields["error"] = e.Cause.Error()
		}
		switch e.Kind {
		case http1.KindServerError:
			log.Error("Request failed with server error", fields)
		case http1.KindClientError:
			log.Warn("Request rejected as malformed", fields)
		default:
			log.Debug("Request failed", fields)
		}
	}

	var extra []http1.HeaderField
	if e.Kind == http1.KindInvalidContentRange && e.ResourceLength >= 0 {
		extra = append(extra, http1.HeaderField{
			Name:  http1.HeaderContentRange,
			Value: http1.UnsatisfiedContentRange(e.ResourceLength),
		})
	}
	return http1.NewResponse(status, ContentTypeHTML, ErrorPage(status), extra...)
}

// ErrorPage renders the HTML body for an error status.
func ErrorPage(statusCode int) []byte {
	title := html.EscapeString(fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)))
	return []byte(fmt.Sprintf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title></head><body><h1>%s</h1></body></html>`, title, title))
}
