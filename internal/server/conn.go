package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
)

const (
	// lingerTimeout bounds how long unread request bytes are drained after a response
	// to a request that was not read to its end.
	lingerTimeout  = 500 * time.Millisecond
	lingerMaxBytes = 256 << 10
)

// handleConnection serves exactly one request on conn and closes it. Every outcome,
// including parse failures and handler panics, produces a response.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.untrackConn(conn)
	s.ServeConn(conn)
}

// ServeConn reads one request from conn, routes it, writes the response and closes conn.
func (s *Server) ServeConn(conn net.Conn) {
	start := time.Now()
	remoteAddr := remoteAddrString(conn)

	br := bufio.NewReader(conn)
	req, err := http1.ReadRequest(br, s.limits)

	var resp *http1.Response
	if err != nil {
		s.log.Debug("Failed to parse request", logger.LogFields{"remote_addr": remoteAddr, "error": err.Error()})
		resp = ErrorResponse(err, s.log)
	} else {
		s.log.Debug("Received request", logger.LogFields{"remote_addr": remoteAddr, "request": req.String()})
		resp = s.serveRequest(req)
	}

	n, werr := resp.WriteTo(conn)
	if werr != nil {
		s.log.Error("Failed to write response", logger.LogFields{
			"remote_addr": remoteAddr,
			"status_code": resp.StatusCode(),
			"error":       werr.Error(),
		})
	} else {
		s.log.Debug("Sent response", logger.LogFields{
			"remote_addr":  remoteAddr,
			"status_line":  resp.StatusLine(),
			"content_type": resp.ContentType(),
			"body_bytes":   len(resp.Body()),
			"bytes":        n,
		})
	}
	s.log.Access(remoteAddr, req, resp.StatusCode(), n, time.Since(start))

	closeConn(conn, http1.IsKind(err, http1.KindClientError) && werr == nil)
}

// serveRequest routes req and converts any error or panic into an error response.
func (s *Server) serveRequest(req *http1.Request) (resp *http1.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Panic while serving request", logger.LogFields{
				"panic": fmt.Sprint(r),
				"path":  req.Path(),
				"stack": string(debug.Stack()),
			})
			resp = ErrorResponse(http1.NewServerError(fmt.Sprintf("panic: %v", r), nil), s.log)
		}
	}()

	resp, err := s.router.Route(req)
	if err != nil {
		return ErrorResponse(err, s.log)
	}
	if resp == nil {
		return ErrorResponse(http1.NewServerError("router returned neither response nor error", nil), s.log)
	}
	return resp
}

// closeConn closes conn. When the request was not consumed to its end, the write
// side is shut down first and pending input is drained briefly so the client can
// read the response before the socket is torn down.
func closeConn(conn net.Conn, linger bool) {
	if tc, ok := conn.(interface{ CloseWrite() error }); ok && linger {
		if tc.CloseWrite() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
			_, _ = io.Copy(io.Discard, io.LimitReader(conn, lingerMaxBytes))
		}
	}
	conn.Close()
}

func remoteAddrString(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
