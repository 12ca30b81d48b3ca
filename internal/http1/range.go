package http1

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeUnit is the only range unit the server understands.
const RangeUnit = "bytes"

// ByteRange is a single byte range from a Range header. Bounds are inclusive on
// both ends, as written on the wire. HasEnd is false for "bytes=N-".
type ByteRange struct {
	Start  uint64
	End    uint64
	HasEnd bool
}

// String renders the range in Range header form.
func (r ByteRange) String() string {
	if r.HasEnd {
		return fmt.Sprintf("%s=%d-%d", RangeUnit, r.Start, r.End)
	}
	return fmt.Sprintf("%s=%d-", RangeUnit, r.Start)
}

// Resolve returns the inclusive [start, end] offsets the range selects in a resource
// of the given length. ok is false when the range cannot be satisfied: a bounded end
// at or beyond length, a start past the resolved end, or an empty resource.
func (r ByteRange) Resolve(length int64) (start, end int64, ok bool) {
	if length <= 0 {
		return 0, 0, false
	}
	last := uint64(length - 1)
	endOff := last
	if r.HasEnd {
		if r.End > last {
			return 0, 0, false
		}
		endOff = r.End
	}
	if r.Start > endOff {
		return 0, 0, false
	}
	return int64(r.Start), int64(endOff), true
}

// ParseRange parses a Range header value of the form "bytes=<start>-<end?>".
// It does not check the range against any resource; see ByteRange.Resolve.
func ParseRange(value string) (ByteRange, error) {
	unit, spec, found := strings.Cut(strings.TrimSpace(value), "=")
	if !found {
		return ByteRange{}, fmt.Errorf("range header %q: missing '='", value)
	}
	if strings.TrimSpace(unit) != RangeUnit {
		return ByteRange{}, fmt.Errorf("range header %q: unsupported unit %q", value, unit)
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return ByteRange{}, fmt.Errorf("range header %q: missing '-'", value)
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return ByteRange{}, fmt.Errorf("range header %q: invalid start: %w", value, err)
	}

	r := ByteRange{Start: start}
	if endStr != "" {
		end, err := parseOffset(endStr)
		if err != nil {
			return ByteRange{}, fmt.Errorf("range header %q: invalid end: %w", value, err)
		}
		r.End = end
		r.HasEnd = true
	}
	return r, nil
}

// parseOffset parses a non-negative decimal offset that fits in an int64.
func parseOffset(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, err
	}
	return n, nil
}
