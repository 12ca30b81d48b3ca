package http1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    ByteRange
		wantErr string
	}{
		{name: "bounded", value: "bytes=1-3", want: ByteRange{Start: 1, End: 3, HasEnd: true}},
		{name: "open ended", value: "bytes=10-", want: ByteRange{Start: 10}},
		{name: "zero zero", value: "bytes=0-0", want: ByteRange{Start: 0, End: 0, HasEnd: true}},
		{name: "surrounding whitespace", value: "  bytes=2-4 ", want: ByteRange{Start: 2, End: 4, HasEnd: true}},
		{name: "start after end is still parsed", value: "bytes=9-2", want: ByteRange{Start: 9, End: 2, HasEnd: true}},
		{name: "missing equals", value: "bytes 1-3", wantErr: "missing '='"},
		{name: "missing dash", value: "bytes=13", wantErr: "missing '-'"},
		{name: "wrong unit", value: "items=1-3", wantErr: "unsupported unit"},
		{name: "suffix range", value: "bytes=-5", wantErr: "invalid start"},
		{name: "negative start", value: "bytes=-1-5", wantErr: "invalid start"},
		{name: "signed start", value: "bytes=+1-5", wantErr: "invalid start"},
		{name: "non numeric end", value: "bytes=1-x", wantErr: "invalid end"},
		{name: "multi range", value: "bytes=0-1,4-5", wantErr: "invalid end"},
		{name: "overflow", value: "bytes=99999999999999999999-", wantErr: "invalid start"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange(tc.value)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestByteRange_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		r         ByteRange
		length    int64
		wantStart int64
		wantEnd   int64
		wantOK    bool
	}{
		{name: "bounded inside", r: ByteRange{Start: 1, End: 3, HasEnd: true}, length: 5, wantStart: 1, wantEnd: 3, wantOK: true},
		{name: "bounded last byte", r: ByteRange{Start: 4, End: 4, HasEnd: true}, length: 5, wantStart: 4, wantEnd: 4, wantOK: true},
		{name: "open ended", r: ByteRange{Start: 2}, length: 5, wantStart: 2, wantEnd: 4, wantOK: true},
		{name: "open ended from zero", r: ByteRange{Start: 0}, length: 1, wantStart: 0, wantEnd: 0, wantOK: true},
		{name: "end equals length", r: ByteRange{Start: 0, End: 5, HasEnd: true}, length: 5},
		{name: "end beyond length", r: ByteRange{Start: 0, End: 100, HasEnd: true}, length: 5},
		{name: "start after end", r: ByteRange{Start: 3, End: 1, HasEnd: true}, length: 5},
		{name: "open start at length", r: ByteRange{Start: 5}, length: 5},
		{name: "open start beyond length", r: ByteRange{Start: 50}, length: 5},
		{name: "empty resource", r: ByteRange{Start: 0}, length: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := tc.r.Resolve(tc.length)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantStart, start)
				assert.Equal(t, tc.wantEnd, end)
			}
		})
	}
}

func TestByteRange_String(t *testing.T) {
	assert.Equal(t, "bytes=1-3", ByteRange{Start: 1, End: 3, HasEnd: true}.String())
	assert.Equal(t, "bytes=7-", ByteRange{Start: 7}.String())
}
