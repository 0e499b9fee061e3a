// Package playback streams clip sources and export artifacts over HTTP with
// byte-range support, which is what lets a media element scrub a local file.
package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is one satisfiable, inclusive byte span of a file.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a file of the
// given total size.
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange interprets a Range request header against a file of `size`
// bytes. A missing header returns (nil, nil): serve the whole file. Multiple
// ranges are not supported; only the first is honored.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	if idx := strings.Index(spec, ","); idx != -1 {
		spec = strings.TrimSpace(spec[:idx])
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	var r ByteRange
	if first == "" {
		// Suffix form: the last N bytes.
		suffix, err := strconv.ParseInt(last, 10, 64)
		if err != nil || suffix <= 0 {
			return nil, ErrInvalidRange
		}
		r.Start = size - suffix
		if r.Start < 0 {
			r.Start = 0
		}
		r.End = size - 1
	} else {
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return nil, ErrInvalidRange
		}
		r.Start = start
		if last == "" {
			r.End = size - 1
		} else {
			end, err := strconv.ParseInt(last, 10, 64)
			if err != nil {
				return nil, ErrInvalidRange
			}
			r.End = end
		}
	}

	if r.End >= size {
		r.End = size - 1
	}
	if r.Start > r.End || r.Start >= size {
		return nil, ErrUnsatisfiable
	}
	return &r, nil
}
