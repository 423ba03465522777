// Package buf contains overflow-safe arithmetic and bounds helpers for
// offset math over the heap image.
package buf

import (
	"math"

	"github.com/cockroachdb/errors"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow int.
// This is what calloc-style count * elemSize requests go through.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > 0 && b > 0 {
		if a > math.MaxInt/b {
			return 0, false
		}
	}
	if a < 0 && b < 0 {
		if a < math.MaxInt/b {
			return 0, false
		}
	}
	if a > 0 && b < 0 {
		if b < math.MinInt/a {
			return 0, false
		}
	}
	if a < 0 && b > 0 {
		if a < math.MinInt/b {
			return 0, false
		}
	}
	return a * b, true
}

// CheckRange validates that n bytes starting at off fit within a buffer of
// bufLen bytes. Returns the end offset if valid.
//
//	end, err := buf.CheckRange(len(data), off, n)
//	if err != nil {
//	    return errors.Wrap(err, "store")
//	}
func CheckRange(bufLen, off, n int) (int, error) {
	if off < 0 {
		return 0, errors.Newf("negative offset: %d", off)
	}
	if n < 0 {
		return 0, errors.Newf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, errors.Newf("overflow: offset=%d + size=%d", off, n)
	}
	if end > bufLen {
		return 0, errors.Newf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
