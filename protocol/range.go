// File: protocol/range.go
// Author: momentics <momentics@gmail.com>
//
// HTTP Range header parsing and normalisation, grounded on
// original_source's parseRange/parseRanges/processRangesForStaticData
// (including the deliberately preserved no-separator Content-Range
// quirk — see DESIGN.md and SPEC_FULL.md §9).

package protocol

import (
	"strconv"
	"strings"

	"github.com/lattice-systems/seaengine/api"
)

const rangeUnitPrefix = "bytes="

// ParseRangeHeader parses the value of a Range header (without the
// leading "Range:") and normalises each element against fileSize. An
// empty header value or a missing "bytes=" prefix is reported as an
// error (error kind 7, SPEC_FULL.md §7).
func ParseRangeHeader(value string, fileSize int64) ([]api.Range, error) {
	if !strings.HasPrefix(value, rangeUnitPrefix) {
		return nil, errBadRangeHeader
	}
	list := value[len(rangeUnitPrefix):]
	parts := strings.Split(list, ",")
	ranges := make([]api.Range, 0, len(parts))
	for _, p := range parts {
		r, err := parseOneRange(strings.TrimSpace(p), fileSize)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseOneRange(elem string, fileSize int64) (api.Range, error) {
	dash := strings.IndexByte(elem, '-')
	if dash < 0 {
		return api.Range{}, errBadRangeHeader
	}
	startText, endText := elem[:dash], elem[dash+1:]

	switch {
	case startText == "" && endText != "":
		// "-n": suffix of n bytes.
		n, err := strconv.ParseInt(endText, 10, 64)
		if err != nil || n < 0 {
			return api.Range{}, errBadRangeHeader
		}
		start := fileSize - n
		if start < 0 {
			start = 0
		}
		return api.Range{Start: start, End: fileSize - 1}, nil
	case startText != "" && endText == "":
		// "a-": from a to end of file.
		start, err := strconv.ParseInt(startText, 10, 64)
		if err != nil || start < 0 {
			return api.Range{}, errBadRangeHeader
		}
		if start >= fileSize {
			start = fileSize - 1
		}
		return api.Range{Start: start, End: fileSize - 1}, nil
	case startText != "" && endText != "":
		start, err := strconv.ParseInt(startText, 10, 64)
		if err != nil || start < 0 {
			return api.Range{}, errBadRangeHeader
		}
		end, err := strconv.ParseInt(endText, 10, 64)
		if err != nil || end < start {
			return api.Range{}, errBadRangeHeader
		}
		if start >= fileSize {
			start = fileSize - 1
		}
		if end > fileSize-1 {
			end = fileSize - 1
		}
		return api.Range{Start: start, End: end}, nil
	default:
		return api.Range{}, errBadRangeHeader
	}
}

// ContentRangeHeader renders the Content-Range header value for a set of
// already-normalised ranges against fileSize, preserving the source's
// non-conforming concatenation with no separator between ranges.
func ContentRangeHeader(ranges []api.Range, fileSize int64) string {
	var b strings.Builder
	b.WriteString("bytes ")
	for _, r := range ranges {
		b.WriteString(strconv.FormatInt(r.Start, 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(r.End, 10))
	}
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(fileSize, 10))
	return b.String()
}

// TotalLength sums the length of every range.
func TotalLength(ranges []api.Range) int64 {
	var total int64
	for _, r := range ranges {
		total += r.Length()
	}
	return total
}
