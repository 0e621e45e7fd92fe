// File: protocol/staticfile.go
// Author: momentics <momentics@gmail.com>
//
// Range-aware static file serving, grounded on original_source's
// sendStaticData/processRangesForStaticData/sendData, with content types
// resolved by internal/mime instead of a second copy of the table.

package protocol

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/internal/mime"
)

// ReadWriteBufferSize is the copy-loop chunk size used when streaming a
// static file's ranges, matching SPEC_FULL.md §4.8's 16 KiB buffer.
const ReadWriteBufferSize = 16 * 1024

// StaticFileResult is the outcome of a ServeStaticFile call: either a set
// of header bytes plus a streaming callback, or a fall-through/"not
// found" signal for the caller to continue down the fallback chain.
type StaticFileResult struct {
	// Found is false if the path did not resolve to a regular file at
	// all (caller should fall through to embedded content, livestats,
	// then 404).
	Found bool
	// Header is the fully serialised response header block (status
	// line through the blank line), ready to write.
	Header []byte
	// CopyBody streams the payload (the selected byte ranges) to w,
	// returning an error only for a genuine mid-stream I/O failure
	// (headers are already flushed by then, so the caller cannot
	// recover with an error document).
	CopyBody func(w io.Writer) error
}

// ServeStaticFile resolves requestURI against staticRoot and, if a
// regular file is found, builds the (possibly partial-content) response
// for it.
func ServeStaticFile(staticRoot, requestURI, rangeHeader string) (StaticFileResult, error) {
	path := staticRoot + stripQuery(requestURI)
	if strings.HasSuffix(path, "/") {
		path += "index.html"
	}

	f, err := os.Open(path)
	if err != nil {
		return StaticFileResult{Found: false}, nil
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return StaticFileResult{Found: false}, nil
	}

	fileSize := info.Size()

	var ranges []api.Range
	if rangeHeader != "" {
		ranges, err = ParseRangeHeader(rangeHeader, fileSize)
		if err != nil {
			f.Close()
			return StaticFileResult{}, err
		}
	}

	var b strings.Builder
	if len(ranges) == 0 {
		commonHeaders(&b, api.CodeOK)
		b.WriteString("Content-Length: " + strconv.FormatInt(fileSize, 10) + "\r\n")
		ranges = []api.Range{{Start: 0, End: fileSize - 1}}
	} else {
		commonHeaders(&b, api.CodePartialContent)
		b.WriteString("Content-Range: " + ContentRangeHeader(ranges, fileSize) + "\r\n")
		b.WriteString("Content-Length: " + strconv.FormatInt(TotalLength(ranges), 10) + "\r\n")
	}

	b.WriteString("Content-Type: " + mime.ContentTypeFor(path) + "\r\n")
	b.WriteString("Connection: keep-alive\r\n")
	b.WriteString("Accept-Ranges: bytes\r\n")
	b.WriteString("Last-Modified: " + webtime(info.ModTime()) + "\r\n")
	if !mime.IsCacheable(path) {
		b.WriteString("Cache-Control: no-store\r\n")
		b.WriteString("Pragma: no-cache\r\n")
		b.WriteString("Expires: " + now() + "\r\n")
	}
	b.WriteString("\r\n")

	return StaticFileResult{
		Found:  true,
		Header: []byte(b.String()),
		CopyBody: func(w io.Writer) error {
			defer f.Close()
			buf := make([]byte, ReadWriteBufferSize)
			for _, r := range ranges {
				if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
					return err
				}
				remaining := r.Length()
				for remaining > 0 {
					chunk := int64(len(buf))
					if remaining < chunk {
						chunk = remaining
					}
					n, err := f.Read(buf[:chunk])
					if n <= 0 {
						if err == nil {
							err = io.ErrUnexpectedEOF
						}
						return err
					}
					if _, werr := w.Write(buf[:n]); werr != nil {
						return werr
					}
					remaining -= int64(n)
				}
			}
			return nil
		},
	}, nil
}

func stripQuery(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}
