// Package mime
// Author: momentics <momentics@gmail.com>
//
// Extension-to-content-type lookup for static file serving, grounded on
// the fixed table in the C++ original (Connection.cpp's contentTypes map)
// rather than net/http's sniffing-based mime package: the original serves
// by a small, fixed, file-extension table with no sniffing, and
// SPEC_FULL.md's static-file behavior must match it exactly including the
// text/javascript (not application/javascript) and text/html default.
package mime

import "strings"

var contentTypes = map[string]string{
	"txt":   "text/plain",
	"css":   "text/css",
	"csv":   "text/csv",
	"htm":   "text/html",
	"html":  "text/html",
	"xml":   "text/xml",
	"js":    "text/javascript",
	"xhtml": "application/xhtml+xml",
	"json":  "application/json",
	"pdf":   "application/pdf",
	"zip":   "application/zip",
	"tar":   "application/x-tar",
	"gif":   "image/gif",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"tiff":  "image/tiff",
	"tif":   "image/tiff",
	"png":   "image/png",
	"svg":   "image/svg+xml",
	"ico":   "image/x-icon",
	"swf":   "application/x-shockwave-flash",
	"mp3":   "audio/mpeg",
	"wav":   "audio/x-wav",
	"ttf":   "font/ttf",
}

// cacheableExtensions holds the only extensions served with caching
// enabled: everything else is served uncacheable to avoid stale-asset
// confusion during development, until conditional-request support exists.
var cacheableExtensions = map[string]bool{
	"mp3": true,
	"wav": true,
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return ""
}

// ContentTypeFor returns the Content-Type for path's extension, or
// "text/html" if the extension is unknown.
func ContentTypeFor(path string) string {
	if ct, ok := contentTypes[extOf(path)]; ok {
		return ct
	}
	return "text/html"
}

// IsCacheable reports whether path's extension is one that browsers
// require to be cached for correct behavior.
func IsCacheable(path string) bool {
	return cacheableExtensions[extOf(path)]
}
