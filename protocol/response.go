// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
//
// Response-line and common-header serialisation, and the error-document
// fallback chain, grounded on original_source's
// bufferResponseAndCommonHeaders/sendError/sendData.

package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lattice-systems/seaengine/api"
)

// ServerIdent is the Server: header value emitted on every response.
const ServerIdent = "seaengine"

const webtimeLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// webtime formats t the way original_source's webtime() does: RFC 1123,
// always GMT.
func webtime(t time.Time) string {
	return t.UTC().Format(webtimeLayout)
}

// now is webtime(time.Now()); a package-level var so tests can freeze it.
var now = func() string { return webtime(time.Now()) }

// commonHeaders writes the response line and the three headers every
// response carries, regardless of outcome.
func commonHeaders(b *strings.Builder, code api.ResponseCode) {
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(int(code)))
	b.WriteByte(' ')
	b.WriteString(code.Reason())
	b.WriteString("\r\n")
	b.WriteString("Server: " + ServerIdent + "\r\n")
	b.WriteString("Date: " + now() + "\r\n")
	b.WriteString("Access-Control-Allow-Origin: *\r\n")
}

// SerializeResponse renders a handler Response to the bytes written to
// the wire, per SPEC_FULL.md §4.6.
func SerializeResponse(resp *api.Response) []byte {
	var b strings.Builder
	commonHeaders(&b, resp.Code)
	b.WriteString("Content-Length: " + strconv.Itoa(len(resp.Payload)) + "\r\n")
	b.WriteString("Content-Type: " + resp.ContentType + "\r\n")
	if resp.KeepAlive {
		b.WriteString("Connection: keep-alive\r\n")
	} else {
		b.WriteString("Connection: close\r\n")
	}
	stamp := now()
	b.WriteString("Last-Modified: " + stamp + "\r\n")
	b.WriteString("Cache-Control: no-store\r\n")
	b.WriteString("Pragma: no-cache\r\n")
	b.WriteString("Expires: " + stamp + "\r\n")
	for name, value := range resp.Headers {
		b.WriteString(name + ": " + value + "\r\n")
	}
	b.WriteString("\r\n")

	out := make([]byte, 0, b.Len()+len(resp.Payload))
	out = append(out, b.String()...)
	out = append(out, resp.Payload...)
	return out
}

// errorTemplatePlaceholder is the inline fallback used when no "/_error.html"
// embedded asset is registered.
const errorTemplatePlaceholder = "<html><head><title>%d - %s</title></head>" +
	"<body><h1>%d - %s</h1><div>%s</div><hr/><div><i>Powered by seaengine</i></div></body></html>"

// SerializeErrorResponse renders an error document for code/body, using
// embedded content's "/_error.html" template (with %%ERRORCODE%%,
// %%MESSAGE%%, %%BODY%% placeholders) when findEmbedded supplies one,
// else the inline fallback. The connection always closes once this drains
// (SPEC_FULL.md §4.6).
func SerializeErrorResponse(code api.ResponseCode, body string, findEmbedded func(path string) ([]byte, bool)) []byte {
	var document string
	if findEmbedded != nil {
		if tmpl, ok := findEmbedded("/_error.html"); ok {
			document = string(tmpl)
			document = strings.ReplaceAll(document, "%%ERRORCODE%%", strconv.Itoa(int(code)))
			document = strings.ReplaceAll(document, "%%MESSAGE%%", code.Reason())
			document = strings.ReplaceAll(document, "%%BODY%%", body)
		}
	}
	if document == "" {
		document = fmt.Sprintf(errorTemplatePlaceholder, int(code), code.Reason(), int(code), code.Reason(), body)
	}

	var b strings.Builder
	commonHeaders(&b, code)
	b.WriteString("Content-Length: " + strconv.Itoa(len(document)) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(document)
	return []byte(b.String())
}
