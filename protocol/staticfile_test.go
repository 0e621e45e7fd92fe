// File: protocol/staticfile_test.go
// Author: momentics <momentics@gmail.com>

package protocol_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lattice-systems/seaengine/protocol"
)

func writeTempFile(t *testing.T, contents string) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	name = "sample.txt"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir, name
}

func TestServeStaticFileFullBody(t *testing.T) {
	dir, name := writeTempFile(t, "0123456789")

	result, err := protocol.ServeStaticFile(dir, "/"+name, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatal("expected the file to be found")
	}
	if !strings.HasPrefix(string(result.Header), "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("Header = %q, want 200 OK status line", result.Header)
	}
	if !strings.Contains(string(result.Header), "Content-Length: 10\r\n") {
		t.Fatalf("Header = %q, missing Content-Length: 10", result.Header)
	}

	var body bytes.Buffer
	if err := result.CopyBody(&body); err != nil {
		t.Fatalf("CopyBody: %v", err)
	}
	if body.String() != "0123456789" {
		t.Fatalf("body = %q, want full file contents", body.String())
	}
}

func TestServeStaticFileSingleRange(t *testing.T) {
	dir, name := writeTempFile(t, "0123456789")

	result, err := protocol.ServeStaticFile(dir, "/"+name, "bytes=2-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(result.Header), "HTTP/1.1 206 Partial Content\r\n") {
		t.Fatalf("Header = %q, want 206 status line", result.Header)
	}
	if !strings.Contains(string(result.Header), "Content-Range: bytes 2-4/10\r\n") {
		t.Fatalf("Header = %q, missing Content-Range", result.Header)
	}
	if !strings.Contains(string(result.Header), "Content-Length: 3\r\n") {
		t.Fatalf("Header = %q, missing Content-Length: 3", result.Header)
	}

	var body bytes.Buffer
	if err := result.CopyBody(&body); err != nil {
		t.Fatalf("CopyBody: %v", err)
	}
	if body.String() != "234" {
		t.Fatalf("body = %q, want %q", body.String(), "234")
	}
}

func TestServeStaticFileMultiRangeConcatenatesContentRange(t *testing.T) {
	dir, name := writeTempFile(t, "0123456789")

	result, err := protocol.ServeStaticFile(dir, "/"+name, "bytes=0-1,5-6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The non-conforming no-separator Content-Range concatenation is a
	// deliberately preserved quirk (see DESIGN.md).
	if !strings.Contains(string(result.Header), "Content-Range: bytes 0-15-6/10\r\n") {
		t.Fatalf("Header = %q, missing concatenated Content-Range", result.Header)
	}
	if !strings.Contains(string(result.Header), "Content-Length: 4\r\n") {
		t.Fatalf("Header = %q, missing Content-Length: 4", result.Header)
	}

	var body bytes.Buffer
	if err := result.CopyBody(&body); err != nil {
		t.Fatalf("CopyBody: %v", err)
	}
	if body.String() != "0156" {
		t.Fatalf("body = %q, want %q", body.String(), "0156")
	}
}

func TestServeStaticFileNotFound(t *testing.T) {
	dir := t.TempDir()

	result, err := protocol.ServeStaticFile(dir, "/missing.txt", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatal("expected Found=false for a missing file")
	}
}

func TestServeStaticFileBadRangeHeader(t *testing.T) {
	dir, name := writeTempFile(t, "0123456789")

	if _, err := protocol.ServeStaticFile(dir, "/"+name, "not-a-range"); err == nil {
		t.Fatal("expected an error for a malformed Range header")
	}
}
