package httpwire

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/luciancaetano/portmux"
)

// WriteResponse serializes a response model to w: status line, headers
// with a computed Content-Length, blank line, body. The caller's model is
// never mutated; Content-Length and a missing Content-Type are added only
// to the serialized form. Headers are written in sorted order so output is
// deterministic.
func WriteResponse(w io.Writer, resp *portmux.Response) error {
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	reason := http.StatusText(status)
	if reason == "" {
		reason = "Status"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, reason)

	names := make([]string, 0, len(resp.Headers))
	hasType := false
	for name := range resp.Headers {
		names = append(names, name)
		if strings.EqualFold(name, "Content-Type") {
			hasType = true
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", name, resp.Headers[name])
	}
	if !hasType && len(resp.Body) > 0 {
		b.WriteString("Content-Type: application/octet-stream\r\n")
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(resp.Body))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			return err
		}
	}
	return nil
}
